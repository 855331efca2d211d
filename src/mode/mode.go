// Package mode holds the persisted translation mode and runs one translation
// through the pipeline the mode selects.
package mode

import (
	"context"
	"errors"
	"image"
	"log"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"screen-translate/src/lang"
	"screen-translate/src/llm"
	"screen-translate/src/ocr"
)

// Mode selects the translation pipeline.
type Mode int32

const (
	FastOCR Mode = iota
	RichOCR
	Vision
)

func (m Mode) String() string {
	switch m {
	case FastOCR:
		return "fast-ocr"
	case RichOCR:
		return "rich-ocr"
	case Vision:
		return "vision"
	default:
		return "unknown"
	}
}

// Parse accepts the translation_mode config values and the mode names.
func Parse(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vision":
		return Vision, true
	case "ocr":
		return FastOCR, true
	}
	switch e, ok := ocr.ParseEngine(s); {
	case !ok:
		return FastOCR, false
	case e == ocr.EngineEasyOCR:
		return RichOCR, true
	default:
		return FastOCR, true
	}
}

func fromEngine(e ocr.Engine) Mode {
	if e == ocr.EngineEasyOCR {
		return RichOCR
	}
	return FastOCR
}

// VisionPlaceholder stands in for the original text of a vision result.
const VisionPlaceholder = "[Text extracted by vision]"

// ErrNoTextDetected ends a session whose capture held no usable text.
var ErrNoTextDetected = errors.New("no text detected in the selected region")

// Extractor is the OCR side of the pipeline.
type Extractor interface {
	ExtractText(ctx context.Context, img image.Image) ocr.Extraction
	UseEngine(e ocr.Engine) ocr.Build
	Engine() ocr.Engine
}

// TextTranslator translates extracted text.
type TextTranslator interface {
	Translate(ctx context.Context, text string, source lang.Code) (string, error)
}

// StreamingTextTranslator is a TextTranslator that can emit partial output.
type StreamingTextTranslator interface {
	TextTranslator
	TranslateStream(ctx context.Context, text string, source lang.Code, onChunk func(string)) (string, error)
}

// VisionTranslator extracts and translates in one step.
type VisionTranslator interface {
	TranslateImage(ctx context.Context, img image.Image, target lang.Code) (string, error)
}

// Outcome is the result of one translation.
type Outcome struct {
	OriginalText   string
	TranslatedText string
	Mode           Mode
	Detected       lang.Code
	// FellBack is set when vision failed and the OCR pipeline answered.
	FellBack bool
	// Err is the translation failure already rendered into TranslatedText.
	Err error
}

// Options configures a Coordinator.
type Options struct {
	Initial   Mode
	Extractor Extractor
	Text      TextTranslator
	// NewVision builds the vision translator on first use.
	NewVision func() VisionTranslator
	Target    lang.Code
	OnChange  func(Mode)
}

// Coordinator owns the persisted mode. Toggle and Translate must not run
// concurrently; the session runner serializes them.
type Coordinator struct {
	mode      atomic.Int32
	ocr       Extractor
	text      TextTranslator
	vision    VisionTranslator
	newVision func() VisionTranslator
	target    lang.Code
	onChange  func(Mode)
}

// New builds a coordinator. A rich initial mode whose engine cannot be built
// starts in fast-ocr instead.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		ocr:       opts.Extractor,
		text:      opts.Text,
		newVision: opts.NewVision,
		target:    opts.Target,
		onChange:  opts.OnChange,
	}
	if c.target == "" {
		c.target = lang.French
	}

	initial := opts.Initial
	switch initial {
	case RichOCR:
		if b := c.ocr.UseEngine(ocr.EngineEasyOCR); b.Degraded {
			log.Printf("Mode: rich-ocr unavailable at startup (%v), starting in fast-ocr", b.Reason)
			initial = FastOCR
		}
	case Vision:
		// the OCR fallback keeps whatever engine the handler was configured with
	default:
		c.ocr.UseEngine(ocr.EngineTesseract)
		initial = FastOCR
	}
	c.mode.Store(int32(initial))
	return c
}

// Current returns the persisted mode.
func (c *Coordinator) Current() Mode { return Mode(c.mode.Load()) }

// Toggle advances fast-ocr → rich-ocr → vision → fast-ocr. When the rich
// engine cannot be built the fast-ocr step skips straight to vision.
func (c *Coordinator) Toggle() Mode {
	from := c.Current()
	var to Mode
	switch from {
	case FastOCR:
		if b := c.ocr.UseEngine(ocr.EngineEasyOCR); b.Degraded {
			log.Printf("Mode: rich-ocr unavailable (%v), switching to vision", b.Reason)
			c.ensureVision()
			to = Vision
		} else {
			to = RichOCR
		}
	case RichOCR:
		c.ensureVision()
		to = Vision
	default:
		c.ocr.UseEngine(ocr.EngineTesseract)
		to = FastOCR
	}
	c.mode.Store(int32(to))
	log.Printf("Mode: %s -> %s", from, to)
	if c.onChange != nil {
		c.onChange(to)
	}
	return to
}

func (c *Coordinator) ensureVision() VisionTranslator {
	if c.vision == nil && c.newVision != nil {
		log.Printf("Mode: loading vision translator")
		c.vision = c.newVision()
	}
	return c.vision
}

// Translate runs img through the pipeline of the current mode. In vision mode
// a failed or empty vision answer falls back to the OCR pipeline for this
// call only; the persisted mode is not changed. ErrNoTextDetected is returned
// when OCR finds fewer than two characters.
func (c *Coordinator) Translate(ctx context.Context, img image.Image) (Outcome, error) {
	return c.translate(ctx, img, nil)
}

// TranslateStream is Translate with incremental output. Text translators
// without streaming support, and vision answers, arrive as a single chunk.
func (c *Coordinator) TranslateStream(ctx context.Context, img image.Image, onChunk func(string)) (Outcome, error) {
	return c.translate(ctx, img, onChunk)
}

func (c *Coordinator) translate(ctx context.Context, img image.Image, onChunk func(string)) (Outcome, error) {
	current := c.Current()
	if current == Vision {
		if out, ok := c.translateVision(ctx, img); ok {
			if onChunk != nil {
				onChunk(out.TranslatedText)
			}
			return out, nil
		}
		log.Printf("Mode: vision failed, falling back to %s for this capture", fromEngine(c.ocr.Engine()))
	}

	out, err := c.translateOCR(ctx, img, onChunk)
	out.FellBack = current == Vision
	return out, err
}

func (c *Coordinator) translateVision(ctx context.Context, img image.Image) (Outcome, bool) {
	v := c.ensureVision()
	if v == nil {
		return Outcome{}, false
	}
	translated, err := v.TranslateImage(ctx, img, c.target)
	if err != nil {
		log.Printf("Mode: %s", llm.RenderVision(err))
		return Outcome{}, false
	}
	if strings.TrimSpace(translated) == "" {
		return Outcome{}, false
	}
	return Outcome{OriginalText: VisionPlaceholder, TranslatedText: translated, Mode: Vision}, true
}

func (c *Coordinator) translateOCR(ctx context.Context, img image.Image, onChunk func(string)) (Outcome, error) {
	used := fromEngine(c.ocr.Engine())
	ext := c.ocr.ExtractText(ctx, img)
	if utf8.RuneCountInString(strings.TrimSpace(ext.Text)) < 2 {
		return Outcome{Mode: used}, ErrNoTextDetected
	}

	out := Outcome{OriginalText: ext.Text, Mode: used, Detected: ext.Detected}
	var translated string
	var err error
	if st, ok := c.text.(StreamingTextTranslator); ok && onChunk != nil {
		translated, err = st.TranslateStream(ctx, ext.Text, ext.Detected, onChunk)
	} else {
		translated, err = c.text.Translate(ctx, ext.Text, ext.Detected)
		if err == nil && onChunk != nil {
			onChunk(translated)
		}
	}
	if err != nil {
		out.Err = err
		translated = llm.Render(err)
	}
	out.TranslatedText = translated
	return out, nil
}
