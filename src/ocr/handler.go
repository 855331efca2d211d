package ocr

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"screen-translate/src/lang"
	"screen-translate/src/langdetect"
	"screen-translate/src/logutil"
)

// Probe text must be longer than this many runes before detection runs.
const minProbeRunes = 3

// Extraction is the result of one ExtractText call. Detected is empty when
// no language was detected.
type Extraction struct {
	Text     string
	Detected lang.Code
}

// Options configures a Handler. Nil constructors select the real engines.
type Options struct {
	Config         Config
	NewFast        func() (Backend, error)
	NewRich        func() (Backend, error)
	TesseractPSM   int
	EasyOCRCommand string
	EasyOCRGPU     bool
	// SaveDebugImages writes every capture handed to an engine to the
	// working directory.
	SaveDebugImages bool
}

// Handler owns the OCR configuration and the lazily built backends. It is not
// safe for concurrent use; the session busy flag serializes callers.
type Handler struct {
	cfg       Config
	backends  map[Engine]Backend
	richErr   error
	newFast   func() (Backend, error)
	newRich   func() (Backend, error)
	saveDebug bool
}

// NewHandler builds a handler. Backends are constructed on first use.
func NewHandler(opts Options) *Handler {
	cfg := opts.Config.clone()
	if cfg.Engine == "" {
		cfg.Engine = EngineTesseract
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []lang.Code{lang.Default}
	}
	if len(cfg.ProbeLanguages) == 0 {
		cfg.ProbeLanguages = append([]lang.Code(nil), DefaultProbeLanguages...)
	}

	h := &Handler{
		cfg:       cfg,
		backends:  make(map[Engine]Backend),
		newFast:   opts.NewFast,
		newRich:   opts.NewRich,
		saveDebug: opts.SaveDebugImages || os.Getenv("OCR_DEBUG_SAVE_IMAGES") == "true",
	}
	if h.newFast == nil {
		psm := opts.TesseractPSM
		h.newFast = func() (Backend, error) { return NewTesseract(psm), nil }
	}
	if h.newRich == nil {
		cmd, gpu := opts.EasyOCRCommand, opts.EasyOCRGPU
		h.newRich = func() (Backend, error) { return NewEasyOCR(cmd, gpu) }
	}
	return h
}

// Engine reports the active engine.
func (h *Handler) Engine() Engine { return h.cfg.Engine }

// Languages returns a copy of the configured languages.
func (h *Handler) Languages() []lang.Code {
	return append([]lang.Code(nil), h.cfg.Languages...)
}

// Config returns a copy of the current configuration.
func (h *Handler) Config() Config { return h.cfg.clone() }

// UseEngine switches the active engine, building its backend if needed. A
// rich engine that cannot be built leaves the handler on the fast engine and
// returns a degraded Build.
func (h *Handler) UseEngine(e Engine) Build {
	b := h.build(e)
	h.cfg.Engine = b.Backend.Engine()
	return b
}

func (h *Handler) build(e Engine) Build {
	if e == EngineEasyOCR {
		if b, ok := h.backends[EngineEasyOCR]; ok {
			return Build{Backend: b}
		}
		if h.richErr == nil {
			b, err := h.newRich()
			if err == nil {
				h.backends[EngineEasyOCR] = b
				log.Printf("OCR: easyocr backend ready")
				return Build{Backend: b}
			}
			h.richErr = err
			log.Printf("OCR: easyocr unavailable, falling back to tesseract: %v", err)
		}
		return Build{Backend: h.fast(), Degraded: true, Reason: h.richErr}
	}
	return Build{Backend: h.fast()}
}

func (h *Handler) fast() Backend {
	if b, ok := h.backends[EngineTesseract]; ok {
		return b
	}
	b, err := h.newFast()
	if err != nil || b == nil {
		// The fast engine has no external prerequisites to probe; a failure
		// here surfaces on Extract instead.
		log.Printf("OCR: tesseract backend construction failed: %v", err)
		b = &failedBackend{err: fmt.Errorf("tesseract unavailable: %w", err)}
	}
	h.backends[EngineTesseract] = b
	return b
}

// ExtractText runs the detect-then-extract protocol on img. Every failure is
// logged and reported as an empty result.
func (h *Handler) ExtractText(ctx context.Context, img image.Image) (res Extraction) {
	if img == nil {
		return Extraction{}
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("OCR: panic during extraction: %v", r)
			res = Extraction{}
		}
	}()

	backend := h.UseEngine(h.cfg.Engine).Backend

	full, err := encodePNG(prepareFull(img))
	if err != nil {
		log.Printf("OCR: %v", err)
		return Extraction{}
	}
	h.debugSave("full", full)

	var detected []lang.Code
	if h.cfg.AutoDetect && backend.Engine() == EngineTesseract {
		detected = h.probe(ctx, backend, img)
		if len(detected) > 0 && !lang.Equal(detected, h.cfg.Languages) {
			log.Printf("OCR: detected %v, re-running with detected languages (configured %v)", detected, h.cfg.Languages)
			text, err := h.extractWith(ctx, backend, full, detected)
			if err != nil {
				log.Printf("OCR: extraction failed: %v", err)
				return Extraction{}
			}
			return Extraction{Text: text, Detected: detected[0]}
		}
	}

	text, err := h.extract(ctx, backend, full)
	if err != nil {
		log.Printf("OCR: extraction failed: %v", err)
		return Extraction{}
	}
	res = Extraction{Text: text}
	if h.cfg.AutoDetect {
		if len(detected) == 0 && text != "" {
			detected = langdetect.DetectLanguage(text)
		}
		if len(detected) > 0 {
			res.Detected = detected[0]
		}
	}
	log.Printf("OCR: %s extracted %d chars: %s", backend.Engine(), utf8.RuneCountInString(text), logutil.Preview(text, 60))
	return res
}

// probe runs the low-cost pass with the probe languages and classifies the
// sample. It returns nil when the sample is too short or the pass failed.
func (h *Handler) probe(ctx context.Context, backend Backend, img image.Image) []lang.Code {
	data, err := encodePNG(prepareProbe(img))
	if err != nil {
		log.Printf("OCR: probe encode failed: %v", err)
		return nil
	}
	sample, err := backend.Extract(ctx, data, h.probeLanguages())
	if err != nil {
		log.Printf("OCR: quick pass failed, continuing with configured languages: %v", err)
		return nil
	}
	sample = strings.TrimSpace(sample)
	if utf8.RuneCountInString(sample) <= minProbeRunes {
		return nil
	}
	return langdetect.DetectLanguage(sample)
}

func (h *Handler) probeLanguages() []lang.Code {
	out := append([]lang.Code(nil), h.cfg.Languages...)
	for _, c := range h.cfg.ProbeLanguages {
		found := false
		for _, have := range out {
			if have == c {
				found = true
				break
			}
		}
		if !found {
			out = append(out, c)
		}
	}
	return out
}

// extractWith substitutes languages for the duration of one extraction. The
// configured languages are restored on every exit path.
func (h *Handler) extractWith(ctx context.Context, backend Backend, data []byte, languages []lang.Code) (string, error) {
	saved := h.cfg.Languages
	h.cfg.Languages = append([]lang.Code(nil), languages...)
	defer func() { h.cfg.Languages = saved }()
	return h.extract(ctx, backend, data)
}

func (h *Handler) extract(ctx context.Context, backend Backend, data []byte) (string, error) {
	languages := h.cfg.Languages
	if backend.Engine() == EngineEasyOCR {
		languages = lang.FixCompatibility(languages)
	}
	text, err := backend.Extract(ctx, data, languages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (h *Handler) debugSave(kind string, data []byte) {
	if !h.saveDebug {
		return
	}
	name := fmt.Sprintf("debug_capture_%s_%d.png", kind, len(data))
	if err := os.WriteFile(name, data, 0600); err != nil {
		log.Printf("OCR: could not save debug image: %v", err)
		return
	}
	log.Printf("OCR: saved debug image %s", name)
}

// Close releases every built backend.
func (h *Handler) Close() error {
	var firstErr error
	for e, b := range h.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(h.backends, e)
	}
	return firstErr
}

type failedBackend struct{ err error }

func (f *failedBackend) Engine() Engine { return EngineTesseract }

func (f *failedBackend) Extract(context.Context, []byte, []lang.Code) (string, error) {
	return "", f.err
}

func (f *failedBackend) Close() error { return nil }
