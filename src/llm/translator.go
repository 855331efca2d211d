package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"screen-translate/src/lang"
	"screen-translate/src/logutil"
)

const (
	DefaultTextModel   = "gemma2:2b"
	DefaultTextTimeout = 30 * time.Second
)

// TextConfig configures a Translator.
type TextConfig struct {
	URL     string
	Model   string
	Source  lang.Code
	Target  lang.Code
	Timeout time.Duration
}

// Translator translates extracted text with a generation model.
type Translator struct {
	client *Client
	model  string
	source lang.Code
	target lang.Code
}

// NewTranslator applies defaults for every empty field of cfg.
func NewTranslator(cfg TextConfig) *Translator {
	if cfg.Model == "" {
		cfg.Model = DefaultTextModel
	}
	if cfg.Source == "" {
		cfg.Source = lang.English
	}
	if cfg.Target == "" {
		cfg.Target = lang.French
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTextTimeout
	}
	return &Translator{
		client: NewClient(cfg.URL, cfg.Timeout),
		model:  cfg.Model,
		source: cfg.Source,
		target: cfg.Target,
	}
}

func (t *Translator) Model() string     { return t.model }
func (t *Translator) Target() lang.Code { return t.target }

// TestConnection reports whether the server answers. A missing model is
// only a warning: the server may pull it on first use.
func (t *Translator) TestConnection(ctx context.Context) bool {
	models, err := t.client.Models(ctx)
	if err != nil {
		log.Printf("Translator: Ollama not reachable at %s: %v", logutil.RedactURL(t.client.BaseURL()), err)
		return false
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	log.Printf("Translator: Ollama OK, models: %s", strings.Join(names, ", "))
	if _, ok := FindModel(models, t.model); ok {
		log.Printf("Translator: model %q found", t.model)
	} else {
		log.Printf("Translator: WARNING model %q not found, but Ollama is reachable", t.model)
	}
	return true
}

// Prompt builds the instruction sent for one translation.
func (t *Translator) Prompt(text string, source lang.Code) string {
	return fmt.Sprintf("Translate the following %s text to %s. Output ONLY the translation, no explanations:\n\n%s",
		lang.Name(source), lang.Name(t.target), text)
}

// Translate translates text from source, or from the configured source
// language when source is empty. Whitespace-only input fails with
// KindNothingToTranslate without a network call.
func (t *Translator) Translate(ctx context.Context, text string, source lang.Code) (string, error) {
	req, err := t.request(text, source)
	if err != nil {
		return "", err
	}
	start := time.Now()
	out, err := t.client.Generate(ctx, req)
	if err != nil {
		log.Printf("Translator: translation failed: %v", err)
		return "", err
	}
	log.Printf("Translator: done in %.2fs: %s", time.Since(start).Seconds(), logutil.Preview(out, 100))
	return out, nil
}

// TranslateStream is Translate with incremental output.
func (t *Translator) TranslateStream(ctx context.Context, text string, source lang.Code, onChunk func(string)) (string, error) {
	req, err := t.request(text, source)
	if err != nil {
		return "", err
	}
	out, err := t.client.GenerateStream(ctx, req, onChunk)
	if err != nil {
		log.Printf("Translator: streaming translation failed: %v", err)
		return "", err
	}
	return out, nil
}

func (t *Translator) request(text string, source lang.Code) (GenerateRequest, error) {
	if strings.TrimSpace(text) == "" {
		return GenerateRequest{}, &Error{Kind: KindNothingToTranslate}
	}
	if source == "" {
		source = t.source
	}
	log.Printf("Translator: translating %s -> %s: %s", lang.Name(source), lang.Name(t.target), logutil.Preview(text, 50))
	return GenerateRequest{
		Model:   t.model,
		Prompt:  t.Prompt(text, source),
		Options: &GenerateOptions{Temperature: 0.3, TopP: 0.9},
	}, nil
}
