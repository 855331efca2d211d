// Package ocr wraps the text-extraction engines behind one Backend interface
// and runs the detect-then-extract protocol used by the OCR translation modes.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"screen-translate/src/lang"
)

// Engine names a text-extraction backend.
type Engine string

const (
	// EngineTesseract is the fast engine, always available.
	EngineTesseract Engine = "tesseract"
	// EngineEasyOCR is the slower, more accurate engine for Asian scripts.
	EngineEasyOCR Engine = "easyocr"
)

// ParseEngine accepts the config spellings of both engines.
func ParseEngine(s string) (Engine, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tesseract", "fast", "fast-ocr":
		return EngineTesseract, true
	case "easyocr", "rich", "rich-ocr":
		return EngineEasyOCR, true
	default:
		return "", false
	}
}

// Backend extracts text from a PNG encoded image.
type Backend interface {
	Engine() Engine
	Extract(ctx context.Context, png []byte, languages []lang.Code) (string, error)
	Close() error
}

// Build is the tagged result of constructing a backend. When Degraded is set
// the requested engine could not be built and Backend is the fast engine.
type Build struct {
	Backend  Backend
	Degraded bool
	Reason   error
}

// Config is the OCR configuration held by a Handler.
type Config struct {
	Engine         Engine
	Languages      []lang.Code
	AutoDetect     bool
	ProbeLanguages []lang.Code
}

// DefaultProbeLanguages are loaded for the quick detection pass.
var DefaultProbeLanguages = []lang.Code{lang.English, lang.Japanese, lang.Korean, lang.ChineseSimplified, lang.Russian}

func (c Config) clone() Config {
	c.Languages = append([]lang.Code(nil), c.Languages...)
	c.ProbeLanguages = append([]lang.Code(nil), c.ProbeLanguages...)
	return c
}

// runWithContext runs fn in its own goroutine so callers can stop waiting on
// engines that ignore cancellation. The engine keeps running in the
// background when ctx expires.
func runWithContext(ctx context.Context, fn func() (string, error)) (string, error) {
	if _, ok := ctx.Deadline(); !ok && ctx.Done() == nil {
		return fn()
	}
	resCh := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := fn()
		resCh <- struct {
			text string
			err  error
		}{text, err}
	}()
	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("ocr interrupted: %w", ctx.Err())
	}
}
