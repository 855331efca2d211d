package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"screen-translate/src/lang"
)

// tesseractBackend creates one gosseract client per call; clients are cheap
// compared to the recognition itself and are not safe to share.
type tesseractBackend struct {
	clientFactory func() *gosseract.Client
	psm           gosseract.PageSegMode
}

// NewTesseract returns the fast backend. psm <= 0 selects single-block mode.
func NewTesseract(psm int) Backend {
	mode := gosseract.PSM_SINGLE_BLOCK
	if psm > 0 {
		mode = gosseract.PageSegMode(psm)
	}
	return &tesseractBackend{clientFactory: gosseract.NewClient, psm: mode}
}

func (t *tesseractBackend) Engine() Engine { return EngineTesseract }

func (t *tesseractBackend) Extract(ctx context.Context, png []byte, languages []lang.Code) (string, error) {
	return runWithContext(ctx, func() (string, error) {
		c := t.clientFactory()
		defer c.Close()

		if err := c.SetLanguage(tesseractLanguages(languages)...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
		if err := c.SetPageSegMode(t.psm); err != nil {
			return "", fmt.Errorf("set page segmentation: %w", err)
		}
		if err := c.SetImageFromBytes(png); err != nil {
			return "", fmt.Errorf("set image: %w", err)
		}
		text, err := c.Text()
		if err != nil {
			return "", fmt.Errorf("recognize text: %w", err)
		}
		return text, nil
	})
}

func (t *tesseractBackend) Close() error { return nil }

func tesseractLanguages(codes []lang.Code) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		name := lang.Tesseract(c)
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		out = append(out, lang.Tesseract(lang.Default))
	}
	return out
}
