package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"log"
	"time"

	"screen-translate/src/lang"
)

const (
	DefaultVisionModel   = "gemma3:4b"
	DefaultVisionTimeout = 60 * time.Second
)

// ModelInfo describes an installed model.
type ModelInfo struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Vision extracts and translates text straight from an image with a
// multimodal model.
type Vision struct {
	client *Client
	model  string
}

// NewVision returns a vision translator. Empty values select the defaults.
func NewVision(url, model string, timeout time.Duration) *Vision {
	if model == "" {
		model = DefaultVisionModel
	}
	if timeout <= 0 {
		timeout = DefaultVisionTimeout
	}
	return &Vision{client: NewClient(url, timeout), model: model}
}

func (v *Vision) Model() string { return v.model }

// TestConnection reports whether the server answers and has the vision model.
func (v *Vision) TestConnection(ctx context.Context) bool {
	models, err := v.client.Models(ctx)
	if err != nil {
		log.Printf("Vision: Ollama not reachable: %v", err)
		return false
	}
	if len(models) == 0 {
		log.Printf("Vision: no Ollama models installed")
		return false
	}
	if _, ok := FindModel(models, v.model); !ok {
		log.Printf("Vision: model %q not found", v.model)
		return false
	}
	log.Printf("Vision: model %q found", v.model)
	return true
}

// ModelInfo returns details of the configured model when it is installed.
func (v *Vision) ModelInfo(ctx context.Context) (ModelInfo, bool) {
	models, err := v.client.Models(ctx)
	if err != nil {
		log.Printf("Vision: could not list models: %v", err)
		return ModelInfo{}, false
	}
	m, ok := FindModel(models, v.model)
	if !ok {
		return ModelInfo{}, false
	}
	return ModelInfo{Name: m.Name, Size: m.Size, Modified: m.ModifiedAt}, true
}

// VisionPrompt builds the extract-and-translate instruction.
func VisionPrompt(target lang.Code) string {
	name := lang.Name(target)
	return fmt.Sprintf("Extract all visible text from this image and translate it to %s. Only output the %s translation, no explanations, no original text.", name, name)
}

// TranslateImage sends img to the vision model. An empty answer fails with
// KindEmpty.
func (v *Vision) TranslateImage(ctx context.Context, img image.Image, target lang.Code) (string, error) {
	if img == nil {
		return "", &Error{Kind: KindEmpty}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", &Error{Kind: KindEncode, Err: err}
	}

	log.Printf("Vision: sending %d byte image to %q, target %s", buf.Len(), v.model, lang.Name(target))
	out, err := v.client.Generate(ctx, GenerateRequest{
		Model:  v.model,
		Prompt: VisionPrompt(target),
		Images: []string{base64.StdEncoding.EncodeToString(buf.Bytes())},
	})
	if err != nil {
		log.Printf("Vision: %s", RenderVision(err))
		return "", err
	}
	log.Printf("Vision: received %d chars", len(out))
	return out, nil
}
