package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"screen-translate/src/lang"
)

// DefaultEasyOCRCommand is the console script installed by the easyocr package.
const DefaultEasyOCRCommand = "easyocr"

// easyOCRBackend drives the easyocr command line tool. Its languages are
// always passed through lang.FixCompatibility first.
type easyOCRBackend struct {
	path string
	gpu  bool
}

// NewEasyOCR resolves the easyocr command. A missing command is reported as
// an error so the caller can degrade to the fast engine.
func NewEasyOCR(command string, gpu bool) (Backend, error) {
	if command == "" {
		command = DefaultEasyOCRCommand
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("easyocr not available: %w", err)
	}
	log.Printf("OCR: easyocr found at %s", path)
	return &easyOCRBackend{path: path, gpu: gpu}, nil
}

func (e *easyOCRBackend) Engine() Engine { return EngineEasyOCR }

func (e *easyOCRBackend) Extract(ctx context.Context, png []byte, languages []lang.Code) (string, error) {
	f, err := os.CreateTemp("", "screen-translate-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(png); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp image: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.path, easyOCRArgs(f.Name(), languages, e.gpu)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("easyocr failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseEasyOCROutput(stdout.String()), nil
}

func (e *easyOCRBackend) Close() error { return nil }

func easyOCRArgs(imagePath string, languages []lang.Code, gpu bool) []string {
	args := []string{"-l"}
	fixed := lang.FixCompatibility(languages)
	if len(fixed) == 0 {
		fixed = []lang.Code{lang.Default}
	}
	seen := make(map[string]bool, len(fixed))
	for _, c := range fixed {
		name := lang.EasyOCR(c)
		if seen[name] {
			continue
		}
		seen[name] = true
		args = append(args, name)
	}
	args = append(args, "-f", imagePath, "--detail", "0")
	// the easyocr cli parses --gpu with bool(), so only an empty value is false
	if gpu {
		return append(args, "--gpu", "True")
	}
	return append(args, "--gpu=")
}

// parseEasyOCROutput joins the one-result-per-line output, skipping blank
// lines and the warnings easyocr prints while loading models.
func parseEasyOCROutput(out string) string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "Using CPU") || strings.HasPrefix(line, "Downloading") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
