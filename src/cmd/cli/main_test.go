package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"screen-translate/src/history"
	"screen-translate/src/lang"
	"screen-translate/src/langdetect"
	"screen-translate/src/ocr"
	"screen-translate/src/runtimeinit"
)

type fakeBackend struct{ text string }

func (f *fakeBackend) Engine() ocr.Engine { return ocr.EngineTesseract }

func (f *fakeBackend) Extract(context.Context, []byte, []lang.Code) (string, error) {
	return f.text, nil
}

func (f *fakeBackend) Close() error { return nil }

// withFakeOCR makes every bootstrap use an OCR engine that reads text.
func withFakeOCR(t *testing.T, text string) {
	t.Helper()
	saved := bootstrap
	bootstrap = func(opts runtimeinit.Options) (*runtimeinit.Runtime, error) {
		opts.NewFast = func() (ocr.Backend, error) { return &fakeBackend{text: text}, nil }
		return runtimeinit.Bootstrap(opts)
	}
	t.Cleanup(func() { bootstrap = saved })
}

// newOllama answers generate requests with the given chunks.
func newOllama(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			json.NewEncoder(w).Encode(map[string]any{"models": []map[string]any{{"name": "gemma2:2b"}}})
		case "/api/generate":
			var req struct {
				Stream bool `json:"stream"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if !req.Stream {
				json.NewEncoder(w).Encode(map[string]any{"response": strings.Join(chunks, ""), "done": true})
				return
			}
			enc := json.NewEncoder(w)
			for _, c := range chunks {
				enc.Encode(map[string]any{"response": c, "done": false})
			}
			enc.Encode(map[string]any{"response": "", "done": true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OLLAMA_URL", "OLLAMA_MODEL", "VISION_MODEL", "TRANSLATION_MODE", "TARGET_LANG", "SOURCE_LANG", "ENABLE_FILE_LOGGING"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, srv *httptest.Server) (configPath, historyPath string) {
	t.Helper()
	dir := t.TempDir()
	historyPath = filepath.Join(dir, "history.db")
	configPath = filepath.Join(dir, "config.yaml")
	content := "ollama_url: " + srv.URL + "\nhistory_path: " + historyPath + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return configPath, historyPath
}

func writePNG(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "capture.png")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 40, 20))); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"cli", "translate", "-file", "a.png", "-json"}, []string{"cli", "translate", "--file", "a.png", "--json"}},
		{[]string{"cli", "translate", "-file=a.png", "-mode=vision"}, []string{"cli", "translate", "--file=a.png", "--mode=vision"}},
		{[]string{"cli", "translate", "--file", "-"}, []string{"cli", "translate", "--file", "-"}},
		{[]string{"cli", "-v", "check"}, []string{"cli", "-v", "check"}},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := normalizeLegacyArgs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("normalizeLegacyArgs(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestDetectCommand(t *testing.T) {
	var out bytes.Buffer
	if err := runWithArgs([]string{"cli", "detect", "--text", "안녕하세요 여러분"}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	var advice langdetect.Advice
	if err := json.Unmarshal(out.Bytes(), &advice); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out.String(), err)
	}
	if len(advice.Languages) == 0 || advice.Languages[0] != lang.Korean {
		t.Errorf("Expected [ko], got %v", advice.Languages)
	}
	if advice.RecommendedMode != langdetect.EngineRich {
		t.Errorf("Expected easyocr recommendation, got %q", advice.RecommendedMode)
	}
}

func TestDetectCommandReadsStdin(t *testing.T) {
	var out bytes.Buffer
	if err := runWithArgs([]string{"cli", "detect"}, strings.NewReader("The quick brown fox"), &out); err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(out.String(), `"en"`) {
		t.Errorf("Expected en in output, got %s", out.String())
	}
}

func TestReadImage(t *testing.T) {
	if _, err := readImage("-", strings.NewReader("")); err == nil {
		t.Error("Expected error for empty input")
	}
	if _, err := readImage("-", strings.NewReader("GIF89a not a png")); err == nil {
		t.Error("Expected error for non-PNG input")
	}
	if _, err := readImage(filepath.Join(t.TempDir(), "missing.png"), nil); err == nil {
		t.Error("Expected error for a missing file")
	}

	data, err := os.ReadFile(writePNG(t))
	if err != nil {
		t.Fatal(err)
	}
	img, err := readImage("-", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readImage failed: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Errorf("Expected 40x20, got %v", img.Bounds())
	}
}

func TestTranslateJSONAndHistory(t *testing.T) {
	isolate(t)
	withFakeOCR(t, "Hello world")
	srv := newOllama(t, "Bonjour le monde")
	configPath, _ := writeConfig(t, srv)

	var out bytes.Buffer
	args := []string{"cli", "translate", "--config", configPath, "--file", writePNG(t), "--json"}
	if err := runWithArgs(args, nil, &out); err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	var res TranslateResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out.String(), err)
	}
	if res.Original != "Hello world" || res.Translated != "Bonjour le monde" {
		t.Errorf("Unexpected result %+v", res)
	}
	if res.Mode != "fast-ocr" || res.SessionID == "" {
		t.Errorf("Expected fast-ocr with a session id, got %+v", res)
	}

	out.Reset()
	if err := runWithArgs([]string{"cli", "history", "--config", configPath, "--json"}, nil, &out); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var entries []history.Entry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out.String(), err)
	}
	if len(entries) != 1 || entries[0].SessionID != res.SessionID {
		t.Fatalf("Expected the translation in history, got %+v", entries)
	}
}

func TestTranslateStream(t *testing.T) {
	isolate(t)
	withFakeOCR(t, "Hello world")
	srv := newOllama(t, "Bonjour", " le", " monde")
	configPath, _ := writeConfig(t, srv)

	var out bytes.Buffer
	args := []string{"cli", "translate", "--config", configPath, "--file", writePNG(t), "--stream"}
	if err := runWithArgs(args, nil, &out); err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if out.String() != "Bonjour le monde\n" {
		t.Errorf("Expected streamed text, got %q", out.String())
	}
}

func TestTranslateStreamEndsLineOnFailure(t *testing.T) {
	isolate(t)
	withFakeOCR(t, "Hello world")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(map[string]any{"response": "Bonjour", "done": false})
		enc.Encode(map[string]any{"error": "model crashed"})
	}))
	t.Cleanup(srv.Close)
	configPath, _ := writeConfig(t, srv)

	var out bytes.Buffer
	args := []string{"cli", "translate", "--config", configPath, "--file", writePNG(t), "--stream"}
	if err := runWithArgs(args, nil, &out); err == nil {
		t.Fatal("Expected error when the stream fails")
	}
	if out.String() != "Bonjour\n" {
		t.Errorf("Expected partial output ended by a newline, got %q", out.String())
	}
}

func TestTranslateNoText(t *testing.T) {
	isolate(t)
	withFakeOCR(t, "")
	srv := newOllama(t, "unused")
	configPath, historyPath := writeConfig(t, srv)

	args := []string{"cli", "translate", "--config", configPath, "--file", writePNG(t)}
	err := runWithArgs(args, nil, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "no text detected") {
		t.Fatalf("Expected no text error, got %v", err)
	}

	store, err := history.Open(historyPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	entries, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected nothing recorded, got %d entries", len(entries))
	}
}

func TestCheckUnreachable(t *testing.T) {
	isolate(t)
	srv := newOllama(t)
	configPath, _ := writeConfig(t, srv)
	srv.Close()

	var out bytes.Buffer
	err := runWithArgs([]string{"cli", "check", "--config", configPath}, nil, &out)
	if err == nil {
		t.Fatal("Expected error when Ollama is down")
	}
	if !strings.Contains(out.String(), "not reachable") {
		t.Errorf("Expected not reachable in output, got %q", out.String())
	}
}
