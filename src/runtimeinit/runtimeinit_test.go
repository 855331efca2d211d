package runtimeinit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"screen-translate/src/config"
	"screen-translate/src/lang"
	"screen-translate/src/mode"
	"screen-translate/src/ocr"
)

type fakeBackend struct{ engine ocr.Engine }

func (f *fakeBackend) Engine() ocr.Engine { return f.engine }

func (f *fakeBackend) Extract(context.Context, []byte, []lang.Code) (string, error) {
	return "", nil
}

func (f *fakeBackend) Close() error { return nil }

func fakeEngines(opts *Options) {
	opts.NewFast = func() (ocr.Backend, error) { return &fakeBackend{engine: ocr.EngineTesseract}, nil }
	opts.NewRich = func() (ocr.Backend, error) { return &fakeBackend{engine: ocr.EngineEasyOCR}, nil }
}

// newOllama serves /api/tags with the given model names.
func newOllama(t *testing.T, models ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Models []map[string]any `json:"models"`
		}
		for _, m := range models {
			body.Models = append(body.Models, map[string]any{"name": m})
		}
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func configOptions(path string) config.LoadOptions {
	return config.LoadOptions{ConfigPathOverride: path}
}

func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OLLAMA_URL", "OLLAMA_MODEL", "VISION_MODEL", "TRANSLATION_MODE", "TARGET_LANG", "SOURCE_LANG", "ENABLE_FILE_LOGGING"} {
		t.Setenv(k, "")
	}
}

func TestBootstrapVisionMode(t *testing.T) {
	isolate(t)
	srv := newOllama(t, "gemma2:2b", "gemma3:4b")
	opts := Options{LoadOptions: configOptions(writeConfig(t, "translation_mode: vision\nollama_url: "+srv.URL+"\n"))}
	fakeEngines(&opts)

	rt, err := Bootstrap(opts)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer rt.Close()
	if rt.Modes.Current() != mode.Vision {
		t.Errorf("Expected vision mode, got %s", rt.Modes.Current())
	}
}

func TestBootstrapMissingVisionModelFallsBack(t *testing.T) {
	isolate(t)
	srv := newOllama(t, "gemma2:2b")
	opts := Options{LoadOptions: configOptions(writeConfig(t, "translation_mode: vision\nollama_url: "+srv.URL+"\n"))}
	fakeEngines(&opts)

	rt, err := Bootstrap(opts)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer rt.Close()
	if rt.Modes.Current() != mode.FastOCR {
		t.Errorf("Expected fast-ocr after the vision check failed, got %s", rt.Modes.Current())
	}
	if rt.Config.TranslationMode != "vision" {
		t.Errorf("Expected configuration untouched, got %q", rt.Config.TranslationMode)
	}
}

func TestBootstrapTextServiceUnreachable(t *testing.T) {
	isolate(t)
	srv := newOllama(t)
	url := srv.URL
	srv.Close()
	opts := Options{LoadOptions: configOptions(writeConfig(t, "ollama_url: "+url+"\n"))}
	fakeEngines(&opts)

	if _, err := Bootstrap(opts); err == nil {
		t.Error("Expected Bootstrap to fail when Ollama is unreachable")
	}
}

func TestBootstrapSkipCheckAndHistory(t *testing.T) {
	isolate(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	var logging *bool
	opts := Options{
		LoadOptions:           configOptions(writeConfig(t, "translation_mode: easyocr\nhistory_path: "+dbPath+"\nenable_file_logging: true\n")),
		SkipConnectivityCheck: true,
		OpenHistory:           true,
		SetupLogging:          func(enabled bool) { logging = &enabled },
	}
	fakeEngines(&opts)

	rt, err := Bootstrap(opts)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer rt.Close()

	if logging == nil || !*logging {
		t.Error("Expected SetupLogging to be called with true")
	}
	if rt.Modes.Current() != mode.RichOCR {
		t.Errorf("Expected rich-ocr, got %s", rt.Modes.Current())
	}
	if rt.OCR.Engine() != ocr.EngineEasyOCR {
		t.Errorf("Expected easyocr engine, got %s", rt.OCR.Engine())
	}
	if rt.History == nil || rt.History.Path() != dbPath {
		t.Fatalf("Expected history at %s", dbPath)
	}
	if rt.Recorder() == nil {
		t.Error("Expected a recorder when history is open")
	}
}

func TestRecorderNilWithoutHistory(t *testing.T) {
	rt := &Runtime{}
	if rt.Recorder() != nil {
		t.Error("Expected a nil recorder without history")
	}
}
