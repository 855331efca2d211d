// Package runtimeinit loads configuration and builds the components shared by
// the resident and the CLI.
package runtimeinit

import (
	"context"
	"fmt"
	"log"
	"time"

	"screen-translate/src/config"
	"screen-translate/src/history"
	"screen-translate/src/llm"
	"screen-translate/src/logutil"
	"screen-translate/src/mode"
	"screen-translate/src/ocr"
	"screen-translate/src/session"
)

const connectivityTimeout = 10 * time.Second

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// SkipConnectivityCheck builds the runtime without probing Ollama.
	SkipConnectivityCheck bool
	// OpenHistory opens the history store at history_path or its default.
	OpenHistory  bool
	OnModeChange func(mode.Mode)
	// NewFast and NewRich replace the real OCR engines.
	NewFast func() (ocr.Backend, error)
	NewRich func() (ocr.Backend, error)
}

// Runtime is the application context. It owns every component it built.
type Runtime struct {
	Config  *config.Config
	OCR     *ocr.Handler
	Text    *llm.Translator
	Modes   *mode.Coordinator
	History *history.Store

	vision *llm.Vision
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	log.Printf("Config: mode=%s ollama=%s text=%s vision=%s %s->%s ocr=%v file=%q",
		cfg.TranslationMode, logutil.RedactURL(cfg.OllamaURL), cfg.OllamaModel, cfg.VisionModel,
		cfg.SourceLang, cfg.TargetLang, cfg.OCRLanguages, cfg.Path)

	rt := &Runtime{Config: cfg}
	rt.Text = llm.NewTranslator(llm.TextConfig{
		URL:    cfg.OllamaURL,
		Model:  cfg.OllamaModel,
		Source: cfg.SourceLang,
		Target: cfg.TargetLang,
	})

	initial, _ := mode.Parse(cfg.TranslationMode)
	if !opts.SkipConnectivityCheck {
		initial, err = rt.checkConnectivity(initial)
		if err != nil {
			return nil, err
		}
	}

	engine := ocr.EngineTesseract
	if cfg.TranslationMode == config.ModeEasyOCR {
		engine = ocr.EngineEasyOCR
	}
	rt.OCR = ocr.NewHandler(ocr.Options{
		Config: ocr.Config{
			Engine:         engine,
			Languages:      cfg.OCRLanguages,
			AutoDetect:     cfg.AutoDetectLanguage,
			ProbeLanguages: cfg.ProbeLanguages,
		},
		NewFast:        opts.NewFast,
		NewRich:        opts.NewRich,
		TesseractPSM:   cfg.TesseractPSM,
		EasyOCRCommand: cfg.EasyOCRCommand,
		EasyOCRGPU:     cfg.EasyOCRGPU,
	})

	rt.Modes = mode.New(mode.Options{
		Initial:   initial,
		Extractor: rt.OCR,
		Text:      rt.Text,
		NewVision: func() mode.VisionTranslator { return rt.Vision() },
		Target:    cfg.TargetLang,
		OnChange:  opts.OnModeChange,
	})

	if opts.OpenHistory {
		if err := rt.openHistory(); err != nil {
			// history is optional; the session runs without it
			log.Printf("History: disabled: %v", err)
		}
	}

	log.Printf("Runtime: ready in %s mode", rt.Modes.Current())
	return rt, nil
}

// checkConnectivity probes the vision model first, falling back to fast-ocr
// when it is missing, then requires the text service.
func (rt *Runtime) checkConnectivity(initial mode.Mode) (mode.Mode, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectivityTimeout)
	defer cancel()

	if initial == mode.Vision && !rt.Vision().TestConnection(ctx) {
		log.Printf("Runtime: vision model %q unavailable, falling back to fast-ocr", rt.Config.VisionModel)
		initial = mode.FastOCR
	}
	if !rt.Text.TestConnection(ctx) {
		return initial, fmt.Errorf("ollama not reachable at %s; start it with 'ollama serve'", logutil.RedactURL(rt.Config.OllamaURL))
	}
	return initial, nil
}

// Vision returns the vision translator, building it on first use.
func (rt *Runtime) Vision() *llm.Vision {
	if rt.vision == nil {
		rt.vision = llm.NewVision(rt.Config.OllamaURL, rt.Config.VisionModel, 0)
	}
	return rt.vision
}

func (rt *Runtime) openHistory() error {
	path := rt.Config.HistoryPath
	if path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	rt.History = store
	log.Printf("History: recording to %s", store.Path())
	return nil
}

// Recorder returns the history store, or nil when history is disabled. The
// nil interface keeps the session from recording.
func (rt *Runtime) Recorder() session.Recorder {
	if rt.History == nil {
		return nil
	}
	return rt.History
}

// Close releases the OCR backends and the history store.
func (rt *Runtime) Close() error {
	var firstErr error
	if rt.OCR != nil {
		firstErr = rt.OCR.Close()
	}
	if rt.History != nil {
		if err := rt.History.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
