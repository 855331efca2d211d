package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"screen-translate/src/lang"
	"screen-translate/src/ocr"
)

const (
	ConfigPathEnvVar = "SCREEN_TRANSLATE_CONFIG"
	EnvFileEnvVar    = "SCREEN_TRANSLATE_ENV"

	ModeTesseract = "tesseract"
	ModeEasyOCR   = "easyocr"
	ModeVision    = "vision"

	DefaultOllamaURL        = "http://localhost:11434"
	DefaultOllamaModel      = "gemma2:2b"
	DefaultVisionModel      = "gemma3:4b"
	DefaultHotkey           = "ctrl+shift+t"
	DefaultToggleModeHotkey = "ctrl+shift+m"
	DefaultOverlayTimeout   = 60
	DefaultTesseractPSM     = 6
)

var configFileNames = []string{"config.yaml", "config.yml", "config.json"}

type LoadOptions struct {
	ConfigPathOverride string
	ModeOverride       string
}

type Config struct {
	TranslationMode    string
	VisionModel        string
	OllamaModel        string
	OllamaURL          string
	SourceLang         lang.Code
	TargetLang         lang.Code
	OCRLanguages       []lang.Code
	AutoDetectLanguage bool
	Hotkey             string
	ToggleModeHotkey   string
	OverlayTimeoutSec  int
	ProbeLanguages     []lang.Code
	CopyToClipboard    bool
	HistoryPath        string
	EnableFileLogging  bool
	TesseractPSM       int
	EasyOCRCommand     string
	EasyOCRGPU         bool
	// Path is the configuration document that was read, empty when none.
	Path string
}

// document mirrors the configuration file. Pointers tell a missing key from
// an explicit zero value.
type document struct {
	TranslationMode    string   `yaml:"translation_mode"`
	VisionModel        string   `yaml:"vision_model"`
	OllamaModel        string   `yaml:"ollama_model"`
	OllamaURL          string   `yaml:"ollama_url"`
	SourceLang         string   `yaml:"source_lang"`
	TargetLang         string   `yaml:"target_lang"`
	OCRLanguages       []string `yaml:"ocr_languages"`
	AutoDetectLanguage *bool    `yaml:"auto_detect_language"`
	Hotkey             string   `yaml:"hotkey"`
	ToggleModeHotkey   string   `yaml:"toggle_mode_hotkey"`
	OverlayTimeout     *int     `yaml:"overlay_timeout"`
	ProbeLanguages     []string `yaml:"probe_languages"`
	CopyToClipboard    *bool    `yaml:"copy_to_clipboard"`
	HistoryPath        string   `yaml:"history_path"`
	EnableFileLogging  *bool    `yaml:"enable_file_logging"`
	TesseractPSM       *int     `yaml:"tesseract_psm"`
	EasyOCRCommand     string   `yaml:"easyocr_command"`
	EasyOCRGPU         *bool    `yaml:"easyocr_gpu"`
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in increasing priority:
	// 1) defaults
	// 2) config.yaml / config.json (or SCREEN_TRANSLATE_CONFIG)
	// 3) environment, including a .env next to the executable
	// 4) LoadOptions
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := defaults()

	path, err := resolveConfigPath(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		doc, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		cfg.apply(doc)
		cfg.Path = path
	}

	cfg.applyEnv()

	if m := strings.TrimSpace(opts.ModeOverride); m != "" {
		cfg.TranslationMode = m
	}
	cfg.normalize()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		TranslationMode:    ModeTesseract,
		VisionModel:        DefaultVisionModel,
		OllamaModel:        DefaultOllamaModel,
		OllamaURL:          DefaultOllamaURL,
		SourceLang:         lang.English,
		TargetLang:         lang.French,
		OCRLanguages:       []lang.Code{lang.English},
		AutoDetectLanguage: true,
		Hotkey:             DefaultHotkey,
		ToggleModeHotkey:   DefaultToggleModeHotkey,
		OverlayTimeoutSec:  DefaultOverlayTimeout,
		ProbeLanguages:     append([]lang.Code(nil), ocr.DefaultProbeLanguages...),
		TesseractPSM:       DefaultTesseractPSM,
		EasyOCRCommand:     "easyocr",
	}
}

func readDocument(path string) (document, error) {
	var doc document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return doc, nil
}

func (c *Config) apply(d document) {
	setString(&c.TranslationMode, d.TranslationMode)
	setString(&c.VisionModel, d.VisionModel)
	setString(&c.OllamaModel, d.OllamaModel)
	setString(&c.OllamaURL, d.OllamaURL)
	if d.SourceLang != "" {
		c.SourceLang = lang.Parse(d.SourceLang)
	}
	if d.TargetLang != "" {
		c.TargetLang = lang.Parse(d.TargetLang)
	}
	if l := lang.ParseList(d.OCRLanguages); len(l) > 0 {
		c.OCRLanguages = l
	}
	if d.AutoDetectLanguage != nil {
		c.AutoDetectLanguage = *d.AutoDetectLanguage
	}
	setString(&c.Hotkey, d.Hotkey)
	setString(&c.ToggleModeHotkey, d.ToggleModeHotkey)
	if d.OverlayTimeout != nil {
		c.OverlayTimeoutSec = *d.OverlayTimeout
	}
	if l := lang.ParseList(d.ProbeLanguages); len(l) > 0 {
		c.ProbeLanguages = l
	}
	if d.CopyToClipboard != nil {
		c.CopyToClipboard = *d.CopyToClipboard
	}
	setString(&c.HistoryPath, d.HistoryPath)
	if d.EnableFileLogging != nil {
		c.EnableFileLogging = *d.EnableFileLogging
	}
	if d.TesseractPSM != nil {
		c.TesseractPSM = *d.TesseractPSM
	}
	setString(&c.EasyOCRCommand, d.EasyOCRCommand)
	if d.EasyOCRGPU != nil {
		c.EasyOCRGPU = *d.EasyOCRGPU
	}
}

func (c *Config) applyEnv() {
	setString(&c.OllamaURL, os.Getenv("OLLAMA_URL"))
	setString(&c.OllamaModel, os.Getenv("OLLAMA_MODEL"))
	setString(&c.VisionModel, os.Getenv("VISION_MODEL"))
	setString(&c.TranslationMode, os.Getenv("TRANSLATION_MODE"))
	if v := os.Getenv("SOURCE_LANG"); v != "" {
		c.SourceLang = lang.Parse(v)
	}
	if v := os.Getenv("TARGET_LANG"); v != "" {
		c.TargetLang = lang.Parse(v)
	}
	setString(&c.Hotkey, os.Getenv("HOTKEY"))
	setString(&c.ToggleModeHotkey, os.Getenv("TOGGLE_MODE_HOTKEY"))
	if v := os.Getenv("ENABLE_FILE_LOGGING"); v != "" {
		c.EnableFileLogging = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("OVERLAY_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OverlayTimeoutSec = n
		}
	}
}

func (c *Config) normalize() {
	c.TranslationMode = NormalizeMode(c.TranslationMode)
	if c.OverlayTimeoutSec <= 0 {
		c.OverlayTimeoutSec = DefaultOverlayTimeout
	}
	if c.SourceLang == "" {
		c.SourceLang = lang.English
	}
	if c.TargetLang == "" {
		c.TargetLang = lang.French
	}
	c.OllamaURL = strings.TrimRight(c.OllamaURL, "/")
}

// NormalizeMode maps translation_mode spellings onto the three modes.
// Unknown values fall back to tesseract.
func NormalizeMode(m string) string {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case ModeTesseract, "ocr", "fast", "fast-ocr":
		return ModeTesseract
	case ModeEasyOCR, "rich", "rich-ocr":
		return ModeEasyOCR
	case ModeVision:
		return ModeVision
	default:
		log.Printf("Config: unknown translation_mode %q, using %s", m, ModeTesseract)
		return ModeTesseract
	}
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	explicit := strings.TrimSpace(opts.ConfigPathOverride)
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv(ConfigPathEnvVar))
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	var dirs []string
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	for _, dir := range dirs {
		for _, name := range configFileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}
	return "", nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
