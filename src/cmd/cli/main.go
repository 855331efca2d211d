package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"screen-translate/src/config"
	"screen-translate/src/history"
	"screen-translate/src/langdetect"
	"screen-translate/src/llm"
	"screen-translate/src/logutil"
	"screen-translate/src/mode"
	"screen-translate/src/runtimeinit"
	"screen-translate/src/screenshot"
	"screen-translate/src/session"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	configPath string
	verbose    bool

	filePath   string
	mode       string
	jsonOutput bool
	stream     bool

	text  string
	limit int
}

// bootstrap is replaced in tests.
var bootstrap = runtimeinit.Bootstrap

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout)
}

func runWithArgs(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"screen-translate-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-translate-cli",
		Short:         "Translate, inspect and check screen-translate without the resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Configure logging BEFORE any other operations.
			if opts.verbose {
				logutil.SetupConsole(cmd.ErrOrStderr())
			} else {
				log.SetOutput(io.Discard)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.yaml or config.json")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")

	cmd.AddCommand(newTranslateCmd(opts), newDetectCmd(opts), newHistoryCmd(opts), newCheckCmd(opts))
	return cmd
}

func newTranslateCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate the text in a PNG image",
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readImage(opts.filePath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return translateImage(cmd.Context(), *opts, img, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Mode override: tesseract, easyocr or vision")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Print the translation as it is generated")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDetectCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Print the detected languages and OCR advice for a text sample as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := opts.text
			if text == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
				text = string(data)
			}
			return writeJSON(cmd.OutOrStdout(), langdetect.OCRAdvice(text))
		},
	}
	cmd.Flags().StringVar(&opts.text, "text", "", "Text sample (stdin when empty)")
	return cmd
}

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(runtimeinit.Options{
				LoadOptions:           loadOptions(*opts),
				SkipConnectivityCheck: true,
				OpenHistory:           true,
			})
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.History == nil {
				return errors.New("history store unavailable")
			}
			entries, err := rt.History.Recent(cmd.Context(), opts.limit)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "Number of entries, 0 for all")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func newCheckCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that Ollama and the configured models are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(runtimeinit.Options{
				LoadOptions:           loadOptions(*opts),
				SkipConnectivityCheck: true,
			})
			if err != nil {
				return err
			}
			defer rt.Close()
			return check(cmd.Context(), rt, cmd.OutOrStdout())
		},
	}
}

func loadOptions(opts cliOptions) config.LoadOptions {
	return config.LoadOptions{ConfigPathOverride: opts.configPath, ModeOverride: opts.mode}
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "mode", "config", "stream", "text", "limit"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "--" + name + "=" + arg[len("-"+name+"="):]
			}
		}
	}

	return normalized
}

func readImage(filePath string, stdin io.Reader) (image.Image, error) {
	var data []byte
	var err error
	if filePath == "-" {
		log.Printf("CLI: reading image from stdin")
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		log.Printf("CLI: reading image from file: %s", filePath)
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return nil, fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	log.Printf("CLI: decoded %dx%d image", img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

// streamingTranslator lets a session print partial translations.
type streamingTranslator struct {
	modes   *mode.Coordinator
	onChunk func(string)
}

func (s streamingTranslator) Translate(ctx context.Context, img image.Image) (mode.Outcome, error) {
	return s.modes.TranslateStream(ctx, img, s.onChunk)
}

// TranslateResult is the --json output of translate.
type TranslateResult struct {
	SessionID  string  `json:"session_id"`
	Source     string  `json:"source"`
	Mode       string  `json:"mode"`
	Detected   string  `json:"detected_language,omitempty"`
	Original   string  `json:"original_text"`
	Translated string  `json:"translated_text"`
	FellBack   bool    `json:"fell_back,omitempty"`
	Timestamp  string  `json:"timestamp"`
	Duration   float64 `json:"duration_seconds"`
}

func translateImage(ctx context.Context, opts cliOptions, img image.Image, out io.Writer) error {
	rt, err := bootstrap(runtimeinit.Options{
		LoadOptions:           loadOptions(opts),
		SkipConnectivityCheck: true,
		OpenHistory:           true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	var translator session.Translator = rt.Modes
	streamed := false
	if opts.stream && !opts.jsonOutput {
		translator = streamingTranslator{modes: rt.Modes, onChunk: func(chunk string) {
			streamed = true
			fmt.Fprint(out, chunk)
		}}
	}

	b := img.Bounds()
	runner := session.NewRunner(session.Options{
		Capture: func(context.Context) (image.Image, screenshot.BBox, bool, error) {
			return img, screenshot.BBox{X1: b.Min.X, Y1: b.Min.Y, X2: b.Max.X, Y2: b.Max.Y}, true, nil
		},
		Translator:  translator,
		Recorder:    rt.Recorder(),
		ScreenWidth: func() int { return b.Dx() },
	})

	start := time.Now()
	rep, err := runner.Run(ctx)
	elapsed := time.Since(start)
	if errors.Is(err, mode.ErrNoTextDetected) {
		return fmt.Errorf("no text detected in %s", opts.filePath)
	}
	if err != nil {
		return err
	}
	outcome := rep.Outcome
	if outcome.Err != nil {
		if streamed {
			fmt.Fprintln(out)
		}
		return fmt.Errorf("translation failed: %s", llm.Render(outcome.Err))
	}
	log.Printf("CLI: %s translation in %v, %d characters", outcome.Mode, elapsed, utf8.RuneCountInString(outcome.TranslatedText))

	if opts.jsonOutput {
		return writeJSON(out, TranslateResult{
			SessionID:  rep.ID,
			Source:     opts.filePath,
			Mode:       outcome.Mode.String(),
			Detected:   string(outcome.Detected),
			Original:   outcome.OriginalText,
			Translated: outcome.TranslatedText,
			FellBack:   outcome.FellBack,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Duration:   elapsed.Seconds(),
		})
	}
	if streamed {
		fmt.Fprintln(out)
		return nil
	}
	fmt.Fprintln(out, outcome.TranslatedText)
	return nil
}

func check(ctx context.Context, rt *runtimeinit.Runtime, out io.Writer) error {
	cfg := rt.Config
	fmt.Fprintf(out, "Ollama:       %s\n", logutil.RedactURL(cfg.OllamaURL))
	if !rt.Text.TestConnection(ctx) {
		fmt.Fprintf(out, "Status:       not reachable (start it with 'ollama serve')\n")
		return errors.New("ollama not reachable")
	}
	fmt.Fprintf(out, "Status:       OK\n")
	fmt.Fprintf(out, "Text model:   %s\n", rt.Text.Model())

	if info, ok := rt.Vision().ModelInfo(ctx); ok {
		fmt.Fprintf(out, "Vision model: %s (%.1f GB, modified %s)\n", info.Name, float64(info.Size)/1e9, info.Modified.Format("2006-01-02"))
	} else {
		fmt.Fprintf(out, "Vision model: %s not installed (run 'ollama pull %s')\n", cfg.VisionModel, cfg.VisionModel)
	}
	fmt.Fprintf(out, "Mode:         %s\n", rt.Modes.Current())
	return nil
}

func printHistory(out io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No translations recorded yet")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-8s %-6s %s -> %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Mode, e.DetectedLanguage,
			logutil.Preview(e.OriginalText, 40), logutil.Preview(e.TranslatedText, 60))
	}
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
