package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"screen-translate/src/clipboard"
	"screen-translate/src/config"
	"screen-translate/src/eventloop"
	"screen-translate/src/hotkey"
	"screen-translate/src/logutil"
	"screen-translate/src/overlay"
	"screen-translate/src/popup"
	"screen-translate/src/runtimeinit"
	"screen-translate/src/session"
	"screen-translate/src/singleinstance"
	"screen-translate/src/tray"
)

const appID = "io.github.screen-translate"

var errNoResident = errors.New("no running instance found")

type mainOptions struct {
	configPath string
	mode       string
	send       string
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-translate"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-translate",
		Short:         "Translate any screen region with a global hotkey",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.send != "" {
				// Load .env early so SINGLEINSTANCE_PORT is applied before delegation
				_, _ = config.LoadWithOptions(config.LoadOptions{ConfigPathOverride: opts.configPath})
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				defer cancel()
				return sendCommand(ctx, singleinstance.NewClient(), opts.send, cmd.OutOrStdout())
			}
			return runResident(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config.yaml or config.json")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Start in this mode: tesseract, easyocr or vision")
	cmd.Flags().StringVar(&opts.send, "send", "", "Forward capture, toggle or status to the running instance and exit")
	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		for _, name := range []string{"config", "mode", "send"} {
			arg := normalized[i]
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}
	return normalized
}

// sendCommand forwards name to the resident and prints its reply.
func sendCommand(ctx context.Context, client singleinstance.Client, name string, out io.Writer) error {
	cmd, ok := singleinstance.ParseCommand(name)
	if !ok {
		return fmt.Errorf("unknown command %q (want capture, toggle or status)", name)
	}
	delivered, reply, err := client.Send(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s rejected: %w", strings.ToLower(string(cmd)), err)
	}
	if !delivered {
		return errNoResident
	}
	fmt.Fprintln(out, reply)
	return nil
}

func runResident(opts mainOptions) error {
	loadOptions := config.LoadOptions{ConfigPathOverride: opts.configPath, ModeOverride: opts.mode}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load .env early so SINGLEINSTANCE_PORT is available for the port claim
	if _, err := config.LoadWithOptions(loadOptions); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	srv := singleinstance.NewServer()
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("another instance is already running: %w", err)
	}
	defer srv.Close()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  loadOptions,
		SetupLogging: logutil.Setup,
		OpenHistory:  true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.Config
	logMonitorConfiguration()

	a := app.NewWithID(appID)
	a.SetIcon(tray.Icon)
	display := popup.New(a)

	var copyText func(string) error
	if cfg.CopyToClipboard {
		if err := clipboard.Init(); err != nil {
			log.Printf("Clipboard: copy disabled: %v", err)
		} else {
			copyText = clipboard.Write
		}
	}

	runner := session.NewRunner(session.Options{
		Capture:        overlay.NewSelector(a).Select,
		Translator:     rt.Modes,
		Display:        display,
		Copy:           copyText,
		Recorder:       rt.Recorder(),
		OverlayTimeout: time.Duration(cfg.OverlayTimeoutSec) * time.Second,
	})

	var tr *tray.Tray
	loop := eventloop.New(eventloop.Options{
		Sessions: runner,
		Modes:    rt.Modes,
		Server:   srv,
		Status:   func(s string) { tr.SetStatus(s) },
		Notify:   display.ShowInfo,
	})
	tr = tray.Setup(a, tray.Actions{Capture: loop.Capture, Toggle: loop.Toggle, Quit: loop.Quit})

	stopHotkeys, err := hotkey.Listen(
		hotkey.Binding{Combo: cfg.Hotkey, Callback: loop.Capture},
		hotkey.Binding{Combo: cfg.ToggleModeHotkey, Callback: loop.Toggle},
	)
	if err != nil {
		return fmt.Errorf("failed to register hotkeys: %w", err)
	}
	defer stopHotkeys()

	log.Printf("Screen Translate ready: %s to translate, %s to switch mode (%s)", cfg.Hotkey, cfg.ToggleModeHotkey, rt.Modes.Current())

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("event loop stopped: %v", err)
		}
		display.CloseAll()
		fyne.Do(a.Quit)
	}()

	// fyne owns the main goroutine until Quit
	a.Run()
	cancel()
	return nil
}
