// Package session runs one capture → translate → display cycle at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"screen-translate/src/history"
	"screen-translate/src/logutil"
	"screen-translate/src/mode"
	"screen-translate/src/screenshot"
)

var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrBusy               = errors.New("translation already in progress")
)

const (
	overlayWidth  = 400
	overlayHeight = 250
	overlayGap    = 10
	// fallback when the display size is unknown
	defaultScreenWidth = 1920
	DefaultTimeout     = 60 * time.Second
)

// NoTextMessage is shown when the capture held no usable text.
const NoTextMessage = "No text detected in the selected area"

// CaptureFunc lets the user select a region. ok is false when the user
// cancelled the selection.
type CaptureFunc func(ctx context.Context) (img image.Image, box screenshot.BBox, ok bool, err error)

// Translator turns a captured image into an outcome.
type Translator interface {
	Translate(ctx context.Context, img image.Image) (mode.Outcome, error)
}

// Placement positions the result overlay in screen coordinates.
type Placement struct {
	X, Y          int
	Width, Height int
	Timeout       time.Duration
}

// Result is what the display collaborator renders.
type Result struct {
	Placement
	OriginalText   string
	TranslatedText string
	Mode           mode.Mode
}

// Display renders results independently of the session that produced them.
type Display interface {
	ShowResult(r Result)
	ShowError(message string)
}

// Recorder persists finished translations.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

type Options struct {
	Capture    CaptureFunc
	Translator Translator
	Display    Display
	// Copy, when set, receives every translated text.
	Copy           func(text string) error
	Recorder       Recorder
	OverlayTimeout time.Duration
	ScreenWidth    func() int
}

// Report describes a finished session.
type Report struct {
	ID      string
	Box     screenshot.BBox
	Outcome mode.Outcome
}

// Runner enforces at most one running session. A trigger while a session
// runs is dropped, not queued.
type Runner struct {
	busy atomic.Bool
	opts Options
}

func NewRunner(opts Options) *Runner {
	if opts.OverlayTimeout <= 0 {
		opts.OverlayTimeout = DefaultTimeout
	}
	if opts.ScreenWidth == nil {
		opts.ScreenWidth = func() int { return screenshot.PrimaryWidth(defaultScreenWidth) }
	}
	return &Runner{opts: opts}
}

// Busy reports whether a session or exclusive operation is running.
func (r *Runner) Busy() bool { return r.busy.Load() }

// Trigger starts a session on its own goroutine and returns immediately.
// ErrBusy is returned when a session is already running.
func (r *Runner) Trigger(ctx context.Context) error {
	if !r.busy.CompareAndSwap(false, true) {
		log.Printf("Session: busy, trigger ignored")
		return ErrBusy
	}
	go func() {
		defer r.busy.Store(false)
		_, _ = r.execute(ctx)
	}()
	return nil
}

// Run executes one session on the calling goroutine.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if !r.busy.CompareAndSwap(false, true) {
		log.Printf("Session: busy, run rejected")
		return Report{}, ErrBusy
	}
	defer r.busy.Store(false)
	return r.execute(ctx)
}

// Exclusive runs fn while holding the busy flag. It returns false without
// running fn when a session is active.
func (r *Runner) Exclusive(fn func()) bool {
	if !r.busy.CompareAndSwap(false, true) {
		return false
	}
	defer r.busy.Store(false)
	fn()
	return true
}

func (r *Runner) execute(ctx context.Context) (rep Report, err error) {
	rep.ID = uuid.NewString()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			log.Printf("Session %s: unexpected failure: %v", rep.ID, p)
			err = fmt.Errorf("unexpected failure: %v", p)
			r.showError(fmt.Sprintf("Error: %v", p))
		}
	}()

	log.Printf("Session %s: started", rep.ID)
	img, box, ok, err := r.opts.Capture(ctx)
	if err != nil {
		log.Printf("Session %s: capture failed: %v", rep.ID, err)
		r.showError(fmt.Sprintf("Error: %v", err))
		return rep, err
	}
	if !ok || img == nil {
		log.Printf("Session %s: no capture made", rep.ID)
		return rep, ErrSelectionCancelled
	}
	rep.Box = box

	out, err := r.opts.Translator.Translate(ctx, img)
	rep.Outcome = out
	if errors.Is(err, mode.ErrNoTextDetected) {
		log.Printf("Session %s: no text detected", rep.ID)
		r.showError(NoTextMessage)
		return rep, err
	}
	if err != nil {
		log.Printf("Session %s: translation failed: %v", rep.ID, err)
		r.showError(fmt.Sprintf("Error: %v", err))
		return rep, err
	}

	res := Result{
		Placement:      r.place(box),
		OriginalText:   out.OriginalText,
		TranslatedText: out.TranslatedText,
		Mode:           out.Mode,
	}
	if r.opts.Display != nil {
		go r.opts.Display.ShowResult(res)
	}

	if r.opts.Copy != nil && out.Err == nil {
		if err := r.opts.Copy(out.TranslatedText); err != nil {
			log.Printf("Session %s: clipboard copy failed: %v", rep.ID, err)
		}
	}
	if r.opts.Recorder != nil && out.Err == nil {
		entry := history.Entry{
			SessionID:        rep.ID,
			CreatedAt:        start,
			Mode:             out.Mode.String(),
			DetectedLanguage: string(out.Detected),
			OriginalText:     out.OriginalText,
			TranslatedText:   out.TranslatedText,
		}
		if err := r.opts.Recorder.Record(ctx, entry); err != nil {
			log.Printf("Session %s: history write failed: %v", rep.ID, err)
		}
	}

	log.Printf("Session %s: done in %s via %s: %s", rep.ID, time.Since(start).Round(time.Millisecond), out.Mode, logutil.Preview(out.TranslatedText, 80))
	return rep, nil
}

// place puts the overlay right of the selection, or left of it when it
// would run off the screen.
func (r *Runner) place(box screenshot.BBox) Placement {
	p := Placement{
		X:       box.X2 + overlayGap,
		Y:       box.Y1,
		Width:   overlayWidth,
		Height:  overlayHeight,
		Timeout: r.opts.OverlayTimeout,
	}
	if p.X > r.opts.ScreenWidth()-(overlayWidth+2*overlayGap) {
		p.X = box.X1 - (overlayWidth + overlayGap)
	}
	return p
}

func (r *Runner) showError(msg string) {
	if r.opts.Display != nil {
		go r.opts.Display.ShowError(msg)
	}
}
