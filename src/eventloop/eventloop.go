// Package eventloop serializes hotkey events into session starts and mode
// toggles.
package eventloop

import (
	"context"
	"errors"
	"log"

	"screen-translate/src/mode"
	"screen-translate/src/session"
	"screen-translate/src/singleinstance"
)

const busyMessage = "Busy, please retry"

// Sessions is the part of the session runner the loop drives.
type Sessions interface {
	Trigger(ctx context.Context) error
	Exclusive(fn func()) bool
}

// Modes is the part of the mode coordinator the loop drives.
type Modes interface {
	Toggle() mode.Mode
	Current() mode.Mode
}

type Options struct {
	Sessions Sessions
	Modes    Modes
	// Server, when set, delivers commands forwarded by later launches.
	Server singleinstance.Server
	// Status receives a short human readable line whenever the state changes.
	Status func(text string)
	// Notify shows transient messages such as the new mode.
	Notify func(text string)
}

// Loop is the single goroutine that reacts to hotkeys.
type Loop struct {
	sessions  Sessions
	modes     Modes
	srv       singleinstance.Server
	status    func(string)
	notify    func(string)
	captureCh chan struct{}
	toggleCh  chan struct{}
	quitCh    chan struct{}
}

func New(opts Options) *Loop {
	l := &Loop{
		sessions:  opts.Sessions,
		modes:     opts.Modes,
		srv:       opts.Server,
		status:    opts.Status,
		notify:    opts.Notify,
		captureCh: make(chan struct{}, 4),
		toggleCh:  make(chan struct{}, 4),
		quitCh:    make(chan struct{}, 1),
	}
	if l.status == nil {
		l.status = func(string) {}
	}
	if l.notify == nil {
		l.notify = func(string) {}
	}
	return l
}

// Capture posts a capture request. It never blocks; excess presses are dropped.
func (l *Loop) Capture() { post(l.captureCh) }

// Toggle posts a mode toggle request.
func (l *Loop) Toggle() { post(l.toggleCh) }

// Quit asks Run to return.
func (l *Loop) Quit() { post(l.quitCh) }

func post(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// StatusText is the tray tooltip for m.
func StatusText(m mode.Mode) string {
	return "Screen Translate: " + m.String()
}

// Run processes events until ctx is cancelled or Quit is called.
func (l *Loop) Run(ctx context.Context) error {
	l.status(StatusText(l.modes.Current()))

	// Accept loop in background so hotkeys are never blocked by a client
	var reqCh chan singleinstance.Conn
	if l.srv != nil {
		reqCh = make(chan singleinstance.Conn, 4)
		go func() {
			defer close(reqCh)
			for {
				conn, err := l.srv.Next(ctx)
				if err != nil {
					return
				}
				reqCh <- conn
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quitCh:
			log.Printf("EventLoop: quit requested")
			return nil
		case <-l.captureCh:
			l.handleCapture(ctx)
		case <-l.toggleCh:
			l.handleToggle()
		case conn, ok := <-reqCh:
			if !ok {
				reqCh = nil
				continue
			}
			l.handleConn(ctx, conn)
		}
	}
}

func (l *Loop) handleCapture(ctx context.Context) bool {
	err := l.sessions.Trigger(ctx)
	if errors.Is(err, session.ErrBusy) {
		log.Printf("EventLoop: translation in progress, capture ignored")
		return false
	}
	if err != nil {
		log.Printf("EventLoop: capture failed to start: %v", err)
		return false
	}
	return true
}

func (l *Loop) handleToggle() (mode.Mode, bool) {
	var to mode.Mode
	if !l.sessions.Exclusive(func() { to = l.modes.Toggle() }) {
		log.Printf("EventLoop: translation in progress, mode toggle ignored")
		return l.modes.Current(), false
	}
	l.status(StatusText(to))
	l.notify("Mode: " + to.String())
	return to, true
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	defer conn.Close()
	var err error
	switch conn.Request().Command {
	case singleinstance.CommandCapture:
		if l.handleCapture(ctx) {
			err = conn.RespondSuccess("capture started")
		} else {
			err = conn.RespondError(busyMessage)
		}
	case singleinstance.CommandToggle:
		if to, ok := l.handleToggle(); ok {
			err = conn.RespondSuccess(to.String())
		} else {
			err = conn.RespondError(busyMessage)
		}
	case singleinstance.CommandStatus:
		err = conn.RespondSuccess(l.modes.Current().String())
	default:
		err = conn.RespondError("unknown command")
	}
	if err != nil {
		log.Printf("EventLoop: reply failed: %v", err)
	}
}
