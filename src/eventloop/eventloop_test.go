package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"screen-translate/src/mode"
	"screen-translate/src/session"
	"screen-translate/src/singleinstance"
)

type fakeSessions struct {
	mu       sync.Mutex
	busy     bool
	triggers int
	rejected int
}

func (f *fakeSessions) Trigger(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		f.rejected++
		return session.ErrBusy
	}
	f.triggers++
	return nil
}

func (f *fakeSessions) Exclusive(fn func()) bool {
	f.mu.Lock()
	busy := f.busy
	f.mu.Unlock()
	if busy {
		return false
	}
	fn()
	return true
}

func (f *fakeSessions) setBusy(b bool) {
	f.mu.Lock()
	f.busy = b
	f.mu.Unlock()
}

func (f *fakeSessions) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggers, f.rejected
}

type fakeModes struct {
	mu      sync.Mutex
	current mode.Mode
	toggles int
}

func (f *fakeModes) Toggle() mode.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	f.current = (f.current + 1) % 3
	return f.current
}

func (f *fakeModes) Current() mode.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeModes) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toggles
}

// runLoop starts the loop and returns a function that stops it and waits.
func runLoop(t *testing.T, l *Loop) func() {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()
	return func() {
		l.Quit()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Expected nil error from Run, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after Quit")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestCaptureTriggersSession(t *testing.T) {
	s := &fakeSessions{}
	l := New(Options{Sessions: s, Modes: &fakeModes{}})
	stop := runLoop(t, l)
	defer stop()

	l.Capture()
	waitFor(t, func() bool { n, _ := s.counts(); return n == 1 })
}

func TestCaptureWhileBusyIsDropped(t *testing.T) {
	s := &fakeSessions{busy: true}
	l := New(Options{Sessions: s, Modes: &fakeModes{}})
	stop := runLoop(t, l)
	defer stop()

	l.Capture()
	waitFor(t, func() bool { _, r := s.counts(); return r == 1 })
	if n, _ := s.counts(); n != 0 {
		t.Errorf("Expected no session started, got %d", n)
	}
}

func TestToggleUpdatesStatus(t *testing.T) {
	var mu sync.Mutex
	var statuses, notes []string
	m := &fakeModes{}
	l := New(Options{
		Sessions: &fakeSessions{},
		Modes:    m,
		Status:   func(s string) { mu.Lock(); statuses = append(statuses, s); mu.Unlock() },
		Notify:   func(s string) { mu.Lock(); notes = append(notes, s); mu.Unlock() },
	})
	stop := runLoop(t, l)
	defer stop()

	l.Toggle()
	waitFor(t, func() bool { mu.Lock(); defer mu.Unlock(); return len(notes) == 1 })

	mu.Lock()
	defer mu.Unlock()
	if statuses[0] != "Screen Translate: fast-ocr" {
		t.Errorf("Expected initial status for fast-ocr, got %q", statuses[0])
	}
	if statuses[len(statuses)-1] != "Screen Translate: rich-ocr" {
		t.Errorf("Expected status for rich-ocr, got %q", statuses[len(statuses)-1])
	}
	if notes[0] != "Mode: rich-ocr" {
		t.Errorf("Expected notification 'Mode: rich-ocr', got %q", notes[0])
	}
}

func TestToggleWhileBusyIsIgnored(t *testing.T) {
	s := &fakeSessions{}
	s.setBusy(true)
	m := &fakeModes{}
	l := New(Options{Sessions: s, Modes: m})

	if _, ok := l.handleToggle(); ok {
		t.Error("Expected handleToggle to report rejection")
	}
	if m.count() != 0 {
		t.Errorf("Expected toggle to be ignored while busy, got %d toggles", m.count())
	}
	if m.Current() != mode.FastOCR {
		t.Errorf("Expected mode unchanged, got %s", m.Current())
	}
}

func TestPostNeverBlocks(t *testing.T) {
	l := New(Options{Sessions: &fakeSessions{}, Modes: &fakeModes{}})
	for i := 0; i < 20; i++ {
		l.Capture()
	}
	if len(l.captureCh) != cap(l.captureCh) {
		t.Errorf("Expected full buffer of %d, got %d", cap(l.captureCh), len(l.captureCh))
	}
}

func TestRunStopsOnContext(t *testing.T) {
	l := New(Options{Sessions: &fakeSessions{}, Modes: &fakeModes{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

type fakeConn struct {
	cmd     singleinstance.Command
	ok      bool
	reply   string
	replied bool
	closed  bool
}

func (c *fakeConn) Request() singleinstance.Request { return singleinstance.Request{Command: c.cmd} }

func (c *fakeConn) RespondSuccess(text string) error {
	c.ok, c.reply, c.replied = true, text, true
	return nil
}

func (c *fakeConn) RespondError(msg string) error {
	c.ok, c.reply, c.replied = false, msg, true
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestHandleConn(t *testing.T) {
	tests := []struct {
		name      string
		cmd       singleinstance.Command
		busy      bool
		wantOK    bool
		wantReply string
	}{
		{"capture", singleinstance.CommandCapture, false, true, "capture started"},
		{"capture busy", singleinstance.CommandCapture, true, false, busyMessage},
		{"toggle", singleinstance.CommandToggle, false, true, "rich-ocr"},
		{"toggle busy", singleinstance.CommandToggle, true, false, busyMessage},
		{"status", singleinstance.CommandStatus, true, true, "fast-ocr"},
		{"unknown", singleinstance.Command("REBOOT"), false, false, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSessions{busy: tt.busy}
			l := New(Options{Sessions: s, Modes: &fakeModes{}})
			conn := &fakeConn{cmd: tt.cmd}

			l.handleConn(context.Background(), conn)

			if !conn.replied || !conn.closed {
				t.Fatalf("Expected a reply and a closed connection, got replied=%v closed=%v", conn.replied, conn.closed)
			}
			if conn.ok != tt.wantOK || conn.reply != tt.wantReply {
				t.Errorf("Expected (%v, %q), got (%v, %q)", tt.wantOK, tt.wantReply, conn.ok, conn.reply)
			}
		})
	}
}
