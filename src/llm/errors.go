package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a failed generation call.
type Kind string

const (
	KindNothingToTranslate Kind = "NOTHING_TO_TRANSLATE"
	KindTimeout            Kind = "TIMEOUT"
	KindConnection         Kind = "CONNECTION"
	KindBadStatus          Kind = "BAD_STATUS"
	KindEmpty              Kind = "EMPTY_RESULT"
	KindEncode             Kind = "ENCODE"
	KindUnexpected         Kind = "UNEXPECTED"
)

// Error is returned by every translator call that does not produce text.
type Error struct {
	Kind   Kind
	Status int // set for KindBadStatus
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindBadStatus:
		return fmt.Sprintf("%s: status %d", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// classify maps a transport error onto a Kind.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return &Error{Kind: KindConnection, Err: err}
	}
	var de *net.DNSError
	if errors.As(err, &de) {
		return &Error{Kind: KindConnection, Err: err}
	}
	return &Error{Kind: KindUnexpected, Err: err}
}

// Render turns a text translation error into the message shown in place of
// a translation.
func Render(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("❌ Error: %v", err)
	}
	switch e.Kind {
	case KindNothingToTranslate:
		return "⚠️ Nothing to translate"
	case KindEmpty:
		return "⚠️ No translation received"
	case KindBadStatus:
		return fmt.Sprintf("❌ Ollama error (code %d)", e.Status)
	case KindTimeout:
		return "⏱️ Timeout: translation took too long"
	case KindConnection:
		return "❌ Error: Ollama not reachable"
	default:
		return fmt.Sprintf("❌ Error: %v", e.Err)
	}
}

// RenderVision is the vision translator counterpart of Render.
func RenderVision(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("[ERROR: Unexpected error: %v]", err)
	}
	switch e.Kind {
	case KindEmpty:
		return "[No text detected or translated]"
	case KindBadStatus:
		return fmt.Sprintf("[ERROR: Ollama API error (status %d)]", e.Status)
	case KindTimeout:
		return "[ERROR: Timeout - the vision model took too long to respond]"
	case KindConnection:
		return fmt.Sprintf("[ERROR: Network error: %v]", e.Err)
	default:
		return fmt.Sprintf("[ERROR: Unexpected error: %v]", e.Err)
	}
}
