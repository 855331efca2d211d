// Package singleinstance keeps one resident per user session and lets later
// launches forward commands to it over loopback TCP.
package singleinstance

import (
	"context"
	"strings"
)

// Command is one line of the loopback protocol.
type Command string

const (
	CommandCapture Command = "CAPTURE"
	CommandToggle  Command = "TOGGLE"
	CommandStatus  Command = "STATUS"
)

// ParseCommand accepts any letter case.
func ParseCommand(s string) (Command, bool) {
	switch c := Command(strings.ToUpper(strings.TrimSpace(s))); c {
	case CommandCapture, CommandToggle, CommandStatus:
		return c, true
	default:
		return "", false
	}
}

// Server owns the TCP endpoint and hands forwarded commands to the resident.
type Server interface {
	// Start binds the configured port. It fails when another resident holds it.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one forwarded command and its reply.
type Conn interface {
	Request() Request
	RespondSuccess(text string) error
	RespondError(msg string) error
	Close() error
}

// Request is a single forwarded command.
type Request struct {
	Command Command
}

// Client forwards commands to a running resident.
type Client interface {
	// Send delivers cmd. delivered is false with a nil error when no resident
	// is listening.
	Send(ctx context.Context, cmd Command) (delivered bool, reply string, err error)
	// Running reports whether a resident answers on the configured port.
	Running(ctx context.Context) bool
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTCPServer(getPort()) }

// NewClient returns TCP implementation.
func NewClient() Client { return newTCPClient(getPort()) }
