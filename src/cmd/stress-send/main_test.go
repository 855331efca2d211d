package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"screen-translate/src/singleinstance"
)

// onceClient accepts the first command and reports busy for the rest.
type onceClient struct {
	sent     atomic.Int32
	resident bool
}

func (c *onceClient) Send(context.Context, singleinstance.Command) (bool, string, error) {
	if !c.resident {
		return false, "", nil
	}
	if c.sent.Add(1) == 1 {
		return true, "capture started", nil
	}
	return true, "", errors.New("Busy, please retry")
}

func (c *onceClient) Running(context.Context) bool { return c.resident }

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 {
		t.Fatalf("Expected default n=50, got %d", opts.n)
	}
	if opts.command != "status" {
		t.Fatalf("Expected default command=status, got %q", opts.command)
	}
	if opts.deadline != 5*time.Second {
		t.Fatalf("Expected default deadline=5s, got %v", opts.deadline)
	}
}

func TestNewRootCmdRejectsUnknownCommand(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs([]string{"--command", "explode"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("Expected error for an unknown command")
	}
}

func TestRunWithOptionsCountsBusy(t *testing.T) {
	client := &onceClient{resident: true}
	got := runWithOptions(stressOptions{n: 10, deadline: time.Second}, singleinstance.CommandCapture, client)
	if got.ok != 1 || got.busy != 9 || got.failed != 0 || got.missing != 0 {
		t.Fatalf("Expected one accepted capture and nine busy replies, got %+v", got)
	}

	var out bytes.Buffer
	printTally(&out, 10, got)
	if out.String() != "launched=10 ok=1 busy=9 no-resident=0 err=0\n" {
		t.Errorf("Unexpected summary %q", out.String())
	}
}

func TestRunWithOptionsWithoutResident(t *testing.T) {
	got := runWithOptions(stressOptions{n: 3, deadline: time.Second}, singleinstance.CommandStatus, &onceClient{})
	if got.missing != 3 {
		t.Fatalf("Expected three sends without a resident, got %+v", got)
	}
}
