package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"screen-translate/src/singleinstance"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"screen-translate", "-send", "capture", "-config", "/tmp/c.yaml"},
			out:  []string{"screen-translate", "--send", "capture", "--config", "/tmp/c.yaml"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"screen-translate", "-mode=vision"},
			out:  []string{"screen-translate", "--mode=vision"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"screen-translate", "--send", "toggle", "--other"},
			out:  []string{"screen-translate", "--send", "toggle", "--other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--send", "status", "--config", "/tmp/c.yaml", "--mode", "easyocr"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.send != "status" || opts.configPath != "/tmp/c.yaml" || opts.mode != "easyocr" {
		t.Fatalf("Unexpected options %+v", *opts)
	}
}

type fakeClient struct {
	delivered bool
	reply     string
	err       error
	sent      singleinstance.Command
}

func (f *fakeClient) Send(ctx context.Context, cmd singleinstance.Command) (bool, string, error) {
	f.sent = cmd
	return f.delivered, f.reply, f.err
}

func (f *fakeClient) Running(ctx context.Context) bool { return f.delivered }

func TestSendCommandDelivered(t *testing.T) {
	client := &fakeClient{delivered: true, reply: "vision"}
	var out bytes.Buffer

	if err := sendCommand(context.Background(), client, "Toggle", &out); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if client.sent != singleinstance.CommandToggle {
		t.Errorf("Expected TOGGLE to be sent, got %q", client.sent)
	}
	if out.String() != "vision\n" {
		t.Errorf("Expected reply printed, got %q", out.String())
	}
}

func TestSendCommandNoResident(t *testing.T) {
	err := sendCommand(context.Background(), &fakeClient{}, "capture", &bytes.Buffer{})
	if !errors.Is(err, errNoResident) {
		t.Errorf("Expected errNoResident, got %v", err)
	}
}

func TestSendCommandRejected(t *testing.T) {
	client := &fakeClient{delivered: true, err: errors.New("Busy, please retry")}
	if err := sendCommand(context.Background(), client, "capture", &bytes.Buffer{}); err == nil {
		t.Error("Expected the resident's error to be returned")
	}
}

func TestSendCommandUnknown(t *testing.T) {
	client := &fakeClient{delivered: true}
	if err := sendCommand(context.Background(), client, "explode", &bytes.Buffer{}); err == nil {
		t.Error("Expected error for an unknown command")
	}
	if client.sent != "" {
		t.Errorf("Expected nothing sent, got %q", client.sent)
	}
}
