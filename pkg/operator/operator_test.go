package operator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestTerminalConfirmReadsEnter(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader("\n\n"), &out)
	for i := 0; i < 2; i++ {
		if err := term.Confirm(context.Background(), "Rotate the device"); err != nil {
			t.Fatalf("Confirm() = %v", err)
		}
	}
	if !strings.Contains(out.String(), "Rotate the device") {
		t.Errorf("output = %q", out.String())
	}
}

func TestTerminalConfirmEOF(t *testing.T) {
	term := NewTerminal(strings.NewReader(""), io.Discard)
	if err := term.Confirm(context.Background(), "x"); err != nil {
		t.Errorf("EOF should confirm, got %v", err)
	}
}

func TestTerminalConfirmCanceled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	term := NewTerminal(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := term.Confirm(ctx, "wait"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Confirm() = %v", err)
	}
}

func TestTerminalNotify(t *testing.T) {
	var out bytes.Buffer
	NewTerminal(strings.NewReader(""), &out).Notify("Keep the device stable")
	if !strings.Contains(out.String(), "Keep the device stable") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var p Prompter = &r
	p.Notify("a")
	_ = p.Confirm(context.Background(), "b")
	if got := r.Messages(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Messages() = %q", got)
	}
}
