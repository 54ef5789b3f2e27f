// Package operator guides the person handling the device during a test.
package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Prompter shows guidance and waits for the operator.
type Prompter interface {
	// Notify shows an instruction that needs no answer.
	Notify(msg string)
	// Confirm shows msg and blocks until the operator acknowledges or ctx
	// is done.
	Confirm(ctx context.Context, msg string) error
}

// Terminal prompts on a terminal and reads Enter from in.
type Terminal struct {
	out io.Writer

	mu sync.Mutex
	in *bufio.Reader
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Notify(msg string) {
	fmt.Fprintln(t.out, color.New(color.Bold, color.FgCyan).Sprint(">> ")+color.New(color.Bold).Sprint(msg))
}

func (t *Terminal) Confirm(ctx context.Context, msg string) error {
	fmt.Fprintf(t.out, "%s%s %s ",
		color.New(color.Bold, color.FgYellow).Sprint("?? "),
		color.New(color.Bold).Sprint(msg),
		color.New(color.Faint).Sprint("[press Enter]"))

	done := make(chan error, 1)
	go func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		_, err := t.in.ReadString('\n')
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil && err != io.EOF {
			return err
		}
		return nil
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return ctx.Err()
	}
}

// Auto never waits. Every message is logged and every confirmation succeeds
// immediately, for unattended runs.
type Auto struct{}

func (Auto) Notify(msg string) {
	logrus.WithField("prompt", msg).Info("operator notice")
}

func (Auto) Confirm(ctx context.Context, msg string) error {
	logrus.WithField("prompt", msg).Info("auto-confirmed")
	return ctx.Err()
}

// Recorder is a Prompter that records what was shown. It confirms
// immediately.
type Recorder struct {
	mu       sync.Mutex
	Notices  []string
	Confirms []string
}

func (r *Recorder) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, msg)
}

func (r *Recorder) Confirm(ctx context.Context, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Confirms = append(r.Confirms, msg)
	return ctx.Err()
}

// Messages returns every notice and confirmation, notices first.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.Notices...)
	return append(out, r.Confirms...)
}
