package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func nop(context.Context) error { return nil }

func TestParser(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{expr: "@every 30m"},
		{expr: "@hourly"},
		{expr: "0 */5 * * * *"},
		{expr: "*/5 * * * *"},
		{expr: "every now and then", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s := New(nop, nil, nil)
			err := s.Schedule(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Schedule(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestSchedulerScheduleStatus(t *testing.T) {
	s := New(nop, nil, nil)

	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	next, running := s.Status()
	if running {
		t.Fatalf("scheduler should not be running")
	}
	if next.IsZero() {
		t.Fatalf("next run should be set after scheduling")
	}
}

func TestSchedulerSkip(t *testing.T) {
	s := New(nop, nil, nil)
	if err := s.Skip(); err == nil {
		t.Fatalf("Skip without a schedule should fail")
	}
	if err := s.Schedule("@every 10m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	orig, _ := s.Status()

	s.Start(context.Background())
	defer s.Stop()

	if err := s.Skip(); err != nil {
		t.Fatalf("Skip returned error: %v", err)
	}
	skipped, _ := s.Status()
	if !skipped.After(orig) {
		t.Fatalf("expected skip to move schedule forward, got %v <= %v", skipped, orig)
	}
}

func TestSchedulerRunCycle(t *testing.T) {
	upcomingCh := make(chan time.Time, 1)
	taskCh := make(chan struct{}, 1)
	errCh := make(chan error, 1)

	task := func(context.Context) error {
		taskCh <- struct{}{}
		return nil
	}
	onUpcoming := func(data any) {
		upcomingCh <- data.(time.Time)
	}
	onError := func(data any) {
		if err, ok := data.(error); ok {
			errCh <- err
		}
	}

	s := New(task, onUpcoming, onError)
	s.Lead = 20 * time.Millisecond
	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	forced := time.Now().Add(50 * time.Millisecond)
	s.mu.Lock()
	s.nextRun = forced
	s.mu.Unlock()

	s.Start(context.Background())
	defer s.Stop()

	select {
	case at := <-upcomingCh:
		if !at.Equal(forced) {
			t.Errorf("upcoming run at %v, want %v", at, forced)
		}
	case <-time.After(time.Second):
		t.Fatalf("did not receive upcoming notification in time")
	}

	select {
	case <-taskCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("task did not execute in time")
	}

	if n := s.Runs(); n != 1 {
		t.Errorf("Runs() = %d, want 1", n)
	}
	if next, _ := s.Status(); !next.After(forced) {
		t.Errorf("next run %v not advanced past %v", next, forced)
	}

	select {
	case err := <-errCh:
		t.Fatalf("unexpected error callback: %v", err)
	default:
	}
}

func TestSchedulerTaskError(t *testing.T) {
	errCh := make(chan error, 1)
	s := New(func(context.Context) error { return errors.New("boom") }, nil, func(data any) {
		errCh <- data.(error)
	})
	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	s.nextRun = time.Now().Add(10 * time.Millisecond)
	s.mu.Unlock()

	s.Start(context.Background())
	defer s.Stop()

	select {
	case err := <-errCh:
		if !strings.Contains(err.Error(), "run 1 failed: boom") {
			t.Errorf("error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected error callback")
	}
}

func TestSchedulerNoOverlap(t *testing.T) {
	started := make(chan struct{}, 4)
	errCh := make(chan error, 4)

	task := func(ctx context.Context) error {
		started <- struct{}{}
		<-ctx.Done()
		return nil
	}
	s := New(task, nil, func(data any) { errCh <- data.(error) })
	if err := s.Schedule("@every 1s"); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	s.nextRun = time.Now().Add(10 * time.Millisecond)
	s.mu.Unlock()

	s.Start(context.Background())

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first run did not start")
	}

	select {
	case err := <-errCh:
		if !strings.Contains(err.Error(), "still in progress") {
			t.Errorf("error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected overlapping run to be skipped")
	}

	// Stop cancels the blocked run and waits for it.
	s.Stop()
	if n := s.Runs(); n != 1 {
		t.Errorf("Runs() = %d, want 1", n)
	}
}

func TestSchedulerContextCancel(t *testing.T) {
	s := New(nop, nil, nil)
	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, running := s.Status(); !running {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("scheduler still running after context cancel")
}
