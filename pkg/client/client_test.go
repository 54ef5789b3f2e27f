package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/labkit/imucal/pkg/bench"
	"github.com/labkit/imucal/pkg/events"
	"github.com/labkit/imucal/pkg/version"
)

func startBench(t *testing.T) (*Client, *events.EventHub) {
	t.Helper()
	dir, err := os.MkdirTemp("", "imucal")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "b.sock")

	hub := events.NewEventHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bench.Serve(ctx, sock, hub) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve() = %v", err)
		}
	})

	c := NewClient(sock)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := c.GetVersion(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("bench did not come up")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return c, hub
}

// waitSubscribers waits until the bench monitor (and any stream) subscribed.
func waitSubscribers(t *testing.T, hub *events.EventHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d subscribers, want %d", hub.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBenchNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	if _, err := c.GetStatus(); !errors.Is(err, ErrBenchNotRunning) {
		t.Errorf("GetStatus() = %v, want ErrBenchNotRunning", err)
	}
}

func TestClientAgainstBench(t *testing.T) {
	c, hub := startBench(t)
	waitSubscribers(t, hub, 1)

	if v, err := c.GetVersion(); err != nil || v != version.Version {
		t.Errorf("GetVersion() = %q, %v", v, err)
	}

	hub.Publish(events.CasePhase, events.CasePhaseEvent{Case: "2745", From: "Idle", To: "Calibrating"})
	hub.Publish(events.Notification, events.NotificationEvent{Line: "Accel Accuracy 2"})
	hub.Publish(events.Notification, events.NotificationEvent{Line: "Accel Accuracy 3"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := c.GetStatus()
		if err != nil {
			t.Fatal(err)
		}
		if st.Responses == 2 {
			if st.Case != "2745" || st.Phase != "Calibrating" {
				t.Errorf("status = %+v", st)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never caught up: %+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rs, err := c.GetResponses(1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rs, []string{"Accel Accuracy 3"}) {
		t.Errorf("GetResponses(1) = %q", rs)
	}

	if _, err := c.Get("/nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(/nope) = %v, want ErrNotFound", err)
	}
}

func TestStreamEvents(t *testing.T) {
	c, hub := startBench(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.StreamEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// The monitor plus this stream.
	waitSubscribers(t, hub, 2)

	hub.Publish(events.Accuracy, events.AccuracyEvent{Sensor: "gyro", Level: 3})

	select {
	case ev := <-ch:
		if ev.Name != events.Accuracy {
			t.Fatalf("event name = %q", ev.Name)
		}
		p, err := events.DecodeAs[events.AccuracyEvent](ev)
		if err != nil {
			t.Fatal(err)
		}
		if p.Sensor != "gyro" || p.Level != 3 {
			t.Errorf("payload = %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	for range ch {
	}
}
