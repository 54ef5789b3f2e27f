package session

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/events"
	"github.com/labkit/imucal/pkg/notify"
	"github.com/labkit/imucal/pkg/nus/nustest"
)

const testAddress = "C4:13:E5:CD:37:72"

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestSession(t *testing.T, link *nustest.Link, hub *events.EventHub) *Session {
	t.Helper()
	s := New(link, Options{Sleep: noSleep, Hub: hub})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSendRecordsResponsesAndAccuracy(t *testing.T) {
	link := nustest.New(testAddress).
		On("actse 54 100", "Gyro Accuracy 1", "Gyro Accuracy 3").
		On("actse 52 100", "Accel Accuracy 2", "Accel Accuracy 3")
	s := newTestSession(t, link, nil)

	if err := s.SendAll(context.Background(), "crt", "actse 54 100", "actse 52 100"); err != nil {
		t.Fatal(err)
	}

	if err := s.WaitBoth(context.Background()); err != nil {
		t.Fatalf("WaitBoth() = %v", err)
	}
	if !s.AccuracyReported() {
		t.Error("expected accuracy to be reported")
	}
	want := []string{"Gyro Accuracy 1", "Gyro Accuracy 3", "Accel Accuracy 2", "Accel Accuracy 3"}
	if got := s.Responses(); !reflect.DeepEqual(got, want) {
		t.Errorf("Responses() = %q", got)
	}
	if got := link.Commands(); !reflect.DeepEqual(got, []string{"crt", "actse 54 100", "actse 52 100"}) {
		t.Errorf("commands = %q", got)
	}
}

func TestWaitForWakesOnNotification(t *testing.T) {
	link := nustest.New(testAddress)
	s := newTestSession(t, link, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.WaitAccuracy(context.Background(), calibration.SensorAccel)
	}()

	link.Emit("Accel Accuracy 1")
	link.Emit("Accel Accuracy 3")

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAccuracy did not return")
	}
}

func TestWaitForHonorsContext(t *testing.T) {
	s := newTestSession(t, nustest.New(testAddress), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.WaitAccuracy(ctx, calibration.SensorGyro); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitAccuracy() = %v, want deadline exceeded", err)
	}
}

func TestStreamsAndExpect(t *testing.T) {
	link := nustest.New(testAddress).
		On("-a 1", "ACC_CRCTD_X_Y_Z: 0 0 9.8", "Orient_H_P_R: 1 2 3").
		On("aconf 4 2 2", "Accel Range set to 4G")
	s := newTestSession(t, link, nil)

	_ = s.Send(context.Background(), "-a 1")
	want := []string{notify.TagAccelCorrected, notify.TagOrientation}
	if got := s.StreamsSeen(); !reflect.DeepEqual(got, want) {
		t.Errorf("StreamsSeen() = %v, want %v", got, want)
	}
	s.ResetStreams()
	if len(s.StreamsSeen()) != 0 {
		t.Error("ResetStreams should clear the set")
	}

	_ = s.Send(context.Background(), "aconf 4 2 2")
	if !s.Expect(notify.AccelRangeConfirmation(4)) {
		t.Error("expected range confirmation")
	}
	if s.ExpectWithin(context.Background(), notify.AccelRangeConfirmation(8), 10*time.Millisecond) {
		t.Error("8G was never confirmed")
	}
}

func TestBinaryPayloadIsNotRecorded(t *testing.T) {
	link := nustest.New(testAddress)
	s := newTestSession(t, link, nil)
	link.Emit("\xff\xfe\x00")
	if len(s.Responses()) != 0 {
		t.Error("binary payloads must not be appended")
	}
}

func TestUnparsableAccuracyCountsAsReported(t *testing.T) {
	link := nustest.New(testAddress)
	s := newTestSession(t, link, nil)
	link.Emit("Gyro Accuracy ?")
	if !s.AccuracyReported() {
		t.Error("accuracy line should be reported even if the level does not parse")
	}
	s.ResetAccuracyReported()
	if s.AccuracyReported() {
		t.Error("expected reset")
	}
}

func TestEventsPublished(t *testing.T) {
	hub := events.NewEventHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	link := nustest.New(testAddress).On("actse 54 100", "Gyro Accuracy 3")
	s := newTestSession(t, link, hub)
	_ = s.Send(context.Background(), "actse 54 100")

	var names []string
	for len(ch) > 0 {
		names = append(names, (<-ch).Name)
	}
	want := []string{events.Command, events.Notification, events.Accuracy}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("events = %v, want %v", names, want)
	}
}

func TestStartFailure(t *testing.T) {
	link := nustest.New(testAddress)
	link.FailConnects(1, errors.New("boom"))
	s := New(link, Options{Sleep: noSleep})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
	// Close on a never connected session is a no-op.
	s.Close()
}

func TestOnReading(t *testing.T) {
	link := nustest.New(testAddress)
	s := newTestSession(t, link, nil)
	var got []calibration.Reading
	s.OnReading(func(r calibration.Reading) { got = append(got, r) })
	link.Emit("Gyro Accuracy 3")
	if len(got) != 1 || got[0].Sensor != calibration.SensorGyro || got[0].Level != calibration.LevelHigh {
		t.Errorf("readings = %v", got)
	}
}

func TestResubscribeAfterTakeover(t *testing.T) {
	link := nustest.New(testAddress)
	s := newTestSession(t, link, nil)

	var taken []byte
	if err := link.Subscribe(func(p []byte) { taken = append(taken, p...) }); err != nil {
		t.Fatal(err)
	}
	link.Emit("during transfer")
	if len(s.Responses()) != 0 || string(taken) != "during transfer" {
		t.Fatalf("takeover not in effect: %q %q", s.Responses(), taken)
	}

	if err := s.Resubscribe(); err != nil {
		t.Fatal(err)
	}
	link.Emit("after transfer")
	if got := s.Responses(); !reflect.DeepEqual(got, []string{"after transfer"}) {
		t.Errorf("Responses() = %q", got)
	}
}
