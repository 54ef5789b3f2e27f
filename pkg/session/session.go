// Package session drives one connected run against a device: it sends
// commands, records every notification line and tracks calibration accuracy.
package session

import (
	"context"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/events"
	"github.com/labkit/imucal/pkg/notify"
	"github.com/labkit/imucal/pkg/nus"
)

// DefaultCommandDelay is how long the firmware needs to settle after a command.
const DefaultCommandDelay = 500 * time.Millisecond

// Options configures a Session.
type Options struct {
	// CommandDelay is slept after every command.
	CommandDelay time.Duration
	// ChunkSize is the largest frame written to RX.
	ChunkSize int
	// Hub receives notification, command and accuracy events. May be nil.
	Hub *events.EventHub
	// Sleep is used for the command delay. Defaults to Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Session is one connected run. It is safe for concurrent use; notifications
// arrive on the link's goroutine while the caller sends commands.
type Session struct {
	link    nus.Link
	opts    Options
	log     *logrus.Entry
	tracker *calibration.Tracker
	now     func() time.Time

	mu        sync.Mutex
	responses []string
	streams   map[string]struct{}
	changed   chan struct{}
	accuracy  bool
	onReading func(calibration.Reading)
}

func New(link nus.Link, opts Options) *Session {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = nus.DefaultChunkSize
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	return &Session{
		link:    link,
		opts:    opts,
		log:     logrus.WithField("address", nus.ShortAddress(link.Address())),
		tracker: calibration.NewTracker(),
		now:     time.Now,
		streams: map[string]struct{}{},
		changed: make(chan struct{}),
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Link returns the underlying link.
func (s *Session) Link() nus.Link { return s.link }

// Tracker returns the accuracy tracker fed by this session.
func (s *Session) Tracker() *calibration.Tracker { return s.tracker }

// OnReading registers fn to be called for every accuracy reading, after the
// tracker observed it.
func (s *Session) OnReading(fn func(calibration.Reading)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReading = fn
}

// Start connects the link and subscribes to notifications.
func (s *Session) Start(ctx context.Context) error {
	if err := s.link.Connect(ctx); err != nil {
		return pkgerrors.Wrapf(err, "failed to connect to %s", s.link.Address())
	}
	if err := s.link.Subscribe(s.handle); err != nil {
		_ = s.link.Disconnect()
		return pkgerrors.Wrap(err, "failed to subscribe to notifications")
	}
	s.log.Infof("connected to %s (%s)", nus.ShortAddress(s.link.Address()), s.link.Address())
	return nil
}

// Resubscribe reinstalls the session's notification handler, e.g. after a
// file transfer took the link over.
func (s *Session) Resubscribe() error {
	return s.link.Subscribe(s.handle)
}

// Close unsubscribes and disconnects. Errors are logged, not returned.
func (s *Session) Close() {
	if !s.link.Connected() {
		return
	}
	if err := s.link.Unsubscribe(); err != nil {
		s.log.WithError(err).Warn("failed to stop notifications")
	}
	if err := s.link.Disconnect(); err != nil {
		s.log.WithError(err).Error("failed to disconnect")
		return
	}
	s.log.Infof("disconnected from %s", nus.ShortAddress(s.link.Address()))
}

func (s *Session) handle(payload []byte) {
	line, ok := notify.Decode(payload)
	if !ok {
		s.log.WithField("payload", hex.EncodeToString(payload)).Debug("received binary notification")
		return
	}
	s.log.WithField("line", line).Info("received")
	s.opts.Hub.Publish(events.Notification, events.NotificationEvent{Address: s.link.Address(), Line: line})

	now := s.now()
	for _, r := range notify.ParseAccuracy(line) {
		_, wasRunning := s.tracker.GyroTiming()
		if s.tracker.Observe(r, now) {
			s.log.WithField("sensor", r.Sensor).Info("calibration complete")
		}
		ev := events.AccuracyEvent{Sensor: string(r.Sensor), Level: int(r.Level)}
		if d, running := s.tracker.GyroTiming(); wasRunning && !running {
			s.log.WithField("duration", d.Round(10*time.Millisecond)).Info("gyroscope calibration time measured")
			ev.GyroCalibrationMs = d.Milliseconds()
		}
		s.opts.Hub.Publish(events.Accuracy, ev)

		s.mu.Lock()
		fn := s.onReading
		s.mu.Unlock()
		if fn != nil {
			fn(r)
		}
	}

	s.mu.Lock()
	s.responses = append(s.responses, line)
	if notify.IsAccuracy(line) {
		s.accuracy = true
	}
	for _, tag := range notify.StreamTags(line, notify.AllStreamTags) {
		s.streams[tag] = struct{}{}
	}
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Send writes command and waits for the firmware to settle.
func (s *Session) Send(ctx context.Context, command string) error {
	s.log.WithField("command", command).Info("sending")
	s.opts.Hub.Publish(events.Command, events.CommandEvent{Address: s.link.Address(), Command: command})
	if err := nus.WriteCommand(s.link, command, s.opts.ChunkSize); err != nil {
		return err
	}
	return s.opts.Sleep(ctx, s.opts.CommandDelay)
}

// SendAll sends commands in order and stops at the first error.
func (s *Session) SendAll(ctx context.Context, commands ...string) error {
	for _, c := range commands {
		if err := s.Send(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// WaitFor blocks until cond returns true or ctx is done. cond is evaluated
// once up front and again after every notification.
func (s *Session) WaitFor(ctx context.Context, cond func() bool) error {
	for {
		s.mu.Lock()
		ch := s.changed
		s.mu.Unlock()
		if cond() {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitAccuracy blocks until sensor reached level 3.
func (s *Session) WaitAccuracy(ctx context.Context, sensor calibration.Sensor) error {
	return s.WaitFor(ctx, func() bool { return s.tracker.Complete(sensor) })
}

// WaitBoth blocks until the gyro and then the accelerometer reached level 3.
func (s *Session) WaitBoth(ctx context.Context) error {
	if err := s.WaitAccuracy(ctx, calibration.SensorGyro); err != nil {
		return err
	}
	return s.WaitAccuracy(ctx, calibration.SensorAccel)
}

// WaitBothAtHigh blocks until the latest gyro and accel readings are both
// level 3. Unlike WaitBoth, a sensor that reached 3 and dropped back must
// reach 3 again.
func (s *Session) WaitBothAtHigh(ctx context.Context) error {
	return s.WaitFor(ctx, func() bool {
		g, okG := s.tracker.Latest(calibration.SensorGyro)
		a, okA := s.tracker.Latest(calibration.SensorAccel)
		return okG && okA && g == calibration.LevelHigh && a == calibration.LevelHigh
	})
}

// Expect reports whether any received line contains substr.
func (s *Session) Expect(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.responses {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}

// ExpectWithin waits up to d for a line containing substr.
func (s *Session) ExpectWithin(ctx context.Context, substr string, d time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return s.WaitFor(ctx, func() bool { return s.Expect(substr) }) == nil
}

// Responses returns a copy of every line received so far.
func (s *Session) Responses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.responses...)
}

// StreamsSeen returns the stream tags seen since the last ResetStreams, sorted.
func (s *Session) StreamsSeen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.streams))
	for tag := range s.streams {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func (s *Session) ResetStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = map[string]struct{}{}
}

// AccuracyReported reports whether any accuracy line arrived since the last
// ResetAccuracyReported, including lines whose level did not parse.
func (s *Session) AccuracyReported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accuracy
}

func (s *Session) ResetAccuracyReported() {
	s.mu.Lock()
	s.accuracy = false
	s.mu.Unlock()
	s.tracker.ResetReported()
}
