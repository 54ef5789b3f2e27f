package calibration

import (
	"sync"
	"time"
)

// Tracker folds accuracy readings into completion flags. Completion is
// sticky: once a sensor reported level 3 it stays complete even if the
// firmware later reports a lower level.
//
// The gyro timer starts at the first level 1 while no timer runs and stops at
// level 3, recording how long the gyro took to calibrate.
type Tracker struct {
	mu sync.Mutex

	latest   map[Sensor]Level
	reported bool
	accel    bool
	gyro     bool

	gyroStart    time.Time
	gyroDuration time.Duration
}

func NewTracker() *Tracker {
	return &Tracker{latest: map[Sensor]Level{}}
}

// Observe records one reading taken at at. It returns true when the reading
// completed the sensor for the first time.
func (t *Tracker) Observe(r Reading, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reported = true
	t.latest[r.Sensor] = r.Level

	completed := false
	switch r.Sensor {
	case SensorAccel:
		if r.Level == LevelHigh && !t.accel {
			t.accel = true
			completed = true
		}
	case SensorGyro:
		if r.Level == LevelLow && t.gyroStart.IsZero() {
			t.gyroStart = at
		}
		if r.Level == LevelHigh {
			if !t.gyroStart.IsZero() {
				t.gyroDuration = at.Sub(t.gyroStart)
				t.gyroStart = time.Time{}
			}
			if !t.gyro {
				t.gyro = true
				completed = true
			}
		}
	}
	return completed
}

// Complete reports whether s has reached level 3.
func (t *Tracker) Complete(s Sensor) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch s {
	case SensorAccel:
		return t.accel
	case SensorGyro:
		return t.gyro
	}
	return false
}

// Latest returns the last level reported for s.
func (t *Tracker) Latest(s Sensor) (Level, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.latest[s]
	return l, ok
}

// Reported reports whether any accuracy reading was observed since the last
// ResetReported.
func (t *Tracker) Reported() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reported
}

func (t *Tracker) ResetReported() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reported = false
}

// GyroTiming returns the last measured gyro calibration time, and whether the
// timer is currently running.
func (t *Tracker) GyroTiming() (d time.Duration, running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gyroDuration, !t.gyroStart.IsZero()
}
