package bench

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/events"
)

// maxResponses is how many device lines the monitor keeps for /responses.
const maxResponses = 500

// Monitor folds hub events into the status of the running case.
type Monitor struct {
	mu        sync.RWMutex
	status    calibration.Status
	responses []string
}

func NewMonitor() *Monitor {
	m := &Monitor{}
	m.status = newStatus("", time.Time{})
	return m
}

func newStatus(caseID string, at time.Time) calibration.Status {
	return calibration.Status{
		Case:      caseID,
		Phase:     calibration.PhaseIdle,
		StartedAt: at,
		Accuracy:  map[calibration.Sensor]calibration.Level{},
	}
}

// Run subscribes to hub and applies events until ctx is done.
func (m *Monitor) Run(ctx context.Context, hub *events.EventHub) {
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			m.Apply(ev)
		}
	}
}

// Apply folds one event into the status.
func (m *Monitor) Apply(ev events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Name {
	case events.CasePhase:
		p, err := events.DecodeAs[events.CasePhaseEvent](ev)
		if err != nil {
			break
		}
		// Every run opens with a transition out of Idle, including a
		// scheduled repeat of the same case.
		if p.Case != m.status.Case || p.From == string(calibration.PhaseIdle) {
			addr := m.status.Address
			m.status = newStatus(p.Case, ev.At)
			m.status.Address = addr
			m.responses = nil
		}
		m.status.Phase = calibration.Phase(p.To)
		m.status.Message = p.Message
	case events.Command:
		p, err := events.DecodeAs[events.CommandEvent](ev)
		if err != nil {
			break
		}
		m.status.Address = p.Address
		m.status.LastCommand = p.Command
	case events.Notification:
		p, err := events.DecodeAs[events.NotificationEvent](ev)
		if err != nil {
			break
		}
		m.status.Responses++
		m.responses = append(m.responses, p.Line)
		if n := len(m.responses); n > maxResponses {
			m.responses = append([]string(nil), m.responses[n-maxResponses:]...)
		}
	case events.Accuracy:
		p, err := events.DecodeAs[events.AccuracyEvent](ev)
		if err != nil {
			break
		}
		s, l := calibration.Sensor(p.Sensor), calibration.Level(p.Level)
		m.status.Accuracy[s] = l
		if l == calibration.LevelHigh {
			switch s {
			case calibration.SensorAccel:
				m.status.AccelComplete = true
			case calibration.SensorGyro:
				m.status.GyroComplete = true
			}
		}
		if p.GyroCalibrationMs > 0 {
			m.status.GyroCalibrationSecs = float64(p.GyroCalibrationMs) / 1000
		}
	case events.Check:
		p, err := events.DecodeAs[events.CheckEvent](ev)
		if err != nil {
			break
		}
		if p.Pass {
			m.status.Passed++
		} else {
			m.status.Failed++
		}
	default:
		logrus.WithField("event", ev.Name).Debug("ignoring unknown event")
	}
}

// Status returns a copy of the current status.
func (m *Monitor) Status() calibration.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.status
	st.Accuracy = make(map[calibration.Sensor]calibration.Level, len(m.status.Accuracy))
	for k, v := range m.status.Accuracy {
		st.Accuracy[k] = v
	}
	return st
}

// Responses returns the last n device lines, or all kept lines if n <= 0.
func (m *Monitor) Responses(n int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs := m.responses
	if n > 0 && n < len(rs) {
		rs = rs[len(rs)-n:]
	}
	return append([]string{}, rs...)
}
