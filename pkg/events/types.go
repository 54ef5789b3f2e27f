package events

import (
	"encoding/json"
	"time"
)

// Event name constants
const (
	Notification = "notification"
	Command      = "command"
	Accuracy     = "accuracy"
	CasePhase    = "case.phase"
	Check        = "check"
)

// Event is a generic SSE event from a running case.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
	At   time.Time       // Publish time, not serialized on the wire
}

// NotificationEvent carries one decoded line received from the device.
type NotificationEvent struct {
	Address string `json:"address"`
	Line    string `json:"line"`
}

// CommandEvent carries one command sent to the device.
type CommandEvent struct {
	Address string `json:"address"`
	Command string `json:"command"`
}

// AccuracyEvent carries one accuracy reading.
type AccuracyEvent struct {
	Sensor string `json:"sensor"`
	Level  int    `json:"level"`
	// GyroCalibrationMs is set when this reading stopped the gyro timer.
	GyroCalibrationMs int64 `json:"gyroCalibrationMs,omitempty"`
}

// CasePhaseEvent is the typed payload for case.phase.
type CasePhaseEvent struct {
	Case    string `json:"case"`
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message,omitempty"`
	Ts      int64  `json:"ts"`
}

// CheckEvent is published for every finished pass/fail check.
type CheckEvent struct {
	Check  string `json:"check"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail,omitempty"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.CasePhaseEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.From, payload.To)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
