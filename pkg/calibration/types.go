package calibration

import "time"

// Sensor names a calibrated sensor.
type Sensor string

const (
	SensorAccel Sensor = "accel"
	SensorGyro  Sensor = "gyro"
)

// Level is the firmware's self-reported calibration confidence, 0 to 3.
type Level int

const (
	LevelUnreliable Level = 0
	LevelLow        Level = 1
	LevelMedium     Level = 2
	LevelHigh       Level = 3
)

// Reading is one accuracy report for one sensor.
type Reading struct {
	Sensor Sensor `json:"sensor"`
	Level  Level  `json:"level"`
}

// Phase defines the steps of a test-case run.
type Phase string

const (
	PhaseIdle        Phase = "Idle"
	PhaseConnecting  Phase = "Connecting"
	PhaseConfiguring Phase = "Configuring"
	PhaseCalibrating Phase = "Calibrating"
	PhaseLogging     Phase = "Logging"
	PhaseRetrieving  Phase = "Retrieving"
	PhaseConverting  Phase = "Converting"
	PhaseVerifying   Phase = "Verifying"
	PhaseDone        Phase = "Done"
	PhaseError       Phase = "Error"
)

// Status is a synthesized view model exposed via the bench socket. It derives
// from the events a running case publishes.
type Status struct {
	Case          string           `json:"case"`
	Address       string           `json:"address"`
	Phase         Phase            `json:"phase"`
	StartedAt     time.Time        `json:"startedAt"`
	Accuracy      map[Sensor]Level `json:"accuracy"`
	AccelComplete bool             `json:"accelComplete"`
	GyroComplete  bool             `json:"gyroComplete"`
	// GyroCalibrationSecs is set once the gyro went from level 1 to 3.
	GyroCalibrationSecs float64 `json:"gyroCalibrationSeconds,omitempty"`
	LastCommand         string  `json:"lastCommand"`
	Responses           int     `json:"responses"`
	Passed              int     `json:"passed"`
	Failed              int     `json:"failed"`
	Message             string  `json:"message"`
}
