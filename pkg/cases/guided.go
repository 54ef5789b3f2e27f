package cases

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/command"
	"github.com/labkit/imucal/pkg/verify"
)

const placeAxesGuidance = "Place each axis of the device flat on the table for 3-4 seconds to complete calibration."

func init() {
	Register(Case{ID: "accel-gyro-calib", Title: "Guided accelerometer and gyroscope calibration", LogFile: "qoq.bin", Endless: true, Run: runGuidedCalibration})
	Register(Case{ID: "heading", Title: "Heading deviation recording", LogFile: "777.bin", Endless: true, Run: runHeading})
	Register(Case{ID: "heading-calib", Title: "Heading deviation recording with calibrated accel and gyro", LogFile: "head.bin", Endless: true, Run: runHeadingCalib})
}

func runGuidedCalibration(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	// Accel guidance is shown once the gyro settles and withdrawn when the
	// accelerometer completes.
	var mu sync.Mutex
	showing := false
	s.OnReading(func(r calibration.Reading) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Sensor == calibration.SensorGyro && r.Level == calibration.LevelHigh && !showing:
			showing = true
			env.Notify(placeAxesGuidance)
		case r.Sensor == calibration.SensorAccel && r.Level == calibration.LevelHigh && showing:
			showing = false
			env.Notify("Accelerometer calibration complete.")
		}
	})

	if err := env.Configure(ctx, s,
		command.StartLog(env.file()),
		command.ActivateSensor(command.AccelCorrected, 100),
		command.ActivateSensor(command.GyroCorrected, 100),
	); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "streaming")
	return &verify.Report{}, env.streamUntilDone(ctx)
}

func runHeading(ctx context.Context, env *Env) (*verify.Report, error) {
	return recordHeading(ctx, env, command.Orientation)
}

func runHeadingCalib(ctx context.Context, env *Env) (*verify.Report, error) {
	return recordHeading(ctx, env, command.AccelCorrected, command.GyroCorrected, command.Orientation)
}

// recordHeading logs with sensors active and brackets the operator's
// movement with start and end heading labels.
func recordHeading(ctx context.Context, env *Env, sensors ...command.SensorID) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	cmds := []string{command.StartLog(env.file())}
	for _, id := range sensors {
		cmds = append(cmds, command.ActivateSensor(id, 100))
	}
	if err := env.Configure(ctx, s, cmds...); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "waiting for accelerometer accuracy 3")
	if err := s.WaitAccuracy(ctx, calibration.SensorAccel); err != nil {
		return nil, err
	}

	env.SetPhase(calibration.PhaseLogging, "heading deviation test")
	p := env.Prompt()
	if err := p.Confirm(ctx, "Keep the device at a reference point for 10 seconds, then start."); err != nil {
		return nil, err
	}
	logrus.Info("marking start heading")
	if err := s.Send(ctx, command.Label(verify.StartHeadingLabel)); err != nil {
		return nil, err
	}
	if err := p.Confirm(ctx, "Perform the necessary movements, return to the reference point, then stop."); err != nil {
		return nil, err
	}
	logrus.Info("marking end heading")
	if err := s.Send(ctx, command.Label(verify.EndHeadingLabel)); err != nil {
		return nil, err
	}
	return &verify.Report{}, env.streamUntilDone(ctx)
}
