package cases

import (
	"context"
	"time"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/command"
	"github.com/labkit/imucal/pkg/notify"
	"github.com/labkit/imucal/pkg/session"
	"github.com/labkit/imucal/pkg/verify"
)

const rangeSettle = 2 * time.Second

func init() {
	Register(Case{ID: "5120", Title: "Accelerometer range configuration", LogFile: "lal.bin", Run: runAccelRanges})
	Register(Case{ID: "5121", Title: "Gyroscope range configuration", LogFile: "21.bin", Run: runGyroRanges})
}

// sweepRanges applies every range and stops at the first one the firmware
// does not confirm.
func sweepRanges(ctx context.Context, env *Env, s *session.Session, rep *verify.Report, ranges []int, cmd, confirmation func(int) string) error {
	env.SetPhase(calibration.PhaseVerifying, "sweeping ranges")
	for _, r := range ranges {
		if err := s.Send(ctx, cmd(r)); err != nil {
			return err
		}
		if err := env.Pause(ctx, rangeSettle); err != nil {
			return err
		}
		res := verify.RangeConfirmed(confirmation(r), s.Responses())
		env.Check(rep, res)
		if !res.Pass {
			return nil
		}
	}
	return nil
}

func runAccelRanges(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := env.Configure(ctx, s, command.StartLog(env.file()), command.ActivateSensor(command.AccelCorrected, 100)); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "waiting for accelerometer calibration to complete")
	env.Notify(placeAxesGuidance)
	if err := s.WaitAccuracy(ctx, calibration.SensorAccel); err != nil {
		return nil, err
	}
	rep := &verify.Report{}
	return rep, sweepRanges(ctx, env, s, rep, command.AccelRanges, command.AccelRange, notify.AccelRangeConfirmation)
}

func runGyroRanges(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := env.Configure(ctx, s, command.StartLog(env.file()), command.ActivateSensor(command.GyroCorrected, 100)); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "waiting for gyroscope calibration to complete")
	env.Notify(gyroGuidance)
	if err := s.WaitAccuracy(ctx, calibration.SensorGyro); err != nil {
		return nil, err
	}
	rep := &verify.Report{}
	return rep, sweepRanges(ctx, env, s, rep, command.GyroRanges, command.GyroRange, notify.GyroRangeConfirmation)
}
