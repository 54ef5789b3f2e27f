package cases

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/command"
	"github.com/labkit/imucal/pkg/session"
	"github.com/labkit/imucal/pkg/verify"
)

// DefaultReconnectAttempts is how many reconnects the persistence case makes.
const DefaultReconnectAttempts = 5

func init() {
	Register(Case{ID: "2759", Title: "Calibration accuracy persists across reconnects", Run: runPersistence})
}

func persistenceSetup(ctx context.Context, env *Env) (*session.Session, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	err = env.Configure(ctx, s,
		command.ActivateSensor(command.GyroCorrected, 100),
		command.ActivateSensor(command.AccelCorrected, 100),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func runPersistence(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := persistenceSetup(ctx, env)
	if err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "gyroscope and accelerometer calibration started")
	if err := s.WaitBoth(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := env.Pause(ctx, 5*time.Second); err != nil {
		s.Close()
		return nil, err
	}
	logrus.Info("calibration complete, disconnecting device")
	s.Close()

	attempts := env.ReconnectAttempts
	if attempts <= 0 {
		attempts = DefaultReconnectAttempts
	}
	rep := &verify.Report{}
	var lastErr error
	env.SetPhase(calibration.PhaseVerifying, "reconnecting")
	for i := 1; i <= attempts; i++ {
		log := logrus.WithField("attempt", i)
		log.Info("reconnecting")
		s, err := persistenceSetup(ctx, env)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			lastErr = err
			log.WithError(err).Warn("reconnection failed, retrying")
			if err := env.Pause(ctx, 2*time.Second); err != nil {
				return rep, err
			}
			continue
		}
		if err := env.Pause(ctx, 3*time.Second); err != nil {
			s.Close()
			return rep, err
		}
		s.Close()
		env.Check(rep, verify.NoAccuracyReported(i, s.AccuracyReported()))
	}
	if len(rep.Results) == 0 {
		env.Check(rep, verify.NoReconnection(attempts, lastErr))
	}
	return rep, nil
}
