package cases

import (
	"context"
	"sync"
	"time"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/command"
	"github.com/labkit/imucal/pkg/notify"
	"github.com/labkit/imucal/pkg/session"
	"github.com/labkit/imucal/pkg/verify"
)

func init() {
	Register(Case{ID: "5116", Title: "Invert quaternion enabled", LogFile: "16.bin", Run: invertQuaternion(true)})
	Register(Case{ID: "5117", Title: "Invert quaternion disabled", LogFile: "teste.bin", Run: invertQuaternion(false)})
}

// bothStartedNotice tells the operator what to do once both sensors report
// level 1.
func bothStartedNotice(env *Env, s *session.Session) {
	var once sync.Once
	s.OnReading(func(calibration.Reading) {
		g, okG := s.Tracker().Latest(calibration.SensorGyro)
		a, okA := s.Tracker().Latest(calibration.SensorAccel)
		if okG && okA && g == calibration.LevelLow && a == calibration.LevelLow {
			once.Do(func() {
				env.Notify(gyroGuidance)
				env.Notify("Accel calibration started. Place each side of the device flat for 3-4 seconds.")
			})
		}
	})
}

func invertQuaternion(on bool) func(context.Context, *Env) (*verify.Report, error) {
	return func(ctx context.Context, env *Env) (*verify.Report, error) {
		s, err := env.Connect(ctx)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		bothStartedNotice(env, s)

		if err := env.Configure(ctx, s,
			command.InvertQuaternion(on),
			command.StartLog(env.file()),
			command.ActivateSensor(command.GameRotationVector, 100),
		); err != nil {
			return nil, err
		}

		rep := &verify.Report{}
		env.Check(rep, verify.Acknowledged("invert quaternion", notify.InvertQuaternionAck(on), s.Responses()))

		env.SetPhase(calibration.PhaseCalibrating, "waiting for gyro and accel accuracy 3")
		if err := s.WaitBothAtHigh(ctx); err != nil {
			return rep, err
		}
		env.Notify("Gyro and accel calibration completed.")
		return rep, env.Pause(ctx, 5*time.Second)
	}
}
