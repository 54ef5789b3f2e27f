package cases

import (
	"context"
	"time"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/command"
	"github.com/labkit/imucal/pkg/notify"
	"github.com/labkit/imucal/pkg/verify"
)

var (
	toggledSensors = []command.SensorID{
		command.Orientation,
		command.Gravity,
		command.LinearAcceleration,
		command.AccelCorrected,
	}
	toggledTags = []string{
		notify.TagOrientation,
		notify.TagGravity,
		notify.TagLinearAccel,
		notify.TagAccelCorrected,
	}

	presenceSensors = []command.SensorID{
		command.AccelCorrected,
		command.GyroCorrected,
		command.Gravity,
		command.LinearAcceleration,
		command.GyroPassthrough,
		command.AccelRaw,
	}
	presenceTags = []string{
		notify.TagGyroCorrected,
		notify.TagGravity,
		notify.TagLinearAccel,
		notify.TagAccelCorrected,
		notify.TagGyroPassthrough,
		notify.TagAccelRaw,
	}
)

func init() {
	Register(Case{ID: "2758", Title: "Sensor streams stop after deactivation", Run: runStreamToggle})
	Register(Case{ID: "2763", Title: "All sensor streams present", Run: runStreamPresence})
}

func activate(ids []command.SensorID, rate int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, command.ActivateSensor(id, rate))
	}
	return out
}

func runStreamToggle(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := env.Configure(ctx, s, activate(toggledSensors, 50)...); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "waiting 15s for gyro calibration")
	if err := env.Pause(ctx, 15*time.Second); err != nil {
		return nil, err
	}
	if err := s.WaitAccuracy(ctx, calibration.SensorGyro); err != nil {
		return nil, err
	}
	env.Notify(accelGuidance)
	if err := s.WaitAccuracy(ctx, calibration.SensorAccel); err != nil {
		return nil, err
	}

	rep := &verify.Report{}
	env.SetPhase(calibration.PhaseVerifying, "checking sensor streams")
	if err := s.Send(ctx, command.StreamOutput(true)); err != nil {
		return nil, err
	}
	env.Check(rep, verify.StreamsPresent(s.StreamsSeen(), toggledTags))

	if err := s.SendAll(ctx, activate(toggledSensors, 0)...); err != nil {
		return nil, err
	}
	s.ResetStreams()
	if err := env.Pause(ctx, 10*time.Second); err != nil {
		return nil, err
	}
	env.Check(rep, verify.StreamsAbsent(s.StreamsSeen(), toggledTags))

	return rep, s.Send(ctx, command.StopLog)
}

func runStreamPresence(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	cmds := append(activate(presenceSensors, 50), command.StreamOutput(true))
	if err := env.Configure(ctx, s, cmds...); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseVerifying, "streaming for 15s")
	if err := env.Pause(ctx, 15*time.Second); err != nil {
		return nil, err
	}
	rep := &verify.Report{}
	env.Check(rep, verify.StreamsPresent(s.StreamsSeen(), presenceTags))
	return rep, s.Send(ctx, command.StreamOutput(false))
}
