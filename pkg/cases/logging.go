package cases

import (
	"context"
	"time"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/command"
	"github.com/labkit/imucal/pkg/frame"
	"github.com/labkit/imucal/pkg/udf"
	"github.com/labkit/imucal/pkg/verify"
)

const (
	accelGuidance = "Perform accelerometer calibration by keeping each side of the device stable for 3-4 seconds."
	gyroGuidance  = "Gyro calibration started. Keep the device stable for 15 seconds."
)

func init() {
	Register(Case{ID: "2745", Title: "Accelerometer calibration log", LogFile: "lpok.bin", Run: runAccelLog})
	Register(Case{ID: "2745-full", Title: "Accelerometer calibration log with accuracy hold check", LogFile: "jj.bin", Header: udf.AccelHeader, Run: runAccelLogVerified})
	Register(Case{ID: "2760", Title: "Log resume after hub select", LogFile: "resume.bin", Run: runResume})
	Register(Case{ID: "2764", Title: "Linear acceleration and gravity during movement", LogFile: "2764.bin", Run: runLinearAccel})
	Register(Case{ID: "2766", Title: "Game rotation vector with stable point label", LogFile: "2766.bin", Run: runStablePoint})
	Register(Case{ID: "gg", Title: "Accelerometer and gyroscope calibration log", LogFile: "mop.bin", Run: runBothLog})
}

func runAccelLog(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	file := env.file()
	if err := env.Configure(ctx, s, command.StartLog(file), command.ActivateSensor(command.AccelCorrected, 100)); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "waiting for accelerometer accuracy 3")
	if err := s.WaitAccuracy(ctx, calibration.SensorAccel); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseLogging, "accel calibration complete, logging 10s before stopping")
	if err := env.Pause(ctx, 10*time.Second); err != nil {
		return nil, err
	}
	return &verify.Report{}, s.Send(ctx, command.StopLog)
}

func runAccelLogVerified(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	file := env.file()
	if err := env.Configure(ctx, s, command.StartLog(file), command.ActivateSensor(command.AccelCorrected, 100)); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "waiting for accelerometer accuracy 3")
	env.Notify(accelGuidance)
	if err := env.Pause(ctx, 20*time.Second); err != nil {
		return nil, err
	}
	if err := s.WaitAccuracy(ctx, calibration.SensorAccel); err != nil {
		return nil, err
	}
	if err := s.Send(ctx, command.StopLog); err != nil {
		return nil, err
	}

	csv, err := env.Fetch(ctx, s, file)
	if err != nil {
		return nil, err
	}
	rep := &verify.Report{}
	env.SetPhase(calibration.PhaseVerifying, "checking "+csv)
	fr, err := frame.Load(csv)
	if err != nil {
		return nil, err
	}
	res, err := verify.AccuracyHold(fr, verify.ColAccelAccuracy)
	if err != nil {
		return nil, err
	}
	env.Check(rep, res)
	env.plot(fr, "2745", verify.ColAccelAccuracy, res.Status())
	return rep, nil
}

func runResume(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := env.Configure(ctx, s, command.SelectHub(command.IMUHub)); err != nil {
		return nil, err
	}
	if err := env.Pause(ctx, 3*time.Second); err != nil {
		return nil, err
	}
	file := env.file()
	env.SetPhase(calibration.PhaseLogging, "logging to "+file)
	if err := s.SendAll(ctx,
		command.StartLog(file),
		command.ActivateSensor(command.AccelCorrected, 100),
		command.ActivateSensor(command.GyroCorrected, 100),
	); err != nil {
		return nil, err
	}
	if err := env.Pause(ctx, 10*time.Second); err != nil {
		return nil, err
	}
	return &verify.Report{}, s.Send(ctx, command.StopLog)
}

func runLinearAccel(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	file := env.file()
	if err := env.Configure(ctx, s, command.StartLog(file), command.ActivateSensor(command.AccelCorrected, 100)); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "waiting for accelerometer accuracy 3")
	env.Notify(accelGuidance)
	if err := s.WaitAccuracy(ctx, calibration.SensorAccel); err != nil {
		return nil, err
	}

	env.SetPhase(calibration.PhaseLogging, "enabling linear acceleration and gravity")
	if err := s.Send(ctx, command.ActivateSensor(command.Gravity, 100)); err != nil {
		return nil, err
	}
	if err := env.Pause(ctx, 2*time.Second); err != nil {
		return nil, err
	}
	if err := s.Send(ctx, command.ActivateSensor(command.LinearAcceleration, 100)); err != nil {
		return nil, err
	}
	env.Notify(gyroGuidance)
	if err := env.Pause(ctx, 15*time.Second); err != nil {
		return nil, err
	}
	env.Notify("Perform random hand movements for 20 seconds.")
	if err := env.Pause(ctx, 20*time.Second); err != nil {
		return nil, err
	}
	return &verify.Report{}, s.Send(ctx, command.StopLog)
}

func runStablePoint(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	file := env.file()
	if err := env.Configure(ctx, s, command.StartLog(file), command.ActivateSensor(command.GameRotationVector, 100)); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "waiting for gyro then accel accuracy 3")
	env.Notify(gyroGuidance)
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

	env.SetPhase(calibration.PhaseLogging, "labelling stable point")
	env.Notify("Perform AR hand movements for 10 seconds and place the device with the roll axis on the table.")
	if err := env.Pause(ctx, 10*time.Second); err != nil {
		return nil, err
	}
	if err := s.Send(ctx, command.Label("stable_point")); err != nil {
		return nil, err
	}
	if err := env.Pause(ctx, 10*time.Second); err != nil {
		return nil, err
	}
	return &verify.Report{}, s.Send(ctx, command.StopLog)
}

func runBothLog(ctx context.Context, env *Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	s.OnReading(func(r calibration.Reading) {
		if r.Sensor == calibration.SensorAccel && r.Level == calibration.LevelLow {
			env.Notify("Accel accuracy 1 reached. Place each axis of the device flat on the table for 3-4 seconds.")
		}
	})

	file := env.file()
	if err := env.Configure(ctx, s,
		command.StartLog(file),
		command.ActivateSensor(command.AccelCorrected, 100),
		command.ActivateSensor(command.GyroCorrected, 100),
	); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseCalibrating, "waiting for gyro and accel accuracy 3")
	if err := s.WaitBoth(ctx); err != nil {
		return nil, err
	}
	env.SetPhase(calibration.PhaseLogging, "waiting 10s before logging is stopped")
	if err := env.Pause(ctx, 10*time.Second); err != nil {
		return nil, err
	}
	return &verify.Report{}, s.Send(ctx, command.StopLog)
}
