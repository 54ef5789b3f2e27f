package cases

import (
	"context"
	"fmt"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/frame"
	"github.com/labkit/imucal/pkg/verify"
)

func init() {
	Register(Case{ID: "2748-verify", Title: "Accel and gyro accuracy hold in retrieved log", LogFile: "616.bin", Run: runAccuracyHoldVerify})
	Register(Case{ID: "2753-verify", Title: "Gyro bias at rest in retrieved log", LogFile: "2753.bin", Run: runGyroBiasVerify})
	Register(Case{ID: "4676-verify", Title: "Raw accelerometer matches averaged calibrated data", LogFile: "4676.bin", Run: runAccelRawVerify})
	Register(Case{ID: "5117-verify", Title: "Negative quaternion real part with inversion disabled", LogFile: "teste.bin", Run: runNegativeRealVerify})
	Register(Case{ID: "heading-verify", Title: "Heading deviation in retrieved log", LogFile: "0986.bin", Run: runHeadingVerify})
	Register(Case{ID: "binread", Title: "Retrieve, convert and preview a log", LogFile: "teste.bin", Run: runBinRead})
}

// retrieveFrame connects, pulls the case's log file and loads the CSV.
func retrieveFrame(ctx context.Context, env *Env) (*frame.Frame, string, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, "", err
	}
	defer s.Close()

	csv, err := env.Fetch(ctx, s, env.file())
	if err != nil {
		return nil, "", err
	}
	fr, err := frame.Load(csv)
	if err != nil {
		return nil, "", err
	}
	env.SetPhase(calibration.PhaseVerifying, "checking "+csv)
	return fr, csv, nil
}

func runAccuracyHoldVerify(ctx context.Context, env *Env) (*verify.Report, error) {
	fr, _, err := retrieveFrame(ctx, env)
	if err != nil {
		return nil, err
	}
	rep := &verify.Report{}
	for _, col := range []string{verify.ColAccelAccuracy, verify.ColGyroAccuracy} {
		res, err := verify.AccuracyHold(fr, col)
		if err != nil {
			return rep, err
		}
		env.Check(rep, res)
		env.plot(fr, "2748", col, res.Status())
	}
	return rep, nil
}

func runGyroBiasVerify(ctx context.Context, env *Env) (*verify.Report, error) {
	fr, _, err := retrieveFrame(ctx, env)
	if err != nil {
		return nil, err
	}
	rep := &verify.Report{}
	res, err := verify.GyroBias(fr, env.GyroBiasLimit)
	if err != nil {
		return rep, err
	}
	env.Check(rep, res)
	env.plot(fr, "2753", verify.ColGyroAccuracy, "")
	return rep, nil
}

func runAccelRawVerify(ctx context.Context, env *Env) (*verify.Report, error) {
	fr, csv, err := retrieveFrame(ctx, env)
	if err != nil {
		return nil, err
	}
	rep := &verify.Report{}
	res, out, err := verify.AccelRawConsistency(fr, csv)
	if err != nil {
		return rep, err
	}
	env.Check(rep, res)
	fmt.Fprintf(env.out(), "Processed data saved to %s\n", out)
	return rep, nil
}

func runNegativeRealVerify(ctx context.Context, env *Env) (*verify.Report, error) {
	fr, _, err := retrieveFrame(ctx, env)
	if err != nil {
		return nil, err
	}
	rep := &verify.Report{}
	res, err := verify.NegativeRealPart(fr)
	if err != nil {
		return rep, err
	}
	env.Check(rep, res)
	return rep, nil
}

func runHeadingVerify(ctx context.Context, env *Env) (*verify.Report, error) {
	fr, _, err := retrieveFrame(ctx, env)
	if err != nil {
		return nil, err
	}
	rep := &verify.Report{}
	res, err := verify.HeadingDeviation(fr, env.MaxHeadingDeviation)
	if err != nil {
		return rep, err
	}
	env.Check(rep, res)
	return rep, nil
}

func runBinRead(ctx context.Context, env *Env) (*verify.Report, error) {
	fr, csv, err := retrieveFrame(ctx, env)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(env.out(), "CSV data from %s (head):\n%s", csv, fr.Head(5))
	return &verify.Report{}, nil
}
