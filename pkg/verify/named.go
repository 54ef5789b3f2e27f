package verify

import (
	"fmt"

	"github.com/labkit/imucal/pkg/frame"
)

// Named checks that run on a converted CSV.
const (
	CheckAccuracyHold = "accuracy-hold"
	CheckGyroBias     = "gyro-bias"
	CheckHeading      = "heading"
	CheckGRVNegativeW = "grv-negative-w"
	CheckAccelRaw     = "accel-raw"
)

// Checks lists every named check.
var Checks = []string{CheckAccuracyHold, CheckGyroBias, CheckHeading, CheckGRVNegativeW, CheckAccelRaw}

// Options tunes the named checks.
type Options struct {
	GyroBiasLimit       float64
	MaxHeadingDeviation float64
}

// RunNamed applies the check called name to fr, loaded from csvPath.
// accuracy-hold runs on every accuracy column present.
func RunNamed(name string, fr *frame.Frame, csvPath string, o Options) ([]Result, error) {
	switch name {
	case CheckAccuracyHold:
		var out []Result
		for _, col := range []string{ColAccelAccuracy, ColGyroAccuracy} {
			if !fr.Has(col) {
				continue
			}
			res, err := AccuracyHold(fr, col)
			if err != nil {
				return nil, err
			}
			out = append(out, res)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("neither %q nor %q found in the csv", ColAccelAccuracy, ColGyroAccuracy)
		}
		return out, nil
	case CheckGyroBias:
		res, err := GyroBias(fr, o.GyroBiasLimit)
		return single(res, err)
	case CheckHeading:
		res, err := HeadingDeviation(fr, o.MaxHeadingDeviation)
		return single(res, err)
	case CheckGRVNegativeW:
		res, err := NegativeRealPart(fr)
		return single(res, err)
	case CheckAccelRaw:
		res, _, err := AccelRawConsistency(fr, csvPath)
		return single(res, err)
	}
	return nil, fmt.Errorf("unknown check %q, available: %v", name, Checks)
}

func single(res Result, err error) ([]Result, error) {
	if err != nil {
		return nil, err
	}
	return []Result{res}, nil
}
