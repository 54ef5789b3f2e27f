package verify

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/labkit/imucal/pkg/frame"
)

// Column names written by the converter.
const (
	ColAccelAccuracy = "Accel Corrected 0.a"
	ColGyroAccuracy  = "Gyro Corrected 0.a"
	ColGyroX         = "Gyro Corrected 0.x"
	ColGyroY         = "Gyro Corrected 0.y"
	ColGyroZ         = "Gyro Corrected 0.z"
	ColLabel         = "Label data .l"
	ColHeading       = "Orientation 0 (rad).h"
	ColGRVReal       = "Game Rotation vector 0.w"
)

const (
	// StandardGravity converts g to m/s².
	StandardGravity = 9.80665

	StartHeadingLabel = "start_heading"
	EndHeadingLabel   = "end_heading"

	// DefaultGyroBiasLimit is the allowed mean gyro output at rest, in mdps.
	DefaultGyroBiasLimit = 50.0

	accelRawWindow = 4
	accelRawSkip   = 20
)

// firstIndex returns the first index where vs equals target.
func firstIndex(vs []float64, target float64) int {
	for i, v := range vs {
		if v == target {
			return i
		}
	}
	return -1
}

// meanSkipNaN averages the non-NaN values. It returns NaN if there are none.
func meanSkipNaN(vs []float64) float64 {
	var sum float64
	var n int
	for _, v := range vs {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// AccuracyHold passes when col reaches 3 and never drops to 0, 1 or 2 after.
func AccuracyHold(fr *frame.Frame, col string) (Result, error) {
	vs, err := fr.Numeric(col)
	if err != nil {
		return Result{}, err
	}
	check := "accuracy hold: " + col
	first := firstIndex(vs, 3)
	if first < 0 {
		return Result{Check: check, Detail: "accuracy never reaches 3"}, nil
	}
	for i := first; i < len(vs); i++ {
		switch vs[i] {
		case 0, 1, 2:
			return Result{
				Check:  check,
				Detail: fmt.Sprintf("reached 3 at row %d, dropped to %g at row %d", first, vs[i], i),
				Values: map[string]float64{"firstReach3": float64(first), "dropRow": float64(i)},
			}, nil
		}
	}
	return Result{
		Check:  check,
		Pass:   true,
		Detail: fmt.Sprintf("reached 3 at row %d and held", first),
		Values: map[string]float64{"firstReach3": float64(first)},
	}, nil
}

// GyroBias passes when the mean gyro output after the gyro reached accuracy
// 3 stays within limitMdps on every axis.
func GyroBias(fr *frame.Frame, limitMdps float64) (Result, error) {
	if limitMdps <= 0 {
		limitMdps = DefaultGyroBiasLimit
	}
	acc, err := fr.Numeric(ColGyroAccuracy)
	if err != nil {
		return Result{}, err
	}
	check := "gyro bias"
	start := firstIndex(acc, 3)
	if start < 0 {
		return Result{Check: check, Detail: "gyro accuracy never reaches 3, no conversion performed"}, nil
	}

	values := map[string]float64{"startRow": float64(start)}
	pass := true
	var parts []string
	for _, axis := range []struct{ name, col string }{{"x", ColGyroX}, {"y", ColGyroY}, {"z", ColGyroZ}} {
		vs, err := fr.Numeric(axis.col)
		if err != nil {
			return Result{}, err
		}
		mdps := meanSkipNaN(vs[start:]) * 180 / math.Pi * 1000
		values[axis.name] = mdps
		if !(math.Abs(mdps) <= limitMdps) {
			pass = false
		}
		parts = append(parts, fmt.Sprintf("%s=%.2f", axis.name, mdps))
	}

	detail := fmt.Sprintf("average mdps %s", strings.Join(parts, " "))
	if pass {
		detail += fmt.Sprintf(", within %g mdps", limitMdps)
	} else {
		detail += fmt.Sprintf(", not within %g mdps", limitMdps)
	}
	return Result{Check: check, Pass: pass, Detail: detail, Values: values}, nil
}

// labelledValue returns the first numeric heading after the first row whose
// label contains label.
func labelledValue(labels []string, heading []float64, label string) (float64, bool) {
	for i, l := range labels {
		if !strings.Contains(l, label) {
			continue
		}
		for j := i + 1; j < len(heading); j++ {
			if !math.IsNaN(heading[j]) {
				return heading[j], true
			}
		}
		return 0, false
	}
	return 0, false
}

// HeadingChange returns the smallest angle in degrees between two headings
// in radians. A heading of exactly 0 is treated as 360.
func HeadingChange(initialRad, finalRad float64) float64 {
	i := initialRad * 180 / math.Pi
	f := finalRad * 180 / math.Pi
	if i == 0 {
		i = 360
	}
	if f == 0 {
		f = 360
	}
	m := math.Mod(f-i+180, 360)
	if m < 0 {
		m += 360
	}
	dev := math.Abs(m - 180)
	if dev > 180 {
		dev = 360 - dev
	}
	return dev
}

// HeadingDeviation measures heading drift between the start_heading and
// end_heading labels. With maxDeg > 0 the deviation must not exceed it;
// otherwise the check passes whenever both headings are found.
func HeadingDeviation(fr *frame.Frame, maxDeg float64) (Result, error) {
	labels, err := fr.Strings(ColLabel)
	if err != nil {
		return Result{}, err
	}
	heading, err := fr.Numeric(ColHeading)
	if err != nil {
		return Result{}, err
	}
	check := "heading deviation"
	initial, okI := labelledValue(labels, heading, StartHeadingLabel)
	final, okF := labelledValue(labels, heading, EndHeadingLabel)
	if !okI || !okF {
		return Result{Check: check, Detail: "initial and/or final value is missing, deviation cannot be calculated"}, nil
	}

	dev := HeadingChange(initial, final)
	res := Result{
		Check: check,
		Pass:  maxDeg <= 0 || dev <= maxDeg,
		Values: map[string]float64{
			"initialRad": initial,
			"finalRad":   final,
			"deviation":  dev,
		},
		Detail: fmt.Sprintf("deviation %.3f°", dev),
	}
	if maxDeg > 0 {
		res.Detail += fmt.Sprintf(" (limit %g°)", maxDeg)
	}
	return res, nil
}

// NegativeRealPart passes when the game rotation vector's real part goes
// negative at least once, which only happens with an uninverted quaternion.
func NegativeRealPart(fr *frame.Frame) (Result, error) {
	vs, err := fr.Numeric(ColGRVReal)
	if err != nil {
		return Result{}, err
	}
	check := "negative real part"
	n := 0
	for _, v := range vs {
		if v < 0 {
			n++
		}
	}
	if n == 0 {
		return Result{Check: check, Detail: "no negative values in " + ColGRVReal}, nil
	}
	return Result{
		Check:  check,
		Pass:   true,
		Detail: fmt.Sprintf("%d negative real parts found in %s", n, ColGRVReal),
		Values: map[string]float64{"negative": float64(n)},
	}, nil
}

func rollingMean(vs []float64, window int) []float64 {
	out := make([]float64, len(vs))
	for i := range vs {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for _, v := range vs[i-window+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// AccelRawConsistency checks that the raw accelerometer channel equals the
// 4-sample moving average of the calibrated accelerometer converted to m/s².
// After the first 20 rows every difference must be zero or missing. The
// computed columns are written to verified_<name> next to csvPath.
func AccelRawConsistency(fr *frame.Frame, csvPath string) (Result, string, error) {
	axes := []string{"x", "y", "z"}
	var accelCols, convCols, avgCols, rawCols, diffCols []string
	for _, a := range axes {
		accelCols = append(accelCols, "Accelerometer (g)."+a)
		convCols = append(convCols, "Accel (m/s²)."+a)
		avgCols = append(avgCols, "Accel Avg."+a)
		rawCols = append(rawCols, "Accel Raw 0."+a)
		diffCols = append(diffCols, "Accel Diff."+a)
	}

	out, err := fr.Select(accelCols...)
	if err != nil {
		return Result{}, "", err
	}
	conv := make([][]float64, len(axes))
	avg := make([][]float64, len(axes))
	raw := make([][]float64, len(axes))
	dif := make([][]float64, len(axes))
	for i := range axes {
		g, err := fr.Numeric(accelCols[i])
		if err != nil {
			return Result{}, "", err
		}
		if raw[i], err = fr.Numeric(rawCols[i]); err != nil {
			return Result{}, "", err
		}
		conv[i] = make([]float64, len(g))
		for r, v := range g {
			conv[i][r] = v * StandardGravity
		}
		avg[i] = rollingMean(conv[i], accelRawWindow)
		dif[i] = make([]float64, len(g))
		for r := range g {
			dif[i][r] = round5(avg[i][r] - raw[i][r])
		}
	}
	for _, group := range []struct {
		cols []string
		vals [][]float64
	}{{convCols, conv}, {avgCols, avg}, {rawCols, raw}, {diffCols, dif}} {
		for i, c := range group.cols {
			out.AddNumeric(c, group.vals[i])
		}
	}

	check := "accel raw consistency"
	var bad []string
	for r := accelRawSkip; r < fr.Len(); r++ {
		for i, a := range axes {
			d := dif[i][r]
			if math.IsNaN(d) || math.Abs(d) < 1e-5 {
				continue
			}
			bad = append(bad, fmt.Sprintf("row %d %s=%g", r, a, d))
		}
	}

	verified := filepath.Join(filepath.Dir(csvPath), "verified_"+filepath.Base(csvPath))
	if err := out.Save(verified); err != nil {
		return Result{}, "", err
	}

	res := Result{Check: check, Pass: len(bad) == 0, Values: map[string]float64{"nonzero": float64(len(bad))}}
	if res.Pass {
		res.Detail = fmt.Sprintf("all differences after %d samples are zero", accelRawSkip)
	} else {
		shown := bad
		if len(shown) > 10 {
			shown = shown[:10]
		}
		res.Detail = fmt.Sprintf("%d nonzero differences: %s", len(bad), strings.Join(shown, "; "))
	}
	return res, verified, nil
}

// LoadAndCheck loads csvPath and applies fn, wrapping errors with the path.
func LoadAndCheck(csvPath string, fn func(*frame.Frame) (Result, error)) (Result, error) {
	if _, err := os.Stat(csvPath); err != nil {
		return Result{}, pkgerrors.Wrapf(err, "csv %s", csvPath)
	}
	fr, err := frame.Load(csvPath)
	if err != nil {
		return Result{}, err
	}
	res, err := fn(fr)
	if err != nil {
		return Result{}, pkgerrors.Wrapf(err, "check failed on %s", csvPath)
	}
	return res, nil
}
