// Package report renders converted log columns as standalone HTML line
// charts.
package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Series colors follow the bench convention of blue for accelerometer data
// and red for everything else.
const (
	accelColor = "blue"
	otherColor = "red"
)

// FileName is the plot file name for col, e.g.
// "accel_corrected_0.a_plot_2748.html".
func FileName(col, tag string) string {
	return fmt.Sprintf("%s_plot_%s.html", strings.ReplaceAll(strings.ToLower(col), " ", "_"), tag)
}

func seriesColor(col string) string {
	if strings.Contains(col, "Accel") {
		return accelColor
	}
	return otherColor
}

// Render writes an HTML line chart of values indexed by row. status, when
// not empty, is appended as a "Test Status" heading.
func Render(col string, values []float64, status string) ([]byte, error) {
	xs := make([]int, len(values))
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		xs[i] = i
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: col}),
		charts.WithTitleOpts(opts.Title{Title: "2D Plot of " + col}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Index"}),
		charts.WithYAxisOpts(opts.YAxis{Name: col}),
	)
	line.SetXAxis(xs).AddSeries(col, data, charts.WithLineStyleOpts(opts.LineStyle{Color: seriesColor(col)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to render plot of %s", col)
	}
	if status != "" {
		fmt.Fprintf(&buf, "<h2>Test Status: %s</h2>", status)
	}
	return buf.Bytes(), nil
}

// LinePlot renders values into dir under FileName(col, tag) and returns the
// path.
func LinePlot(dir, tag, col string, values []float64, status string) (string, error) {
	logrus.WithField("column", col).Info("generating html plot")
	page, err := Render(col, values, status)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to create %s", dir)
	}
	path := filepath.Join(dir, FileName(col, tag))
	if err := os.WriteFile(path, page, 0o644); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to write %s", path)
	}
	fields := logrus.Fields{"file": path}
	if status != "" {
		fields["status"] = status
	}
	logrus.WithFields(fields).Info("plot saved")
	return path, nil
}
