package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileName(t *testing.T) {
	if got := FileName("Accel Corrected 0.a", "2748"); got != "accel_corrected_0.a_plot_2748.html" {
		t.Errorf("FileName() = %s", got)
	}
}

func TestSeriesColor(t *testing.T) {
	if seriesColor("Accel Corrected 0.a") != "blue" || seriesColor("Gyro Corrected 0.a") != "red" {
		t.Error("unexpected series colors")
	}
}

func TestLinePlot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	path, err := LinePlot(dir, "2748", "Gyro Corrected 0.a", []float64{0, 1, math.NaN(), 3}, "PASS")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "gyro_corrected_0.a_plot_2748.html" {
		t.Errorf("path = %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	page := string(b)
	for _, want := range []string{"2D Plot of Gyro Corrected 0.a", "Index"} {
		if !strings.Contains(page, want) {
			t.Errorf("page lacks %q", want)
		}
	}
	if !strings.HasSuffix(page, "<h2>Test Status: PASS</h2>") {
		t.Error("status heading should end the page")
	}
}

func TestRenderWithoutStatus(t *testing.T) {
	page, err := Render("Accel Corrected 0.a", []float64{1, 2}, "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(page), "Test Status") {
		t.Error("no status heading expected")
	}
}
