package verify

import (
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestReport(t *testing.T) {
	var r Report
	if !r.Passed() || r.Err() != nil {
		t.Fatal("empty report should pass")
	}
	r.Add(Result{Check: "a", Pass: true}, Result{Check: "b", Detail: "x"}, Result{Check: "c", Detail: "y"})
	if r.Passed() {
		t.Error("report with failures should not pass")
	}
	err := r.Err()
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("expected 2 combined errors, got %d: %v", n, err)
	}
	if !strings.Contains(err.Error(), "b failed: x") {
		t.Errorf("err = %v", err)
	}
	var nilReport *Report
	if !nilReport.Passed() || nilReport.Err() != nil {
		t.Error("nil report should pass")
	}
}

func TestStreams(t *testing.T) {
	seen := []string{"A:", "B:"}
	tests := []struct {
		name string
		res  Result
		pass bool
	}{
		{"present all", StreamsPresent(seen, []string{"A:", "B:"}), true},
		{"present missing", StreamsPresent(seen, []string{"A:", "C:"}), false},
		{"absent ok", StreamsAbsent(seen, []string{"C:"}), true},
		{"absent still streaming", StreamsAbsent(seen, []string{"B:", "C:"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.res.Pass != tt.pass {
				t.Errorf("%s: Pass = %v, want %v", tt.res, tt.res.Pass, tt.pass)
			}
		})
	}
}

func TestAcknowledgements(t *testing.T) {
	responses := []string{"ok", "Accel Range set to 4G"}
	if !RangeConfirmed("Accel Range set to 4G", responses).Pass {
		t.Error("expected 4G confirmed")
	}
	if RangeConfirmed("Accel Range set to 8G", responses).Pass {
		t.Error("8G was never confirmed")
	}
	if !Acknowledged("invert", "InvertQuaternion = 0", []string{"InvertQuaternion = 0"}).Pass {
		t.Error("expected acknowledgement")
	}
}

func TestNoAccuracyReported(t *testing.T) {
	if !NoAccuracyReported(1, false).Pass {
		t.Error("no accuracy lines should pass")
	}
	r := NoAccuracyReported(2, true)
	if r.Pass || !strings.Contains(r.Check, "attempt 2") {
		t.Errorf("got %+v", r)
	}
}
