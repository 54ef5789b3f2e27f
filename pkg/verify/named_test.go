package verify

import (
	"path/filepath"
	"testing"
)

func TestRunNamed(t *testing.T) {
	both := mustFrame(t, ColAccelAccuracy+","+ColGyroAccuracy+"\n3,2\n3,3\n")
	res, err := RunNamed(CheckAccuracyHold, both, "", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || !res[0].Pass || !res[1].Pass {
		t.Errorf("results = %v", res)
	}

	grv := mustFrame(t, column(ColGRVReal, "-0.5"))
	res, err = RunNamed(CheckGRVNegativeW, grv, "", Options{})
	if err != nil || len(res) != 1 || !res[0].Pass {
		t.Errorf("RunNamed(grv) = %v, %v", res, err)
	}

	if _, err := RunNamed(CheckAccuracyHold, grv, "", Options{}); err == nil {
		t.Error("expected error without accuracy columns")
	}
	if _, err := RunNamed("nope", grv, filepath.Join(t.TempDir(), "x.csv"), Options{}); err == nil {
		t.Error("expected error for unknown check")
	}
}
