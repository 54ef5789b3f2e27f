package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labkit/imucal/pkg/verify"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "imucal.json")))
	err := cmd.Execute()
	return out.String(), err
}

func TestCasesCommand(t *testing.T) {
	out, err := execute(t, "cases")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"2745", "2759", "5120", "heading-verify", "binread"} {
		if !strings.Contains(out, id) {
			t.Errorf("case %s missing from listing:\n%s", id, out)
		}
	}
}

func TestVerifyCommand(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		wantFail bool
	}{
		{name: "held", values: []string{"1", "3", "3"}},
		{name: "dropped", values: []string{"3", "2", "3"}, wantFail: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "run.bin.csv")
			content := "\"" + verify.ColAccelAccuracy + "\"\n" + strings.Join(tt.values, "\n") + "\n"
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}

			out, err := execute(t, "verify", verify.CheckAccuracyHold, path)
			if tt.wantFail {
				if !errors.Is(err, errChecksFailed) {
					t.Fatalf("err = %v, want errChecksFailed", err)
				}
				if !strings.Contains(out, "FAIL") || !strings.Contains(out, "0 passed, 1 failed") {
					t.Errorf("output:\n%s", out)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out, "PASS") || !strings.Contains(out, "1 passed, 0 failed") {
				t.Errorf("output:\n%s", out)
			}
		})
	}
}

func TestVerifyUnknownCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.bin.csv")
	if err := os.WriteFile(path, []byte("a\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "verify", "vibes", path); err == nil || !strings.Contains(err.Error(), "unknown check") {
		t.Errorf("err = %v", err)
	}
}

func TestRunUnknownCase(t *testing.T) {
	if _, err := execute(t, "run", "9999"); err == nil || !strings.Contains(err.Error(), "unknown test case") {
		t.Errorf("err = %v", err)
	}
}
