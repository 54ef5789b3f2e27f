package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"

	"github.com/labkit/imucal/pkg/cases"
	"github.com/labkit/imucal/pkg/client"
	"github.com/labkit/imucal/pkg/nus"
	"github.com/labkit/imucal/pkg/udf"
	"github.com/labkit/imucal/pkg/verify"
)

// errChecksFailed is returned when a run finished but some checks failed.
var errChecksFailed = errors.New("some checks failed")

func parseIntArg(args []string, valueName string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrBenchNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: no test case is running")
		fmt.Fprintln(os.Stderr, "Start one with 'imucal run <case> --listen "+benchSocket+"'")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - The bench socket belongs to another user, try running the command again as that user")
	case errors.Is(err, cases.ErrUnknownCase):
		fmt.Fprintln(os.Stderr, "\nRun 'imucal cases' to list the available test cases")
	case errors.Is(err, udf.ErrConverterNotFound):
		fmt.Fprintln(os.Stderr, "\nThe log converter was not found. Point imucal to it with:")
		fmt.Fprintln(os.Stderr, "  imucal config converter <path to udf2csv>")
	case errors.Is(err, nus.ErrDeviceNotFound):
		fmt.Fprintln(os.Stderr, "\nIs the device powered on and advertising? Check the address with:")
		fmt.Fprintln(os.Stderr, "  imucal config show")
	}
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

func statusText(pass bool) string {
	if pass {
		return color.New(color.Bold, color.FgGreen).Sprint("PASS")
	}
	return color.New(color.Bold, color.FgRed).Sprint("FAIL")
}

// printReport prints one line per check and a summary. It returns
// errChecksFailed, joined with the individual failures, when any check failed.
func printReport(w io.Writer, rep *verify.Report) error {
	if rep == nil || len(rep.Results) == 0 {
		return nil
	}
	passed := 0
	fmt.Fprintln(w, bold("Results for %s:", rep.Case))
	for _, r := range rep.Results {
		if r.Pass {
			passed++
		}
		line := fmt.Sprintf("  %s  %s", statusText(r.Pass), r.Check)
		if r.Detail != "" {
			line += ": " + r.Detail
		}
		fmt.Fprintln(w, line)
	}
	failed := len(rep.Results) - passed
	fmt.Fprintf(w, "%d passed, %d failed\n", passed, failed)
	if err := rep.Err(); err != nil {
		return fmt.Errorf("%w: %v", errChecksFailed, err)
	}
	return nil
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
