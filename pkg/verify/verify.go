// Package verify holds the pass/fail checks run on a device session or on
// converted log data.
package verify

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Result is the outcome of one check.
type Result struct {
	Check  string             `json:"check"`
	Pass   bool               `json:"pass"`
	Detail string             `json:"detail,omitempty"`
	Values map[string]float64 `json:"values,omitempty"`
}

func (r Result) Status() string {
	if r.Pass {
		return "PASS"
	}
	return "FAIL"
}

func (r Result) String() string {
	if r.Detail == "" {
		return fmt.Sprintf("%s: %s", r.Status(), r.Check)
	}
	return fmt.Sprintf("%s: %s: %s", r.Status(), r.Check, r.Detail)
}

// Report collects the results of one run.
type Report struct {
	Case    string   `json:"case"`
	Results []Result `json:"results"`
}

func (r *Report) Add(res ...Result) {
	r.Results = append(r.Results, res...)
}

// Passed reports whether every check passed. An empty report passes.
func (r *Report) Passed() bool {
	if r == nil {
		return true
	}
	for _, res := range r.Results {
		if !res.Pass {
			return false
		}
	}
	return true
}

// Err combines every failed check into one error, or returns nil.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	var err error
	for _, res := range r.Results {
		if !res.Pass {
			err = multierr.Append(err, fmt.Errorf("%s failed: %s", res.Check, res.Detail))
		}
	}
	return err
}

// StreamsPresent passes when every expected tag was seen.
func StreamsPresent(seen, expected []string) Result {
	missing := diff(expected, seen, false)
	if len(missing) > 0 {
		return Result{Check: "streams present", Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Check: "streams present", Pass: true, Detail: "all expected sensors are streaming data"}
}

// StreamsAbsent passes when none of the disabled tags was seen.
func StreamsAbsent(seen, disabled []string) Result {
	still := diff(disabled, seen, true)
	if len(still) > 0 {
		return Result{Check: "streams absent", Detail: "still streaming " + strings.Join(still, ", ")}
	}
	return Result{Check: "streams absent", Pass: true, Detail: "disabled sensors are no longer streaming data"}
}

// diff returns the items of want that are (present=true) or are not
// (present=false) in have.
func diff(want, have []string, present bool) []string {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	var out []string
	for _, w := range want {
		if _, ok := set[w]; ok == present {
			out = append(out, w)
		}
	}
	return out
}

// Acknowledged passes when any response contains ack.
func Acknowledged(check, ack string, responses []string) Result {
	for _, r := range responses {
		if strings.Contains(r, ack) {
			return Result{Check: check, Pass: true, Detail: fmt.Sprintf("received %q", ack)}
		}
	}
	return Result{Check: check, Detail: fmt.Sprintf("no %q in responses", ack)}
}

// RangeConfirmed passes when the firmware acknowledged a range change.
func RangeConfirmed(confirmation string, responses []string) Result {
	return Acknowledged("range confirmed: "+confirmation, confirmation, responses)
}

// NoAccuracyReported passes when a reconnect produced no accuracy lines,
// meaning the calibration persisted.
func NoAccuracyReported(attempt int, reported bool) Result {
	check := fmt.Sprintf("accuracy persisted (attempt %d)", attempt)
	if reported {
		return Result{Check: check, Detail: "accuracy info received unexpectedly"}
	}
	return Result{Check: check, Pass: true, Detail: "accuracy remained at 3"}
}

// NoReconnection fails a persistence run in which no reconnect succeeded, so
// nothing was verified.
func NoReconnection(attempts int, last error) Result {
	detail := fmt.Sprintf("all %d reconnection attempts failed", attempts)
	if last != nil {
		detail += ": " + last.Error()
	}
	return Result{Check: "accuracy persisted", Detail: detail}
}
