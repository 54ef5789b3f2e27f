// Package plan runs ad-hoc command sequences described in YAML, for bench
// procedures that do not warrant a registered case.
//
// A plan looks like:
//
//	name: accel-range-smoke
//	logFile: smoke.bin
//	steps:
//	  - send: "-l 1 smoke.bin"
//	  - send: actse 52 100
//	  - wait: accel
//	  - send: aconf 4 2 2
//	  - expect: Accel Range set to 4G
//	    within: 2s
//	  - sleep: 10s
//	  - send: "-l 0"
//	  - fetch: smoke.bin
//	  - check: accuracy-hold
package plan

import (
	"context"
	"fmt"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/cases"
	"github.com/labkit/imucal/pkg/frame"
	"github.com/labkit/imucal/pkg/session"
	"github.com/labkit/imucal/pkg/verify"
)

// DefaultExpectWithin bounds an expect step without an explicit within.
const DefaultExpectWithin = 2 * time.Second

// Plan is a named list of steps run on one connection.
type Plan struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address,omitempty"`
	// Reset sends crt and -f l before the first step. Defaults to true.
	Reset   *bool  `yaml:"reset,omitempty"`
	LogFile string `yaml:"logFile,omitempty"`
	Steps   []Step `yaml:"steps"`
}

// Step is one action. Exactly one of the action fields must be set.
type Step struct {
	Send   string        `yaml:"send,omitempty"`
	Sleep  time.Duration `yaml:"sleep,omitempty"`
	Wait   string        `yaml:"wait,omitempty"`
	Expect string        `yaml:"expect,omitempty"`
	Within time.Duration `yaml:"within,omitempty"`
	Prompt string        `yaml:"prompt,omitempty"`
	Notify string        `yaml:"notify,omitempty"`
	Fetch  string        `yaml:"fetch,omitempty"`
	Check  string        `yaml:"check,omitempty"`
}

func (s Step) actions() []string {
	var set []string
	if s.Send != "" {
		set = append(set, "send")
	}
	if s.Sleep != 0 {
		set = append(set, "sleep")
	}
	if s.Wait != "" {
		set = append(set, "wait")
	}
	if s.Expect != "" {
		set = append(set, "expect")
	}
	if s.Prompt != "" {
		set = append(set, "prompt")
	}
	if s.Notify != "" {
		set = append(set, "notify")
	}
	if s.Fetch != "" {
		set = append(set, "fetch")
	}
	if s.Check != "" {
		set = append(set, "check")
	}
	return set
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read plan %s", path)
	}
	return Parse(b)
}

// Parse decodes and validates a plan.
func Parse(b []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to decode plan")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate rejects empty plans and steps with zero or several actions.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return pkgerrors.New("plan has no name")
	}
	if len(p.Steps) == 0 {
		return pkgerrors.Errorf("plan %q has no steps", p.Name)
	}
	for i, s := range p.Steps {
		acts := s.actions()
		switch len(acts) {
		case 0:
			return pkgerrors.Errorf("step %d has no action", i+1)
		case 1:
		default:
			return pkgerrors.Errorf("step %d has several actions: %v", i+1, acts)
		}
		if s.Within != 0 && s.Expect == "" {
			return pkgerrors.Errorf("step %d: within only applies to expect", i+1)
		}
		if s.Sleep < 0 || s.Within < 0 {
			return pkgerrors.Errorf("step %d: negative duration", i+1)
		}
		switch s.Wait {
		case "", "accel", "gyro", "both":
		default:
			return pkgerrors.Errorf("step %d: wait must be accel, gyro or both, got %q", i+1, s.Wait)
		}
		if s.Check != "" && !knownCheck(s.Check) {
			return pkgerrors.Errorf("step %d: unknown check %q", i+1, s.Check)
		}
	}
	return nil
}

func knownCheck(name string) bool {
	for _, c := range verify.Checks {
		if c == name {
			return true
		}
	}
	return false
}

// Case wraps the plan as a runnable case.
func (p *Plan) Case() cases.Case {
	return cases.Case{
		ID:      p.Name,
		Title:   "plan " + p.Name,
		LogFile: p.LogFile,
		Run:     p.run,
	}
}

// Run executes the plan on env and returns its report.
func (p *Plan) Run(ctx context.Context, env *cases.Env) (*verify.Report, error) {
	if p.Address != "" && env.Address == "" {
		env.Address = p.Address
	}
	return cases.Execute(ctx, p.Case(), env)
}

type runner struct {
	env  *cases.Env
	s    *session.Session
	rep  *verify.Report
	csv  string
	opts verify.Options
}

func (p *Plan) run(ctx context.Context, env *cases.Env) (*verify.Report, error) {
	s, err := env.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	r := &runner{
		env: env,
		s:   s,
		rep: &verify.Report{},
		opts: verify.Options{
			GyroBiasLimit:       env.GyroBiasLimit,
			MaxHeadingDeviation: env.MaxHeadingDeviation,
		},
	}
	if p.Reset == nil || *p.Reset {
		if err := env.Configure(ctx, s); err != nil {
			return nil, err
		}
	}
	for i, step := range p.Steps {
		logrus.WithFields(logrus.Fields{
			"plan": p.Name,
			"step": i + 1,
		}).Debug("running plan step")
		if err := r.step(ctx, step); err != nil {
			return r.rep, pkgerrors.Wrapf(err, "step %d", i+1)
		}
	}
	return r.rep, nil
}

func (r *runner) step(ctx context.Context, st Step) error {
	switch {
	case st.Send != "":
		return r.s.Send(ctx, st.Send)
	case st.Sleep != 0:
		return r.env.Pause(ctx, st.Sleep)
	case st.Wait != "":
		r.env.SetPhase(calibration.PhaseCalibrating, "waiting for "+st.Wait+" accuracy 3")
		switch st.Wait {
		case "accel":
			return r.s.WaitAccuracy(ctx, calibration.SensorAccel)
		case "gyro":
			return r.s.WaitAccuracy(ctx, calibration.SensorGyro)
		default:
			return r.s.WaitBoth(ctx)
		}
	case st.Expect != "":
		within := st.Within
		if within == 0 {
			within = DefaultExpectWithin
		}
		found := r.s.ExpectWithin(ctx, st.Expect, within)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res := verify.Result{Check: fmt.Sprintf("expect %q", st.Expect), Pass: found}
		if !found {
			res.Detail = fmt.Sprintf("not received within %s", within)
		}
		r.env.Check(r.rep, res)
		return nil
	case st.Prompt != "":
		return r.env.Prompt().Confirm(ctx, st.Prompt)
	case st.Notify != "":
		r.env.Notify(st.Notify)
		return nil
	case st.Fetch != "":
		csv, err := r.env.Fetch(ctx, r.s, st.Fetch)
		if err != nil {
			return err
		}
		r.csv = csv
		return nil
	case st.Check != "":
		if r.csv == "" {
			return pkgerrors.Errorf("check %s needs a preceding fetch", st.Check)
		}
		fr, err := frame.Load(r.csv)
		if err != nil {
			return err
		}
		results, err := verify.RunNamed(st.Check, fr, r.csv, r.opts)
		if err != nil {
			return err
		}
		for _, res := range results {
			r.env.Check(r.rep, res)
		}
		return nil
	}
	return pkgerrors.New("empty step")
}
