package cases

import (
	"context"
	"errors"
	"io"
	"regexp"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/command"
	"github.com/labkit/imucal/pkg/events"
	"github.com/labkit/imucal/pkg/frame"
	"github.com/labkit/imucal/pkg/nus"
	"github.com/labkit/imucal/pkg/operator"
	"github.com/labkit/imucal/pkg/report"
	"github.com/labkit/imucal/pkg/session"
	"github.com/labkit/imucal/pkg/transfer"
	"github.com/labkit/imucal/pkg/udf"
	"github.com/labkit/imucal/pkg/verify"
)

// Env is everything a case needs from the outside world.
type Env struct {
	Address   string
	OutputDir string
	// File overrides the case's device-side log file.
	File string

	Dial      nus.Dialer
	Prompter  operator.Prompter
	Hub       *events.EventHub
	Session   session.Options
	Transfer  transfer.Options
	Converter udf.Converter

	GyroBiasLimit       float64
	MaxHeadingDeviation float64
	ReconnectAttempts   int

	// Sleep waits for d or until ctx is done. Defaults to session.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// Out receives human readable output such as data previews.
	Out io.Writer

	caseID  string
	logFile string
	header  *regexp.Regexp
	phase   calibration.Phase
}

// Pause waits for d or until ctx is done.
func (e *Env) Pause(ctx context.Context, d time.Duration) error {
	if e.Sleep == nil {
		return session.Sleep(ctx, d)
	}
	return e.Sleep(ctx, d)
}

func (e *Env) out() io.Writer {
	if e.Out == nil {
		return io.Discard
	}
	return e.Out
}

// Prompt returns the configured prompter, or an unattended one.
func (e *Env) Prompt() operator.Prompter {
	if e.Prompter == nil {
		return operator.Auto{}
	}
	return e.Prompter
}

// file is the device-side log file of the running case.
func (e *Env) file() string {
	if e.File != "" {
		return e.File
	}
	return e.logFile
}

// SetPhase records and publishes a phase change of the running case.
func (e *Env) SetPhase(to calibration.Phase, msg string) {
	from := e.phase
	e.phase = to
	logrus.WithFields(logrus.Fields{
		"case":  e.caseID,
		"from":  from,
		"to":    to,
		"phase": msg,
	}).Debug("case phase changed")
	e.Hub.Publish(events.CasePhase, events.CasePhaseEvent{
		Case:    e.caseID,
		From:    string(from),
		To:      string(to),
		Message: msg,
		Ts:      time.Now().Unix(),
	})
}

func (e *Env) Notify(msg string) {
	e.Prompt().Notify(msg)
}

// Connect dials the configured address and starts a session.
func (e *Env) Connect(ctx context.Context) (*session.Session, error) {
	if e.Dial == nil {
		return nil, pkgerrors.New("no device dialer configured")
	}
	if e.Address == "" {
		return nil, pkgerrors.New("no device address configured")
	}
	e.SetPhase(calibration.PhaseConnecting, "connecting to "+nus.ShortAddress(e.Address))
	opts := e.Session
	if opts.Sleep == nil {
		opts.Sleep = e.Pause
	}
	if opts.Hub == nil {
		opts.Hub = e.Hub
	}
	s := session.New(e.Dial(e.Address), opts)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Configure resets the hub, selects the fusion log format and sends commands.
func (e *Env) Configure(ctx context.Context, s *session.Session, commands ...string) error {
	e.SetPhase(calibration.PhaseConfiguring, "sending configuration commands")
	return s.SendAll(ctx, append([]string{command.Reset, command.FusionLog}, commands...)...)
}

// Check adds res to rep, logs it and publishes it.
func (e *Env) Check(rep *verify.Report, res verify.Result) {
	rep.Add(res)
	log := logrus.WithFields(logrus.Fields{
		"case":  e.caseID,
		"check": res.Check,
	})
	if res.Pass {
		log.Info(res.String())
	} else {
		log.Warn(res.String())
	}
	e.Hub.Publish(events.Check, events.CheckEvent{Check: res.Check, Pass: res.Pass, Detail: res.Detail})
}

// Fetch retrieves file from the device, trims it and converts it to CSV.
func (e *Env) Fetch(ctx context.Context, s *session.Session, file string) (string, error) {
	e.SetPhase(calibration.PhaseRetrieving, "requesting "+file)
	topts := e.Transfer
	if topts.ChunkSize == 0 {
		topts.ChunkSize = e.Session.ChunkSize
	}
	data, err := transfer.Retrieve(ctx, s.Link(), file, topts)
	if err != nil {
		return "", err
	}
	if err := s.Resubscribe(); err != nil {
		logrus.WithError(err).Warn("failed to resume notifications after transfer")
	}
	path, err := transfer.Save(e.OutputDir, file, data)
	if err != nil {
		return "", err
	}

	e.SetPhase(calibration.PhaseConverting, "converting "+path)
	header := e.header
	if header == nil {
		header = udf.FusedHeader
	}
	if err := udf.CleanWith(path, header); err != nil {
		return "", err
	}
	return e.Converter.Convert(ctx, path)
}

func (e *Env) plot(fr *frame.Frame, tag, col, status string) {
	vs, err := fr.Numeric(col)
	if err != nil {
		logrus.WithError(err).WithField("column", col).Warn("column not found in the csv file")
		return
	}
	if _, err := report.LinePlot(e.OutputDir, tag, col, vs, status); err != nil {
		logrus.WithError(err).Warn("failed to write plot")
	}
}

// streamUntilDone keeps the session open so notifications keep flowing until
// ctx is canceled. Cancellation is the normal way out and is not an error.
func (e *Env) streamUntilDone(ctx context.Context) error {
	logrus.WithField("address", nus.ShortAddress(e.Address)).Info("entering continuous receive mode, interrupt to stop")
	<-ctx.Done()
	return nil
}

// Execute runs c with env, publishing phase events around it. The returned
// report is never nil when err is nil.
func Execute(ctx context.Context, c Case, env *Env) (*verify.Report, error) {
	env.caseID = c.ID
	env.logFile = c.LogFile
	env.header = c.Header
	env.phase = calibration.PhaseIdle
	logrus.WithFields(logrus.Fields{
		"case":    c.ID,
		"title":   c.Title,
		"address": nus.ShortAddress(env.Address),
	}).Info("starting test case")

	rep, err := c.Run(ctx, env)
	if rep == nil {
		rep = &verify.Report{}
	}
	rep.Case = c.ID
	if err != nil {
		if c.Endless && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			err = nil
		} else {
			env.SetPhase(calibration.PhaseError, err.Error())
			return rep, err
		}
	}
	env.SetPhase(calibration.PhaseDone, "finished")
	return rep, nil
}
