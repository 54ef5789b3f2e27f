package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/labkit/imucal/pkg/bench"
	"github.com/labkit/imucal/pkg/cases"
	"github.com/labkit/imucal/pkg/config"
	"github.com/labkit/imucal/pkg/events"
	"github.com/labkit/imucal/pkg/nus"
	"github.com/labkit/imucal/pkg/operator"
	"github.com/labkit/imucal/pkg/scheduler"
	"github.com/labkit/imucal/pkg/session"
	"github.com/labkit/imucal/pkg/transfer"
	"github.com/labkit/imucal/pkg/udf"
)

// scheduleLead is how early an upcoming scheduled run is announced.
const scheduleLead = 30 * time.Second

// runOptions are the per-run overrides shared by run, plan and fetch.
type runOptions struct {
	address      string
	file         string
	output       string
	listen       string
	schedule     string
	duration     time.Duration
	yes          bool
	maxDeviation float64
}

func (o *runOptions) addDeviceFlags(f *pflag.FlagSet) {
	f.StringVarP(&o.address, "address", "a", "", "device MAC address (overrides the config)")
	f.StringVarP(&o.output, "output", "o", "", "directory for retrieved logs, CSVs and plots (overrides the config)")
	f.StringVar(&o.listen, "listen", "", "serve live status on this unix socket while running")
	f.BoolVarP(&o.yes, "yes", "y", false, "do not wait for the operator at prompts")
}

func loadConfig() (*config.File, error) {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(conf.LogrusFields()).Debug("config loaded")
	return conf, nil
}

func newPrompter(yes bool) operator.Prompter {
	if yes || !term.IsTerminal(int(os.Stdin.Fd())) {
		return operator.Auto{}
	}
	return operator.NewTerminal(os.Stdin, os.Stderr)
}

func newEnv(conf config.Config, o *runOptions, out io.Writer) *cases.Env {
	return &cases.Env{
		Address:   firstNonEmpty(o.address, conf.Address()),
		OutputDir: firstNonEmpty(o.output, conf.OutputDir()),
		File:      o.file,
		Dial:      nus.BLEDialer(conf.ScanTimeout()),
		Prompter:  newPrompter(o.yes),
		Session: session.Options{
			CommandDelay: conf.CommandDelay(),
			ChunkSize:    conf.WriteChunkSize(),
		},
		Transfer: transfer.Options{
			Timeout:  conf.TransferTimeout(),
			MaxBytes: conf.TransferMaxBytes(),
		},
		Converter:           udf.Converter{Path: conf.ConverterPath()},
		GyroBiasLimit:       conf.GyroBiasLimit(),
		MaxHeadingDeviation: o.maxDeviation,
		ReconnectAttempts:   conf.ReconnectAttempts(),
		Out:                 out,
	}
}

// runCase runs c once, or on o.schedule until interrupted, and prints the
// results.
func runCase(cmd *cobra.Command, c cases.Case, o *runOptions) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Endless && o.schedule != "" {
		logrus.Warnf("case %s streams until interrupted, ignoring --schedule", c.ID)
		o.schedule = ""
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	env := newEnv(conf, o, out)
	env.Hub = events.NewEventHub()

	if o.listen != "" {
		go func() {
			if err := bench.Serve(ctx, o.listen, env.Hub); err != nil {
				logrus.WithError(err).Error("bench server stopped")
			}
		}()
	}

	once := func(ctx context.Context) error {
		rep, err := cases.Execute(ctx, c, env)
		if perr := printReport(out, rep); err == nil {
			err = perr
		}
		return err
	}

	if o.schedule == "" {
		return once(ctx)
	}

	s := scheduler.New(once, func(data any) {
		logrus.Infof("case %s starts at %s", c.ID, data.(time.Time).Format(time.DateTime))
	}, func(data any) {
		logrus.WithField("case", c.ID).Errorf("scheduled run: %v", data)
	})
	s.Lead = scheduleLead
	if err := s.Schedule(o.schedule); err != nil {
		return err
	}
	next, _ := s.Status()
	logrus.WithField("case", c.ID).Infof("first run at %s, interrupt to stop", next.Format(time.DateTime))

	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
	logrus.WithField("case", c.ID).Infof("stopped after %d runs", s.Runs())
	return nil
}
