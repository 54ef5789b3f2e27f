package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/labkit/imucal/pkg/bench"
	"github.com/labkit/imucal/pkg/config"
)

var (
	logLevel    = "info"
	configPath  = config.DefaultPath
	benchSocket = bench.DefaultSocket
)

var (
	gCases        = "Test cases:"
	gData         = "Data:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gCases,
		gData,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imucal",
		Short: "imucal drives IMU calibration test cases over BLE",
		Long: `imucal drives IMU calibration test cases over BLE.

It talks to the sensor hub through the Nordic UART Service, waits for the
accelerometer and gyroscope to reach full calibration accuracy, retrieves
the logged data and checks it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&benchSocket, "bench-socket", benchSocket, "bench unix socket path used by watch and status")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewCasesCommand(),
		NewRunCommand(),
		NewPlanCommand(),
		NewFetchCommand(),
		NewVerifyCommand(),
		NewWatchCommand(),
		NewStatusCommand(),
		NewResponsesCommand(),
		NewConfigCommand(),
		NewVersionCommand(),
	)

	return cmd
}
