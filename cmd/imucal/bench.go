package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/labkit/imucal/pkg/calibration"
	"github.com/labkit/imucal/pkg/client"
	"github.com/labkit/imucal/pkg/events"
)

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Follow a running test case",
		Long:    `Follow a test case started with --listen, printing commands, device lines, accuracy changes and check results as they happen.`,
		GroupID: gAdvanced,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := client.NewClient(benchSocket).StreamEvents(ctx)
			if err != nil {
				return err
			}
			for ev := range ch {
				if line := formatEvent(ev); line != "" {
					cmd.Println(line)
				}
			}
			return nil
		},
	}
}

func formatEvent(ev events.Event) string {
	ts := color.New(color.Faint).Sprint(time.Now().Format(time.Kitchen))
	switch ev.Name {
	case events.Command:
		p, err := events.DecodeAs[events.CommandEvent](ev)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("%s %s %s", ts, color.CyanString("->"), p.Command)
	case events.Notification:
		p, err := events.DecodeAs[events.NotificationEvent](ev)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("%s %s %s", ts, color.New(color.Faint).Sprint("<-"), p.Line)
	case events.Accuracy:
		p, err := events.DecodeAs[events.AccuracyEvent](ev)
		if err != nil {
			return ""
		}
		s := fmt.Sprintf("%s %s %s accuracy %d", ts, color.YellowString("**"), p.Sensor, p.Level)
		if p.GyroCalibrationMs > 0 {
			s += fmt.Sprintf(" (gyro calibrated in %.1fs)", float64(p.GyroCalibrationMs)/1000)
		}
		return s
	case events.CasePhase:
		p, err := events.DecodeAs[events.CasePhaseEvent](ev)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("%s %s %s: %s", ts, bold("[%s]", p.Case), p.To, p.Message)
	case events.Check:
		p, err := events.DecodeAs[events.CheckEvent](ev)
		if err != nil {
			return ""
		}
		s := fmt.Sprintf("%s %s %s", ts, statusText(p.Pass), p.Check)
		if p.Detail != "" {
			s += ": " + p.Detail
		}
		return s
	}
	return ""
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show the status of a running test case",
		GroupID: gAdvanced,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := client.NewClient(benchSocket).GetStatus()
			if err != nil {
				return err
			}

			cmd.Println(bold("Test case:"))
			cmd.Printf("  Case: %s\n", st.Case)
			cmd.Printf("  Device: %s\n", st.Address)
			cmd.Printf("  Phase: %s\n", st.Phase)
			if st.Message != "" {
				cmd.Printf("    %s\n", st.Message)
			}
			if !st.StartedAt.IsZero() {
				cmd.Printf("  Running for: %s\n", time.Since(st.StartedAt).Truncate(time.Second))
			}
			cmd.Printf("  Last command: %s\n", st.LastCommand)
			cmd.Printf("  Lines received: %d\n", st.Responses)

			cmd.Println()
			cmd.Println(bold("Calibration:"))
			sensors := make([]string, 0, len(st.Accuracy))
			for s := range st.Accuracy {
				sensors = append(sensors, string(s))
			}
			sort.Strings(sensors)
			for _, s := range sensors {
				cmd.Printf("  %s accuracy: %d\n", s, st.Accuracy[calibration.Sensor(s)])
			}
			cmd.Printf("  Accel complete: %s\n", bool2Text(st.AccelComplete))
			cmd.Printf("  Gyro complete: %s\n", bool2Text(st.GyroComplete))
			if st.GyroCalibrationSecs > 0 {
				cmd.Printf("  Gyro calibration time: %.1fs\n", st.GyroCalibrationSecs)
			}

			if st.Passed+st.Failed > 0 {
				cmd.Println()
				cmd.Println(bold("Checks:"))
				cmd.Printf("  %d passed, %d failed\n", st.Passed, st.Failed)
			}
			return nil
		},
	}
}

func NewResponsesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "responses [count]",
		Short:   "Print the last lines received from the device",
		GroupID: gAdvanced,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 20
			if len(args) == 1 {
				var err error
				n, err = parseIntArg(args, "count")
				if err != nil {
					return err
				}
			}
			rs, err := client.NewClient(benchSocket).GetResponses(n)
			if err != nil {
				return err
			}
			for _, r := range rs {
				cmd.Println(r)
			}
			return nil
		},
	}
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}
