package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/labkit/imucal/pkg/cases"
)

func NewCasesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "cases",
		Aliases: []string{"ls"},
		Short:   "List the available test cases",
		GroupID: gCases,
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, bold("ID")+"\t"+bold("LOG FILE")+"\t"+bold("DESCRIPTION"))
			for _, c := range cases.All() {
				title := c.Title
				if c.Endless {
					title += " (runs until interrupted)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.LogFile, title)
			}
			_ = w.Flush()
		},
	}
}

func NewRunCommand() *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <case>",
		Short: "Run a test case against a device",
		Long: `Run a test case against a device.

The device address comes from the config file unless --address is given.
Use 'imucal cases' to list the available cases.`,
		Example: `  imucal run 2745 --address F3:D9:31:80:1B:0B
  imucal run 2759 --listen /tmp/imucal.sock
  imucal run gg --schedule '@every 30m'
  imucal run heading-verify --max-deviation 5`,
		GroupID: gCases,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cases.Lookup(args[0])
			if err != nil {
				return err
			}
			return runCase(cmd, c, o)
		},
	}

	f := cmd.Flags()
	o.addDeviceFlags(f)
	f.StringVarP(&o.file, "file", "f", "", "device-side log file (overrides the case default)")
	f.StringVar(&o.schedule, "schedule", "", "repeat the case on a cron schedule, e.g. '@every 30m'")
	f.DurationVar(&o.duration, "duration", 0, "stop after this long, e.g. to end a streaming case unattended")
	f.Float64Var(&o.maxDeviation, "max-deviation", 0, "fail heading checks whose deviation exceeds this many degrees")

	return cmd
}
