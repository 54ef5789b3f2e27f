package main

import (
	"github.com/spf13/cobra"

	"github.com/labkit/imucal/pkg/plan"
)

func NewPlanCommand() *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "plan <file.yaml>",
		Short: "Run a command plan described in YAML",
		Long: `Run a command plan described in YAML.

A plan is a named list of steps. Each step does one thing: send a command,
sleep, wait for accuracy 3, expect a response, prompt or notify the operator,
fetch a log file, or run a check on the fetched data.`,
		Example: `  imucal plan smoke.yaml --address F3:D9:31:80:1B:0B`,
		GroupID: gCases,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}
			o.address = firstNonEmpty(o.address, p.Address)
			return runCase(cmd, p.Case(), o)
		},
	}

	f := cmd.Flags()
	o.addDeviceFlags(f)
	f.StringVar(&o.schedule, "schedule", "", "repeat the plan on a cron schedule, e.g. '@every 30m'")
	f.Float64Var(&o.maxDeviation, "max-deviation", 0, "fail heading checks whose deviation exceeds this many degrees")

	return cmd
}
