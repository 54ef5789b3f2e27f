package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/labkit/imucal/pkg/frame"
	"github.com/labkit/imucal/pkg/report"
	"github.com/labkit/imucal/pkg/verify"
)

func NewVerifyCommand() *cobra.Command {
	var (
		opts    verify.Options
		plots   []string
		plotDir string
	)

	cmd := &cobra.Command{
		Use:   "verify <check> <csv>",
		Short: "Run a check on an already converted CSV file",
		Long: fmt.Sprintf(`Run a check on an already converted CSV file, without a device.

Available checks: %s`, strings.Join(verify.Checks, ", ")),
		Example: `  imucal verify accuracy-hold output/616.bin.csv
  imucal verify heading output/0986.bin.csv --max-deviation 5
  imucal verify gyro-bias output/2753.bin.csv --plot "Gyro Corrected 0.a"`,
		GroupID: gData,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			check, csvPath := args[0], args[1]
			if opts.GyroBiasLimit == 0 {
				conf, err := loadConfig()
				if err != nil {
					return err
				}
				opts.GyroBiasLimit = conf.GyroBiasLimit()
			}

			fr, err := frame.Load(csvPath)
			if err != nil {
				return err
			}
			results, err := verify.RunNamed(check, fr, csvPath, opts)
			if err != nil {
				return err
			}
			rep := &verify.Report{Case: check}
			rep.Add(results...)

			status := "Passed"
			if !rep.Passed() {
				status = "Failed"
			}
			for _, col := range plots {
				vs, err := fr.Numeric(col)
				if err != nil {
					logrus.WithError(err).WithField("column", col).Warn("column not found in the csv file")
					continue
				}
				if _, err := report.LinePlot(plotDir, "verify", col, vs, status); err != nil {
					return err
				}
			}

			return printReport(cmd.OutOrStdout(), rep)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.GyroBiasLimit, "gyro-limit", 0, "largest allowed mean gyro output in mdps (default from the config)")
	f.Float64Var(&opts.MaxHeadingDeviation, "max-deviation", 0, "fail heading checks whose deviation exceeds this many degrees")
	f.StringSliceVar(&plots, "plot", nil, "write an HTML line plot of this column (repeatable)")
	f.StringVar(&plotDir, "plot-dir", ".", "directory for plots")

	return cmd
}
