package main

import (
	"github.com/spf13/cobra"

	"github.com/labkit/imucal/pkg/cases"
)

func NewFetchCommand() *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <remote-file>",
		Short: "Retrieve a log file from the device and convert it to CSV",
		Long: `Retrieve a log file from the device and convert it to CSV.

The file is saved to the output directory, its header is trimmed, the
converter turns it into CSV and the first rows are printed.`,
		Example: `  imucal fetch teste.bin`,
		GroupID: gData,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cases.Lookup("binread")
			if err != nil {
				return err
			}
			o.file = args[0]
			return runCase(cmd, c, o)
		},
	}

	o.addDeviceFlags(cmd.Flags())

	return cmd
}
