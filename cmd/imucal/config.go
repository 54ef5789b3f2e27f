package main

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/labkit/imucal/pkg/config"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "View or change the imucal configuration",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration, defaults included",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				conf, err := loadConfig()
				if err != nil {
					return err
				}
				raw, err := config.NewRawFileConfigFromConfig(conf)
				if err != nil {
					return err
				}
				b, err := json.MarshalIndent(raw, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			},
		},
		newConfigSetCommand("address <mac>", "Set the device address", "address", func(c config.Config, v string) { c.SetAddress(v) }),
		newConfigSetCommand("converter <path>", "Set the path of the log converter", "converter path", func(c config.Config, v string) { c.SetConverterPath(v) }),
		newConfigSetCommand("output <dir>", "Set the output directory", "output directory", func(c config.Config, v string) { c.SetOutputDir(v) }),
	)

	return cmd
}

func newConfigSetCommand(use, short, name string, set func(config.Config, string)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			set(conf, args[0])
			if err := conf.Save(); err != nil {
				return err
			}
			logrus.Infof("set %s to %s", name, args[0])
			return nil
		},
	}
}
