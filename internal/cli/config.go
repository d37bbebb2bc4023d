package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/covtrack/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage covtrack configuration",
	}
	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			if err := config.Init(path); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Config file created at %s\n", path)
			return nil
		}),
	}
	cmd.Flags().StringVar(&path, "path", config.FileName, "Where to write the config file")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			data, err := a.cfg.Masked().YAML()
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data)
			return err
		}),
	}
}
