// Package commands implements the assetd command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stemyke/node-backend-sub000/config"
	"github.com/stemyke/node-backend-sub000/version"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "assetd",
		Short:         "Asset storage with lazily generated assets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: config.* in /etc/assetd, $HOME/.assetd or .)")

	load := func() (*config.Config, error) {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		config.SetPath(configFile)
		return cfg, nil
	}

	rootCmd.AddCommand(
		NewServeCommand(load),
		NewWorkerCommand(load),
		NewVersionCommand(),
	)
	return rootCmd
}

// NewVersionCommand prints build information.
func NewVersionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetVersionInfo()
			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return nil
			}
			s, err := info.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
