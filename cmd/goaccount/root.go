package main

import (
	"github.com/spf13/cobra"
)

// configFile is the --config value shared by every subcommand.
var configFile string

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goaccount",
		Short: "User accounts and session authentication",
		Long: `goaccount registers users, authenticates them with access and refresh
tokens, and runs the password reset flow over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
