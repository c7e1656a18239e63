package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the marketplace-api CLI. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "marketplace-api",
		Short:         "Marketplace backend API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
