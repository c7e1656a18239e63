package cmd

import (
	"marketplace-api/pkg/database"
	"marketplace-api/pkg/utils"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand with up and down.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, (*database.Migrator).Up)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (destroys all data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, (*database.Migrator).Down)
		},
	})

	return cmd
}

func runMigrate(cmd *cobra.Command, step func(*database.Migrator) error) error {
	config, err := utils.LoadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	m, err := database.NewMigrator(config.Database.URL())
	if err != nil {
		return err
	}
	defer m.Close()

	cmd.Println("Running migrations...")
	if err := step(m); err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Migrations completed, version=%d dirty=%t\n", version, dirty)
	return nil
}
