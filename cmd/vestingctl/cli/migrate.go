package cli

import (
	"github.com/spf13/cobra"

	"tokenvesting/pkg/config"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back SQL migrations",
	}

	var dir string
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (default MIGRATIONS_DIR)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationConfig(dir)
			if err != nil {
				return err
			}
			db, err := config.OpenDB(cfg)
			if err != nil {
				return err
			}
			return config.ExecuteMigrations(db, cfg.MigrationsDir)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := migrationConfig(dir)
			if err != nil {
				return err
			}
			db, err := config.OpenDB(cfg)
			if err != nil {
				return err
			}
			return config.RollbackMigration(db, cfg.MigrationsDir, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func migrationConfig(dir string) (config.AppConfig, error) {
	cfg, err := config.LoadAppConfig()
	if err != nil {
		return cfg, err
	}
	// schema comes from the SQL files only
	cfg.DBAutoMigrate = false
	if dir != "" {
		cfg.MigrationsDir = dir
	}
	return cfg, nil
}
