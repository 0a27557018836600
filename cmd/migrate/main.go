package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"ash-trivia/internal/config"
	"ash-trivia/internal/database"
	"ash-trivia/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	l := logger.Get()
	defer logger.Sync()

	withMigrator := func(fn func(m *migrate.Migrate) error) error {
		db, err := database.NewSQLXDB(cfg.DB.Driver, cfg.GetDSN(), l)
		if err != nil {
			return err
		}
		m, err := database.NewMigrator(db.DB, cfg.DB.Driver)
		if err != nil {
			db.Close()
			return err
		}
		defer m.Close()
		return fn(m)
	}

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the trivia schema",
		SilenceUsage: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migrate.Migrate) error {
					if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return err
					}
					return report(l, m)
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations, one step unless steps is given",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("invalid step count %q", args[0])
					}
					steps = n
				}
				return withMigrator(func(m *migrate.Migrate) error {
					if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return err
					}
					return report(l, m)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migrate.Migrate) error {
					return report(l, m)
				})
			},
		},
	)

	if err := root.Execute(); err != nil {
		l.Error("Migration failed", zap.Error(err))
		os.Exit(1)
	}
}

func report(l *zap.Logger, m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		l.Info("No migrations applied")
		return nil
	}
	if err != nil {
		return err
	}
	l.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
