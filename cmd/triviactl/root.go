package main

import (
	"context"
	"fmt"

	"ash-trivia/internal/app"
	"ash-trivia/internal/config"
	"ash-trivia/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "triviactl",
	Short:         "Operate the Ash trivia store",
	Long:          "triviactl generates questions, imports played games, repairs sessions left open by a crash and signs API tokens.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("sqlite", "", "Use the SQLite database at this path instead of the configured store")
	rootCmd.PersistentFlags().Bool("migrate", false, "Apply pending migrations before running the command")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(historyCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("sqlite"); p != "" {
		cfg.DB.Driver = "sqlite"
		cfg.DB.Path = p
	}
	// Nobody can answer an approval conversation from here.
	cfg.Trivia.ApproverID = ""
	if err := logger.Initialize(cfg.Logger); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	migrate, _ := cmd.Flags().GetBool("migrate")
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger.Get(), app.Options{Migrate: migrate})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
