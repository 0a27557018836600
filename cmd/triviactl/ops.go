package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ash-trivia/internal/app"
	"ash-trivia/internal/domain"
	"ash-trivia/internal/dto"
	"ash-trivia/internal/service"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Close and score sessions left active by a previous process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Sessions.RecoverHangingSessions(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Recovered %d session(s).\n", n)
			return nil
		})
	},
}

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "Manage the played-games table",
}

var gamesImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Upsert games from a JSON file",
	Long:  `Reads either a JSON array of games or an object of the form {"games": [...]} and upserts every game by canonical name.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		games, err := readGames(args[0])
		if err != nil {
			return err
		}
		for i := range games {
			if err := games[i].Validate(); err != nil {
				return fmt.Errorf("game %d (%q): %w", i, games[i].CanonicalName, err)
			}
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			for i := range games {
				if _, err := a.Games.UpsertGame(ctx, &games[i]); err != nil {
					return fmt.Errorf("upsert %q: %w", games[i].CanonicalName, err)
				}
			}
			if err := a.Snapshots.Invalidate(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "warning: snapshot cache not invalidated:", err)
			}
			fmt.Printf("Imported %d game(s).\n", len(games))
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Sign an API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		auth, err := service.NewAuthService(cfg.Auth)
		if err != nil {
			return err
		}
		token, expiresAt, err := auth.CreateToken(args[0], dto.Role(role), ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Local().Format(time.RFC3339))
		return nil
	},
}

func init() {
	gamesCmd.AddCommand(gamesImportCmd)

	tokenCmd.Flags().String("role", string(dto.RoleBot), "moderator, bot or approver")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
}

func readGames(path string) ([]domain.Game, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var games []domain.Game
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		err = json.Unmarshal(raw, &games)
	} else {
		var req dto.ImportGamesRequest
		err = json.Unmarshal(raw, &req)
		games = req.Games
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("%s contains no games", path)
	}
	return games, nil
}
