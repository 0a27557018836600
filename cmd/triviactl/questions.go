package main

import (
	"context"
	"fmt"
	"strings"

	"ash-trivia/internal/app"
	"ash-trivia/internal/domain"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate questions into the available pool",
	Long:  "Generates questions from the current game snapshot. Questions generated here skip the approval conversation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		if count < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			for i := 0; i < count; i++ {
				q, err := a.Questions.GenerateApproved(ctx)
				if err != nil {
					return fmt.Errorf("generate question %d: %w", i+1, err)
				}
				printQuestion(q)
			}
			return nil
		})
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Inspect stored questions",
}

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List questions by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			qs, err := a.Questions.ListQuestions(ctx, domain.QuestionStatus(status), limit)
			if err != nil {
				return err
			}
			if len(qs) == 0 {
				fmt.Printf("No %s questions.\n", status)
				return nil
			}
			fmt.Printf("%-6s  %-16s  %-10s  %-3s  %-24s  %s\n", "ID", "Type", "Category", "Lvl", "Answer", "Question")
			fmt.Println(strings.Repeat("─", 100))
			for _, q := range qs {
				answer := q.CorrectAnswer
				if q.IsDynamic {
					answer = "(dynamic)"
				}
				fmt.Printf("%-6d  %-16s  %-10s  %-3d  %-24s  %s\n",
					q.ID, q.Type, clip(q.Category, 10), q.DifficultyLevel, clip(answer, 24), q.Text)
			}
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the question diversity history",
}

var historyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget recent questions, template usage and category cooldowns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Generator.ResetHistory(ctx); err != nil {
				return err
			}
			fmt.Println("Question history cleared.")
			return nil
		})
	},
}

func init() {
	generateCmd.Flags().IntP("count", "n", 1, "Number of questions to generate")

	questionsListCmd.Flags().String("status", string(domain.QuestionStatusAvailable), "pending_approval, available, answered or rejected")
	questionsListCmd.Flags().Int("limit", 50, "Maximum number of questions")
	questionsCmd.AddCommand(questionsListCmd)

	historyCmd.AddCommand(historyResetCmd)
}

func printQuestion(q *domain.Question) {
	fmt.Printf("#%d [%s/%s] %s\n", q.ID, q.Category, q.Status, q.Text)
	for _, c := range q.Choices {
		fmt.Printf("    %s\n", c)
	}
	if q.IsDynamic {
		fmt.Printf("    answer: computed at session start (%s)\n", q.TemplateID)
		return
	}
	fmt.Printf("    answer: %s\n", q.CorrectAnswer)
}

func clip(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
