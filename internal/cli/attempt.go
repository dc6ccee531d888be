package cli

import (
	"github.com/spf13/cobra"
	"studysphere-tracker/internal/domain"
)

// NewAttemptCmd records one finished quiz for the session user.
func NewAttemptCmd(configPath *string) *cobra.Command {
	var in domain.AttemptInput
	cmd := &cobra.Command{
		Use:   "attempt",
		Short: "Record a finished quiz attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			attempt, recorded, err := rt.tracker.RecordAttempt(cmd.Context(), in)
			if err != nil {
				return err
			}
			if !recorded {
				return domain.ErrNotLoggedIn
			}
			return printJSON(cmd.OutOrStdout(), attempt)
		},
	}
	cmd.Flags().StringVar(&in.PassageID, "passage", "", "passage id")
	cmd.Flags().IntVar(&in.Score, "score", 0, "score percentage (0-100)")
	cmd.Flags().IntVar(&in.TimeElapsed, "time", 0, "seconds spent")
	cmd.Flags().IntVar(&in.TotalQuestions, "questions", 0, "number of questions")
	_ = cmd.MarkFlagRequired("passage")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

// NewAttemptsCmd lists attempts, filtered to --user or the session user.
func NewAttemptsCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List quiz attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			attempts, err := rt.tracker.ListAttempts(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if attempts == nil {
				attempts = []domain.QuizAttempt{}
			}
			return printJSON(cmd.OutOrStdout(), attempts)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (defaults to the logged-in user)")
	return cmd
}

// NewProgressCmd prints the session user's progress report.
func NewProgressCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show per-subject progress for the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, ok, err := rt.tracker.ComputeProgress(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrNotLoggedIn
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}
