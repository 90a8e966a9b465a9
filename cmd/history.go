package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/scoring"
	"github.com/abhisek/quizcraft/internal/screens/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past quiz results",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if err := requireSignIn(e); err != nil {
			return err
		}

		results, err := e.client.ListResults(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No quizzes taken yet.")
			return nil
		}

		fmt.Fprintf(out, "%-24s  %-16s  %-36s  %7s  %s\n", "ID", "Taken", "Quiz", "Score", "")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, r := range results {
			title := r.Quiz.Title
			if runes := []rune(title); len(runes) > 36 {
				title = string(runes[:35]) + "…"
			}
			band := ""
			score := fmt.Sprintf("%d/%d", r.Score, r.TotalQuestions)
			if pct, err := scoring.Percentage(r.Score, r.TotalQuestions); err == nil {
				score = fmt.Sprintf("%d%%", pct)
				band = scoring.BandFor(pct).Label()
			}
			fmt.Fprintf(out, "%-24s  %-16s  %-36s  %7s  %s\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), title, score, band)
		}

		st := scoring.Summarize(results, time.Now())
		fmt.Fprintln(out, strings.Repeat("─", 100))
		fmt.Fprintf(out, "%d quizzes, average %d%%, best %d%%, %d this week\n",
			st.Total, st.Average, st.Best, st.ThisWeek)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <result-id>",
	Short: "Print the report for a result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if err := requireSignIn(e); err != nil {
			return err
		}

		r, err := e.client.GetResult(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return report.Plain(cmd.OutOrStdout(), r)
	},
}
