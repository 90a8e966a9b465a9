package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/config"
	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/store"
)

// resolveLLMConfig picks the devserver's provider: the llm config section
// first, provider keys from QUIZCRAFT_* variables when the section names a
// provider without a key, then the standard vendor key variables.
func resolveLLMConfig(c config.LLMConfig) (llm.Config, bool) {
	if c.Provider == "" {
		return llm.DiscoverConfig()
	}
	if c.APIKey == "" {
		cfg := llm.ConfigFromEnv()
		cfg.Provider = c.Provider
		if c.Timeout > 0 {
			cfg.Timeout = c.Timeout
		}
		return cfg, true
	}
	return llm.FromSettings(c.Provider, c.APIKey, c.Model, c.BaseURL, c.Timeout), true
}

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM calls made by the dev server",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	Long:  "List LLM requests recorded by the dev server. Requires devserver.db to point at a file database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.DevServer.DB == "" {
			return fmt.Errorf("devserver.db is not set; the dev server keeps LLM events in memory only")
		}

		s, err := store.Open(cfg.DevServer.DB)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		events, err := s.Events().RecentLLMRequests(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM requests recorded.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-14s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"Seq", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Fprintln(out, strings.Repeat("─", 100))

		for _, e := range events {
			if purpose != "" && e.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗ " + e.ErrorMessage
			}
			model := e.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-14s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.Sequence,
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				model,
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

func init() {
	llmListCmd.Flags().Int("limit", 50, "Maximum number of events")
	llmListCmd.Flags().String("purpose", "", "Only show events with this purpose (quiz-generation, result-analysis)")
	llmCmd.AddCommand(llmListCmd)
}
