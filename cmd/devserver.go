package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/auth"
	"github.com/abhisek/quizcraft/internal/devserver"
	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/logging"
	"github.com/abhisek/quizcraft/internal/store"
)

const memoryDSN = "file:quizcraft-dev?mode=memory&cache=shared"

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local quiz service for development",
	Long: `Run the quiz REST API locally with a sample catalog.

Quizzes are written by the configured LLM provider (llm.provider, or the
first of GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENROUTER_API_KEY
found in the environment). Without one, a built-in generator is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.DevServer.Addr = addr
		}

		logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Console: os.Stderr})
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		dsn := cfg.DevServer.DB
		if dsn == "" {
			dsn = memoryDSN
		}
		st, err := store.Open(dsn)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		var provider llm.Provider
		if llmCfg, ok := resolveLLMConfig(cfg.LLM); ok {
			if err := llmCfg.Validate(); err != nil {
				return fmt.Errorf("LLM provider: %w", err)
			}
			provider, err = llm.NewProvider(ctx, llmCfg, st.Events(), logger)
			if err != nil {
				return fmt.Errorf("LLM provider: %w", err)
			}
			logger.Info("using LLM provider", zap.String("provider", llmCfg.Provider), zap.String("model", provider.Model()))
		} else {
			logger.Info("no LLM provider configured, using built-in generator")
		}

		srv, err := devserver.New(devserver.Options{
			Store:       st,
			Issuer:      auth.NewIssuer(cfg.DevServer.JWTSecret, cfg.DevServer.TokenTTL),
			Generator:   devserver.NewGenerator(provider, logger),
			CORSOrigins: cfg.DevServer.CORSOrigins,
			Logger:      logger,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Quiz service on http://%s/api (metrics at /metrics)\n", cfg.DevServer.Addr)
		return srv.ListenAndServe(ctx, cfg.DevServer.Addr)
	},
}

func init() {
	devserverCmd.Flags().String("addr", "", "Listen address (overrides devserver.addr)")
}
