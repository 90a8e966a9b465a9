package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/api"
	"github.com/abhisek/quizcraft/internal/app"
	"github.com/abhisek/quizcraft/internal/auth"
	"github.com/abhisek/quizcraft/internal/catalog"
	"github.com/abhisek/quizcraft/internal/config"
	"github.com/abhisek/quizcraft/internal/logging"
	"github.com/abhisek/quizcraft/internal/scoring"
	"github.com/abhisek/quizcraft/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "quizcraft",
	Short:        "Quizzes from your study material, in the terminal",
	Long:         "quizcraft turns a textbook chapter or your own PDF notes into a multiple-choice quiz, scores it and keeps your history.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, app.StartHome, false)
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QUIZCRAFT_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default $XDG_CONFIG_HOME/quizcraft/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "Quiz service base URL (overrides server.base_url)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(devserverCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then QUIZCRAFT_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, os.MkdirAll(filepath.Dir(p), 0o755)
	}
	return store.DefaultDBPath()
}

// loadConfig reads --config and applies --server.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		cfg.Server.BaseURL = server
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// env is what every client-side command runs with.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	session *auth.Session
	client  *api.Client
}

func (e *env) Close() {
	_ = e.logger.Sync()
	_ = e.store.Close()
}

// setup loads configuration, opens the token store, restores the session
// and builds the API client.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	session := auth.NewSession(st.Credentials(), logger)
	if err := session.Restore(cmd.Context()); err != nil {
		logger.Warn("restore session", zap.Error(err))
	}

	client := api.New(cfg.Server.BaseURL,
		api.WithTimeout(cfg.Server.Timeout),
		api.WithTokenSource(session),
		api.WithRateLimit(cfg.Client.RateLimit, cfg.Client.Burst),
		api.WithRetry(api.RetryConfig{
			MaxAttempts: cfg.Client.Retry.MaxAttempts,
			InitialWait: cfg.Client.Retry.InitialWait,
			MaxWait:     cfg.Client.Retry.MaxWait,
			Multiplier:  cfg.Client.Retry.Multiplier,
		}),
		api.WithMaxPages(cfg.Client.MaxPages),
		api.WithLogger(logger),
	)

	return &env{cfg: cfg, logger: logger, store: st, session: session, client: client}, nil
}

// runTUI launches the interactive app.
func runTUI(cmd *cobra.Command, start app.Start, skipWelcome bool) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	e.logger.Info("starting", zap.String("version", version), zap.String("server", e.cfg.Server.BaseURL))
	return app.Run(cmd.Context(), app.Options{
		Backend:   e.client,
		Session:   e.session,
		Submitter: scoring.NewCoordinator(e.client, e.logger),
		Logger:    e.logger,
		Defaults:  e.cfg.QuizOptions(),
		Catalog: []catalog.Option{
			catalog.WithDocumentType(e.cfg.Quiz.DocumentType),
			catalog.WithRootFolder(e.cfg.Quiz.RootFolder),
		},
		SkipWelcome: skipWelcome,
		Start:       start,
	})
}

// requireSignIn fails commands that need a token.
func requireSignIn(e *env) error {
	if !e.session.SignedIn() {
		return fmt.Errorf("not signed in; run: quizcraft login")
	}
	return nil
}
