package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "quizcraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://quiz.example.com/api
  timeout: 15s
quiz:
  default_questions: 8
  difficulty: hard
log:
  level: debug
devserver:
  cors_origins: [http://a.test, http://b.test]
`), 0o600))

	t.Setenv("QUIZCRAFT_QUIZ_PACE", "fast")
	t.Setenv("QUIZCRAFT_CLIENT_RETRY_MAX_ATTEMPTS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://quiz.example.com/api", cfg.Server.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 8, cfg.Quiz.DefaultQuestions)
	assert.Equal(t, "hard", cfg.Quiz.Difficulty)
	assert.Equal(t, "fast", cfg.Quiz.Pace)
	assert.Equal(t, 5, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.DevServer.CORSOrigins)
}

func TestLoadDefaultDirConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "quizcraft"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quizcraft", "config.yaml"),
		[]byte("quiz:\n  student_class: X\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "X", cfg.Quiz.StudentClass)
}

func TestLoadServerAlias(t *testing.T) {
	isolate(t)
	t.Setenv("QUIZCRAFT_SERVER", "http://10.0.0.5:9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:9000", cfg.Server.BaseURL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.Server.BaseURL = "/api" }},
		{"ftp url", func(c *Config) { c.Server.BaseURL = "ftp://x/api" }},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"negative rate", func(c *Config) { c.Client.RateLimit = -1 }},
		{"no attempts", func(c *Config) { c.Client.Retry.MaxAttempts = 0 }},
		{"too many questions", func(c *Config) { c.Quiz.DefaultQuestions = 11 }},
		{"unknown pace", func(c *Config) { c.Quiz.Pace = "glacial" }},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }},
		{"empty secret", func(c *Config) { c.DevServer.JWTSecret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestQuizOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quiz.DefaultQuestions = 3
	opts := cfg.QuizOptions()
	assert.Equal(t, 3, opts.NumQuestions)
	assert.Equal(t, "average", opts.Pace)
}
