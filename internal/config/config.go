// Package config loads quizcraft settings from a YAML file and QUIZCRAFT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/abhisek/quizcraft/internal/catalog"
	"github.com/abhisek/quizcraft/internal/generate"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "QUIZCRAFT"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Client    ClientConfig    `mapstructure:"client"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Log       LogConfig       `mapstructure:"log"`
	DevServer DevServerConfig `mapstructure:"devserver"`
	LLM       LLMConfig       `mapstructure:"llm"`
}

type ServerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ClientConfig struct {
	RateLimit float64     `mapstructure:"rate_limit"`
	Burst     int         `mapstructure:"burst"`
	MaxPages  int         `mapstructure:"max_pages"`
	Retry     RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// QuizConfig holds the defaults pre-filled on the configure screen.
type QuizConfig struct {
	DefaultQuestions int    `mapstructure:"default_questions"`
	Pace             string `mapstructure:"pace"`
	Difficulty       string `mapstructure:"difficulty"`
	StudentClass     string `mapstructure:"student_class"`
	DocumentType     string `mapstructure:"document_type"`
	RootFolder       string `mapstructure:"root_folder"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // empty = $XDG_STATE_HOME/quizcraft/quizcraft.log
}

type DevServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	DB          string        `mapstructure:"db"` // empty = in-memory
}

// LLMConfig selects the provider the dev backend generates quizzes with.
// An empty Provider falls back to key discovery, then the built-in generator.
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	opts := generate.DefaultOptions()
	return Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8787/api",
			Timeout: 60 * time.Second,
		},
		Client: ClientConfig{
			RateLimit: 5,
			Burst:     10,
			MaxPages:  20,
			Retry: RetryConfig{
				MaxAttempts: 3,
				InitialWait: 500 * time.Millisecond,
				MaxWait:     5 * time.Second,
				Multiplier:  2.0,
			},
		},
		Quiz: QuizConfig{
			DefaultQuestions: opts.NumQuestions,
			Pace:             opts.Pace,
			Difficulty:       opts.Difficulty,
			StudentClass:     opts.StudentClass,
			DocumentType:     catalog.DefaultDocumentType,
		},
		Log: LogConfig{
			Level: "info",
		},
		DevServer: DevServerConfig{
			Addr:        "127.0.0.1:8787",
			CORSOrigins: []string{"http://localhost:3000"},
			JWTSecret:   "quizcraft-dev-secret",
			TokenTTL:    7 * 24 * time.Hour,
		},
		LLM: LLMConfig{
			Timeout: 60 * time.Second,
		},
	}
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.base_url", d.Server.BaseURL)
	v.SetDefault("server.timeout", d.Server.Timeout)

	v.SetDefault("client.rate_limit", d.Client.RateLimit)
	v.SetDefault("client.burst", d.Client.Burst)
	v.SetDefault("client.max_pages", d.Client.MaxPages)
	v.SetDefault("client.retry.max_attempts", d.Client.Retry.MaxAttempts)
	v.SetDefault("client.retry.initial_wait", d.Client.Retry.InitialWait)
	v.SetDefault("client.retry.max_wait", d.Client.Retry.MaxWait)
	v.SetDefault("client.retry.multiplier", d.Client.Retry.Multiplier)

	v.SetDefault("quiz.default_questions", d.Quiz.DefaultQuestions)
	v.SetDefault("quiz.pace", d.Quiz.Pace)
	v.SetDefault("quiz.difficulty", d.Quiz.Difficulty)
	v.SetDefault("quiz.student_class", d.Quiz.StudentClass)
	v.SetDefault("quiz.document_type", d.Quiz.DocumentType)
	v.SetDefault("quiz.root_folder", d.Quiz.RootFolder)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("devserver.addr", d.DevServer.Addr)
	v.SetDefault("devserver.cors_origins", d.DevServer.CORSOrigins)
	v.SetDefault("devserver.jwt_secret", d.DevServer.JWTSecret)
	v.SetDefault("devserver.token_ttl", d.DevServer.TokenTTL)
	v.SetDefault("devserver.db", d.DevServer.DB)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
}

// Load reads configuration. An explicit path must exist; otherwise
// config.yaml in DefaultDir is read when present. Environment variables
// such as QUIZCRAFT_SERVER_BASE_URL override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short aliases.
	_ = v.BindEnv("server.base_url", "QUIZCRAFT_SERVER_BASE_URL", "QUIZCRAFT_SERVER")
	_ = v.BindEnv("devserver.jwt_secret", "QUIZCRAFT_DEVSERVER_JWT_SECRET", "QUIZCRAFT_JWT_SECRET")
	_ = v.BindEnv("llm.provider", "QUIZCRAFT_LLM_PROVIDER")
	_ = v.BindEnv("llm.api_key", "QUIZCRAFT_LLM_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if dir, err := DefaultDir(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultDir is $XDG_CONFIG_HOME/quizcraft, or ~/.config/quizcraft.
func DefaultDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "quizcraft"), nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.base_url %q must be an absolute http(s) URL", c.Server.BaseURL)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Client.RateLimit < 0 {
		return fmt.Errorf("client.rate_limit must not be negative")
	}
	if c.Client.Retry.MaxAttempts < 1 {
		return fmt.Errorf("client.retry.max_attempts must be at least 1")
	}
	if c.Client.MaxPages < 1 {
		return fmt.Errorf("client.max_pages must be at least 1")
	}
	if err := c.QuizOptions().Validate(); err != nil {
		return fmt.Errorf("quiz defaults: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.DevServer.JWTSecret == "" {
		return fmt.Errorf("devserver.jwt_secret must not be empty")
	}
	return nil
}

// QuizOptions returns the configured generation defaults.
func (c Config) QuizOptions() generate.Options {
	return generate.Options{
		NumQuestions: c.Quiz.DefaultQuestions,
		Pace:         c.Quiz.Pace,
		Difficulty:   c.Quiz.Difficulty,
		StudentClass: c.Quiz.StudentClass,
	}
}
