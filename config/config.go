package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "INTERVIEWMESH"

// Config is the full runtime configuration.
type Config struct {
	ListenAddr string `mapstructure:"listen-addr"`

	// Provider selects the generation backend, "openai" or "anthropic".
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api-key"`
	Model    string `mapstructure:"model"`

	// EmbeddingAPIKey authenticates the OpenAI embedding client when the
	// generation backend is not OpenAI. Empty falls back to APIKey.
	EmbeddingAPIKey string `mapstructure:"embedding-api-key"`

	InterviewMinutes int `mapstructure:"interview-minutes"`
	MaxQuestions     int `mapstructure:"max-questions"`

	// MemoryIndexPath is the base path for the vector index files. Empty
	// disables the semantic memory store.
	MemoryIndexPath string `mapstructure:"memory-index-path"`

	// SessionDBPath is the SQLite file for durable sessions. Empty selects
	// the in-memory store.
	SessionDBPath string `mapstructure:"session-db-path"`

	AllowedOrigins []string `mapstructure:"allowed-origins"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

// Duration returns the interview time budget.
func (c *Config) Duration() time.Duration {
	return time.Duration(c.InterviewMinutes) * time.Minute
}

// Validate reports configuration errors a deployment cannot run with.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.APIKey == "" {
		return errors.New("api key is required")
	}
	if c.Provider == "anthropic" && c.MemoryIndexPath != "" && c.EmbeddingAPIKey == "" {
		return errors.New("embedding-api-key is required when semantic memory is enabled with the anthropic provider")
	}
	if c.InterviewMinutes <= 0 {
		return errors.New("interview-minutes must be positive")
	}
	if c.MaxQuestions <= 0 {
		return errors.New("max-questions must be positive")
	}
	return nil
}

// Init applies defaults and environment bindings to v.
func Init(v *viper.Viper) {
	v.SetDefault("listen-addr", ":8080")
	v.SetDefault("provider", "openai")
	v.SetDefault("interview-minutes", 35)
	v.SetDefault("max-questions", 8)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads the optional config file and unmarshals the result. A missing
// file is not an error when no explicit path was given.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("interviewmesh")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
