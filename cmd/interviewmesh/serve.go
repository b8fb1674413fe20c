package main

import (
	"fmt"
	"log/slog"
	"net/http"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/interviewmesh/config"
	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/logging"
	"github.com/hupe1980/interviewmesh/memory"
	"github.com/hupe1980/interviewmesh/model"
	"github.com/hupe1980/interviewmesh/model/anthropic"
	"github.com/hupe1980/interviewmesh/model/openai"
	"github.com/hupe1980/interviewmesh/server"
	"github.com/hupe1980/interviewmesh/session"
	"github.com/hupe1980/interviewmesh/session/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interview server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().String("listen-addr", ":8080", "address to listen on")
	serveCmd.Flags().String("provider", "openai", "generation backend (openai or anthropic)")
	serveCmd.Flags().String("api-key", "", "API key for the generation backend")
	serveCmd.Flags().String("embedding-api-key", "", "OpenAI API key for embeddings (defaults to api-key)")
	serveCmd.Flags().Int("interview-minutes", 35, "interview time budget in minutes")
	serveCmd.Flags().Int("max-questions", 8, "maximum number of primary questions")
	serveCmd.Flags().String("memory-index-path", "", "base path for vector index files (empty disables semantic memory)")
	serveCmd.Flags().String("session-db-path", "", "SQLite file for sessions (empty keeps sessions in memory)")

	viper.BindPFlag("listen-addr", serveCmd.Flags().Lookup("listen-addr"))
	viper.BindPFlag("provider", serveCmd.Flags().Lookup("provider"))
	viper.BindPFlag("api-key", serveCmd.Flags().Lookup("api-key"))
	viper.BindPFlag("embedding-api-key", serveCmd.Flags().Lookup("embedding-api-key"))
	viper.BindPFlag("interview-minutes", serveCmd.Flags().Lookup("interview-minutes"))
	viper.BindPFlag("max-questions", serveCmd.Flags().Lookup("max-questions"))
	viper.BindPFlag("memory-index-path", serveCmd.Flags().Lookup("memory-index-path"))
	viper.BindPFlag("session-db-path", serveCmd.Flags().Lookup("session-db-path"))

	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config) error {
	logger := logging.New(logging.Config{
		Level:  logLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	gen, embedder := buildModels(cfg)

	store, closeStore, err := buildSessionStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var mem *memory.Store
	if cfg.MemoryIndexPath != "" {
		mem, err = memory.NewStore(embedder, cfg.MemoryIndexPath, func(o *memory.Options) {
			o.Logger = logger
		})
		if err != nil {
			return fmt.Errorf("open memory store: %w", err)
		}
	}

	srv := server.New(gen, store, func(o *server.Options) {
		o.Memory = mem
		o.Duration = cfg.Duration()
		o.MaxQuestions = cfg.MaxQuestions
		o.AllowedOrigins = cfg.AllowedOrigins
		o.Logger = logger
	})

	logger.Info("server.listening", "addr", cfg.ListenAddr, "provider", cfg.Provider)
	return http.ListenAndServe(cfg.ListenAddr, srv.Handler())
}

// buildModels returns the configured generation backend plus the embedder.
// Embeddings always come from OpenAI since Anthropic has no embedding API;
// with a non-OpenAI generation backend the embedding client needs its own
// OpenAI key.
func buildModels(cfg *config.Config) (model.Generator, model.Embedder) {
	embeddingKey := cfg.EmbeddingAPIKey
	if embeddingKey == "" {
		embeddingKey = cfg.APIKey
	}

	if cfg.Provider == "anthropic" {
		gen := anthropic.New(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		})
		embClient := openaisdk.NewClient(openaiopt.WithAPIKey(embeddingKey))
		return gen, openai.NewFromClient(&embClient)
	}

	client := openaisdk.NewClient(openaiopt.WithAPIKey(cfg.APIKey))
	oa := openai.NewFromClient(&client, func(o *openai.Options) {
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
	})
	return oa, oa
}

func buildSessionStore(cfg *config.Config) (core.SessionStore, func(), error) {
	if cfg.SessionDBPath == "" {
		return session.NewInMemoryStore(), func() {}, nil
	}
	store, err := sqlite.Open(cfg.SessionDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open session db: %w", err)
	}
	return store, func() { store.Close() }, nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
