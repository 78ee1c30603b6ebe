package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/ai/gemini"
	"github.com/spigell/hr-matcher/internal/logger"
	"github.com/spigell/hr-matcher/internal/matching"
	"github.com/spigell/hr-matcher/internal/matchmaker"
	"github.com/spigell/hr-matcher/internal/regions"
	"github.com/spigell/hr-matcher/internal/secrets"
	"github.com/spigell/hr-matcher/internal/store"
)

const providerGemini = "gemini"

// deps bundles what every matching command needs. Close releases the store.
type deps struct {
	config  *Config
	backend store.Backend
	service *matchmaker.Service
}

func (d *deps) Close() error {
	return d.backend.Close()
}

func newDeps(ctx context.Context, log *zap.Logger) (*deps, error) {
	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	engine, err := newEngine(ctx, config, log)
	if err != nil {
		return nil, err
	}

	backend, err := store.Open(ctx, config.Database, log)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	aiEnabled := config.AI != nil && config.AI.Enabled
	service := matchmaker.New(backend, engine, &config.Filters, aiEnabled, log)

	return &deps{config: config, backend: backend, service: service}, nil
}

func newEngine(ctx context.Context, config *Config, log *zap.Logger) (*matching.Engine, error) {
	table, err := regions.FromConfig(config.Regions)
	if err != nil {
		return nil, fmt.Errorf("decoding regions: %w", err)
	}

	opts := []matching.Option{
		matching.WithRegions(table),
		matching.WithLogger(log),
	}

	if config.AI != nil && config.AI.Enabled {
		assessor, err := newAssessor(ctx, config.AI, log)
		if err != nil {
			return nil, fmt.Errorf("building ai assessor: %w", err)
		}
		opts = append(opts, matching.WithAssessor(assessor))
	}

	return matching.New(config.Matching, opts...)
}

func newAssessor(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Assessor, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != providerGemini {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	gcfg := cfg.Gemini
	if gcfg == nil {
		gcfg = &GeminiConfig{}
	}
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gcfg.APIKey,
		File:  gcfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or %s)", err, geminiKeyFileEnv)
	}

	genLogger := log.With(
		zap.String(logger.FieldProvider, providerGemini),
		zap.Int("ai_retry_attempts", gcfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewAssessor(generator, gcfg.MaxLogLength, logger.WithAIFields(log, providerGemini, generator.Model())), nil
}

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetBool("json"), viper.GetBool("debug"))
}
