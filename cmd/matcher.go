package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/ai/gemini"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/scoring"
	"github.com/spigell/cv-matcher/internal/secrets"

	"go.uber.org/zap"
)

var errExit = errors.New("exit requested")

// newMatcher builds the assessor selected by provider. An empty provider
// falls back to the configured one.
func newMatcher(ctx context.Context, config *Config, provider string, log *zap.Logger) (ai.Matcher, error) {
	if provider == "" {
		provider = config.AI.Provider
	}

	switch strings.TrimSpace(strings.ToLower(provider)) {
	case "", ai.ProviderModel:
		service, err := scoring.New(config.scoring(), log)
		if err != nil {
			return nil, fmt.Errorf("starting the scoring service: %w", err)
		}
		if !service.Loaded() {
			log.Warn("no model loaded, every pair scores the default score",
				zap.String("hint", "run the train command or set model-path"),
			)
		}
		return service, nil
	case ai.ProviderGemini:
		return newGeminiMatcher(ctx, config, log)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func newGeminiMatcher(ctx context.Context, config *Config, log *zap.Logger) (ai.Matcher, error) {
	cfg := config.AI.Gemini

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithCommonFields(log, ai.ProviderGemini, cfg.Model).With(
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	minScore := max(config.MinimumFitScore, 0)

	matcherLogger := logger.WithCommonFields(log, ai.ProviderGemini, generator.Model()).With(
		zap.Float64("minimum_fit_score", minScore),
	)

	return gemini.NewMatcher(generator, minScore, cfg.MaxLogLength, matcherLogger), nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return text, nil
}
