package ai

import (
	"context"
	"time"

	"github.com/rapidos-social/go-rapidos/env"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/spf13/viper"
)

func init() {
	env.RegisterValidation("TEXT_GENERATION_PROVIDER", "omitempty,oneof=gemini openai")
}

func SetDefaults() {
	viper.SetDefault("TEXT_GENERATION_PROVIDER", "gemini")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", DefaultGeminiModel)
	viper.SetDefault("OPENAI_API_KEY", "")
	viper.SetDefault("OPENAI_MODEL", DefaultOpenAIModel)
	viper.SetDefault("TEXT_GENERATION_INTERVAL", 2*time.Second)
	viper.SetDefault("TEXT_GENERATION_BURST", 3)
}

// NewGeneratorFromEnv builds the configured provider. A missing key is not fatal: the
// returned generator then fails every request, which callers already tolerate.
func NewGeneratorFromEnv(ctx context.Context) Generator {
	var g Generator
	var err error

	switch env.GetString(ctx, "TEXT_GENERATION_PROVIDER") {
	case "openai":
		g, err = NewOpenAIClient(env.GetString(ctx, "OPENAI_API_KEY"), env.GetString(ctx, "OPENAI_MODEL"))
	default:
		g, err = NewGeminiClient(ctx, env.GetString(ctx, "GEMINI_API_KEY"), env.GetString(ctx, "GEMINI_MODEL"))
	}
	if err != nil {
		logger.For(ctx).Errorf("text generation unavailable: %s", err)
		return Unconfigured{}
	}

	interval := env.Get[time.Duration](ctx, "TEXT_GENERATION_INTERVAL")
	if interval <= 0 {
		return g
	}
	return NewRateLimited(g, interval, env.Get[int](ctx, "TEXT_GENERATION_BURST"))
}
