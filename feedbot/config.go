package feedbot

import (
	"context"
	"time"

	"github.com/rapidos-social/go-rapidos/env"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/spf13/viper"
)

// DefaultPersonas are the bot identities welcome posts are themed after
var DefaultPersonas = []persist.Persona{
	{Name: "Welcome Wagon", Handle: "welcomewagon", AvatarURL: "https://picsum.photos/seed/welcomewagon/200/200"},
	{Name: "Trend Spotter", Handle: "trendspotter", AvatarURL: "https://picsum.photos/seed/trendspotter/200/200"},
	{Name: "Daily Muse", Handle: "dailymuse", AvatarURL: "https://picsum.photos/seed/dailymuse/200/200"},
}

func DefaultConfig() Config {
	return Config{
		WelcomeDelay:   3 * time.Second,
		FollowUpDelay:  2 * time.Second,
		FollowUpJitter: 3 * time.Second,
		Personas:       DefaultPersonas,
	}
}

func SetDefaults() {
	d := DefaultConfig()
	viper.SetDefault("FEEDBOT_WELCOME_DELAY", d.WelcomeDelay)
	viper.SetDefault("FEEDBOT_FOLLOW_UP_DELAY", d.FollowUpDelay)
	viper.SetDefault("FEEDBOT_FOLLOW_UP_JITTER", d.FollowUpJitter)
}

// ConfigFromEnv reads delays from the environment and personas from the FEEDBOT_PERSONAS key of
// the settings file, falling back to DefaultPersonas
func ConfigFromEnv(ctx context.Context) Config {
	cfg := DefaultConfig()
	cfg.WelcomeDelay = env.Get[time.Duration](ctx, "FEEDBOT_WELCOME_DELAY")
	cfg.FollowUpDelay = env.Get[time.Duration](ctx, "FEEDBOT_FOLLOW_UP_DELAY")
	cfg.FollowUpJitter = env.Get[time.Duration](ctx, "FEEDBOT_FOLLOW_UP_JITTER")

	if viper.IsSet("FEEDBOT_PERSONAS") {
		var personas []persist.Persona
		if err := viper.UnmarshalKey("FEEDBOT_PERSONAS", &personas); err != nil {
			logger.For(ctx).Errorf("invalid FEEDBOT_PERSONAS, using defaults: %s", err)
		} else {
			cfg.Personas = personas
		}
	}
	return cfg
}
