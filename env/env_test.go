package env

import (
	"context"
	"testing"
	"time"

	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestMain(t *testing.T) {
	logger.Discard()
	ctx := context.Background()

	t.Run("typed values are cast from strings", func(t *testing.T) {
		viper.Reset()
		viper.Set("FOLLOW_UP_PROBABILITY", "0.25")
		viper.Set("WELCOME_DELAY", "3s")
		viper.Set("BOT_ASSIST_ENABLED", "true")

		assert.Equal(t, 0.25, Get[float64](ctx, "FOLLOW_UP_PROBABILITY"))
		assert.Equal(t, 3*time.Second, Get[time.Duration](ctx, "WELCOME_DELAY"))
		assert.True(t, Get[bool](ctx, "BOT_ASSIST_ENABLED"))
	})

	t.Run("missing values are reported as unset", func(t *testing.T) {
		viper.Reset()
		_, ok := GetIfExists[string](ctx, "NHOST_SUBDOMAIN")
		assert.False(t, ok)
		assert.Equal(t, "", GetString(ctx, "NHOST_SUBDOMAIN"))
	})

	t.Run("required_for_env only applies to the named environment", func(t *testing.T) {
		viper.Reset()
		RegisterValidation("SENTRY_DSN", "required_for_env=production")

		viper.Set("ENV", "local")
		assert.Empty(t, Validate(ctx))

		viper.Set("ENV", "production")
		assert.Contains(t, Validate(ctx), "SENTRY_DSN")

		viper.Set("SENTRY_DSN", "https://key@sentry.example/1")
		assert.NotContains(t, Validate(ctx), "SENTRY_DSN")
	})
}
