package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rapidos-social/go-rapidos/env"
	"github.com/rapidos-social/go-rapidos/middleware"
	"github.com/rapidos-social/go-rapidos/publicapi"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/spf13/viper"
)

func init() {
	env.RegisterValidation("ENV", "required,oneof=local development sandbox production")
	env.RegisterValidation("PORT", "required,numeric")
	env.RegisterValidation("HOST", "omitempty,ip")
}

func SetDefaults() {
	viper.SetDefault("ENV", "local")
	viper.SetDefault("HOST", "127.0.0.1")
	viper.SetDefault("PORT", 4000)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("VERSION", "")
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.2)
	viper.SetDefault("RATE_LIMIT_BURST", 30)
	viper.SetDefault("RATE_LIMIT_EVERY", time.Second)
	publicapi.SetDefaults()
	viper.AutomaticEnv()
}

// CoreInit builds the router around api. This is abstracted so tests can use it directly.
func CoreInit(ctx context.Context, api *publicapi.PublicAPI) *gin.Engine {
	logger.For(ctx).Info("initializing server...")

	if env.GetString(ctx, "ENV") != "production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Sentry(true), middleware.HandleCORS(), middleware.GinContextToContext(), middleware.ErrLogger())

	burst := env.Get[int](ctx, "RATE_LIMIT_BURST")
	every := env.Get[time.Duration](ctx, "RATE_LIMIT_EVERY")
	if burst > 0 && every > 0 {
		router.Use(middleware.RateLimited(middleware.NewKeyRateLimiter(burst, every)))
	}

	return handlersInit(router, api, middleware.NewSessionTokens())
}

func NewServer(ctx context.Context, api *publicapi.PublicAPI) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(env.GetString(ctx, "HOST"), strconv.Itoa(env.Get[int](ctx, "PORT"))),
		Handler:           CoreInit(ctx, api),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
