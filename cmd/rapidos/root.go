package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rapidos-social/go-rapidos/env"
	"github.com/rapidos-social/go-rapidos/publicapi"
	"github.com/rapidos-social/go-rapidos/server"
	"github.com/rapidos-social/go-rapidos/service/logger"
	sentryutil "github.com/rapidos-social/go-rapidos/service/sentry"
	"github.com/rapidos-social/go-rapidos/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	quietLogs bool
	manualEnv string
	email     string
	password  string
	waitBots  bool
)

func init() {
	cobra.OnInitialize(server.SetDefaults)

	rootCmd.PersistentFlags().BoolVarP(&quietLogs, "quiet", "q", false, "hide debug logs")
	rootCmd.PersistentFlags().StringVarP(&manualEnv, "env", "e", "local", "env to run with")
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "account email, defaults to RAPIDOS_EMAIL")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "account password, defaults to RAPIDOS_PASSWORD")
	rootCmd.PersistentFlags().BoolVar(&waitBots, "wait-bots", false, "wait for scheduled bot posts and comments before exiting")

	rootCmd.AddCommand(serveCmd, signUpCmd, feedCmd, postCmd, likeCmd, commentCmd, suggestCmd)
}

var rootCmd = &cobra.Command{
	Use:   "rapidos",
	Short: "Feed client for the Rapidos social backend",
	Long: `Signs in against the configured backend and works with the shared feed:
reading it, posting, liking, commenting and drafting posts with text generation.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and the ambient stack every command needs
func setup(cmd *cobra.Command) context.Context {
	if cmd.Flags().Changed("env") {
		viper.Set("ENV", manualEnv)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	util.LoadEnvFile(util.ResolveEnvFile("rapidos", viper.GetString("ENV")))
	logger.InitWithDefaults(viper.GetString("ENV"), quietLogs)

	if invalid := env.Validate(ctx); len(invalid) > 0 {
		logger.For(ctx).Warnf("invalid configuration for %v", invalid)
	}

	err := sentryutil.Init(
		env.GetString(ctx, "SENTRY_DSN"),
		env.GetString(ctx, "ENV"),
		env.GetString(ctx, "VERSION"),
		env.Get[float64](ctx, "SENTRY_TRACES_SAMPLE_RATE"),
	)
	if err != nil {
		logger.For(ctx).Errorf("failed to start sentry: %s", err)
	}

	return ctx
}

// withSession runs fn against a signed-in API and tears the session down afterwards
func withSession(cmd *cobra.Command, fn func(ctx context.Context, api *publicapi.PublicAPI) error) error {
	ctx := setup(cmd)
	defer sentryutil.Flush()

	api := publicapi.NewFromEnv(ctx)
	defer func() {
		if waitBots {
			api.Close()
		} else {
			api.Shutdown()
		}
	}()

	if _, ok := api.Auth.Resume(ctx); !ok {
		if _, err := api.Auth.SignIn(ctx, credential(email, "RAPIDOS_EMAIL"), credential(password, "RAPIDOS_PASSWORD")); err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
	}

	return fn(ctx, api)
}

func credential(flag, key string) string {
	return util.FirstNonEmpty(flag, viper.GetString(key))
}
