package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rapidos-social/go-rapidos/publicapi"
	"github.com/rapidos-social/go-rapidos/server"
	"github.com/rapidos-social/go-rapidos/service/logger"
	sentryutil "github.com/rapidos-social/go-rapidos/service/sentry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feed over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := setup(cmd)
		defer sentryutil.Flush()

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		api := publicapi.NewFromEnv(ctx)
		defer api.Shutdown()

		srv := server.NewServer(ctx, api)
		errs := make(chan error, 1)
		go func() {
			logger.For(ctx).WithFields(logrus.Fields{"addr": srv.Addr}).Info("starting server")
			errs <- srv.ListenAndServe()
		}()

		select {
		case err := <-errs:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.For(nil).Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
