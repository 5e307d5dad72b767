package util

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/spf13/viper"
)

type ginContextKey struct{}

// GinContextKey is where middleware stores the *gin.Context on the request context
var GinContextKey = ginContextKey{}

// GinContextFromContext returns the gin context behind ctx, or nil outside of a request
func GinContextFromContext(ctx context.Context) *gin.Context {
	if gc, ok := ctx.(*gin.Context); ok {
		return gc
	}
	gc, _ := ctx.Value(GinContextKey).(*gin.Context)
	return gc
}

// FindFile looks for f in the working directory and then in up to searchDepth-1 parents
func FindFile(f string, searchDepth int) (string, error) {
	path := f
	for i := 0; i < searchDepth; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", fmt.Errorf("could not find file '%s' within %d directories", f, searchDepth)
}

func InDocker() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// ResolveEnvFile names the settings file for service: app-<env>-<service>.yaml, where env is
// "docker" inside a container and "local" for anything unrecognized.
func ResolveEnvFile(service string, env string) string {
	switch {
	case InDocker():
		env = "docker"
	case env == "local", env == "development", env == "sandbox", env == "production":
	default:
		env = "local"
	}
	return fmt.Sprintf("app-%s-%s.yaml", env, service)
}

// LoadEnvFile merges settings from _local/fileName into viper. Only the local environment reads
// settings files, and a missing file leaves defaults and the process environment in charge.
func LoadEnvFile(fileName string) {
	if viper.GetString("ENV") != "local" {
		logger.For(nil).Info("running in non-local environment, skipping settings file")
		return
	}

	path, err := FindFile(filepath.Join("_local", fileName), 5)
	if err != nil {
		logger.For(nil).Debugf("no local settings found: %s", err)
		return
	}

	logger.For(nil).Infof("loading settings from %s", path)
	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		panic(fmt.Sprintf("error reading settings file %s: %s", path, err))
	}
}

// TruncateWithEllipsis shortens s to at most length runes
func TruncateWithEllipsis(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}

// FirstNonEmpty returns the first argument that is not blank
func FirstNonEmpty(strs ...string) string {
	for _, s := range strs {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
