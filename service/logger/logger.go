package logger

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type loggerContextKey struct{}

var defaultLogger = logrus.New()
var defaultEntry = logrus.NewEntry(defaultLogger)

// InitWithDefaults configures the shared logger for the given environment. Non-production
// environments log at debug level unless quiet is set.
func InitWithDefaults(env string, quiet bool) {
	SetLoggerOptions(func(l *logrus.Logger) {
		switch {
		case quiet:
			l.SetLevel(logrus.InfoLevel)
		case env != "production":
			l.SetLevel(logrus.DebugLevel)
		default:
			l.SetLevel(logrus.InfoLevel)
		}

		if env == "production" {
			l.SetFormatter(&logrus.JSONFormatter{})
		} else {
			l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
	})
}

// Discard silences the shared logger, mostly useful in tests
func Discard() {
	SetLoggerOptions(func(l *logrus.Logger) { l.SetOutput(io.Discard) })
}

func NewContextWithFields(parent context.Context, fields logrus.Fields) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, loggerContextKey{}, For(parent).WithFields(fields))
}

func SetLoggerOptions(optionsFunc func(logger *logrus.Logger)) {
	optionsFunc(defaultLogger)
}

func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return defaultEntry
	}

	// If ctx is a *gin.Context, get the underlying request context
	if gc, ok := ctx.(*gin.Context); ok {
		if gc.Request == nil {
			return defaultEntry
		}
		ctx = gc.Request.Context()
	}

	if logger, ok := ctx.Value(loggerContextKey{}).(*logrus.Entry); ok {
		return logger.WithContext(ctx)
	}

	return defaultEntry.WithContext(ctx)
}
