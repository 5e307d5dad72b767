package middleware

import (
	"context"
	"strings"

	"github.com/rapidos-social/go-rapidos/env"
)

func IsOriginAllowed(ctx context.Context, requestOrigin string) bool {
	if env.GetString(ctx, "ENV") == "local" {
		return true
	}

	for _, origin := range strings.Split(env.GetString(ctx, "ALLOWED_ORIGINS"), ",") {
		if strings.TrimSpace(origin) == requestOrigin && requestOrigin != "" {
			return true
		}
	}

	return false
}
