package nhost

import (
	"context"
	"fmt"

	"github.com/rapidos-social/go-rapidos/env"
	"github.com/spf13/viper"
)

func init() {
	env.RegisterValidation("NHOST_SUBDOMAIN", "required")
}

func SetDefaults() {
	viper.SetDefault("NHOST_SUBDOMAIN", "local")
	viper.SetDefault("NHOST_REGION", "")
	viper.SetDefault("NHOST_AUTH_URL", "")
	viper.SetDefault("NHOST_GRAPHQL_URL", "")
}

// AuthURL is the auth service base URL, derived from the project subdomain and region unless
// NHOST_AUTH_URL overrides it
func AuthURL(ctx context.Context) string {
	if u := env.GetString(ctx, "NHOST_AUTH_URL"); u != "" {
		return u
	}
	return serviceURL(env.GetString(ctx, "NHOST_SUBDOMAIN"), env.GetString(ctx, "NHOST_REGION"), "auth")
}

// GraphQLURL is the GraphQL endpoint, derived like AuthURL unless NHOST_GRAPHQL_URL overrides it
func GraphQLURL(ctx context.Context) string {
	if u := env.GetString(ctx, "NHOST_GRAPHQL_URL"); u != "" {
		return u
	}
	return serviceURL(env.GetString(ctx, "NHOST_SUBDOMAIN"), env.GetString(ctx, "NHOST_REGION"), "graphql")
}

func serviceURL(subdomain, region, service string) string {
	if subdomain == "local" || region == "" {
		return fmt.Sprintf("https://%s.%s.nhost.run/v1", subdomain, service)
	}
	return fmt.Sprintf("https://%s.%s.%s.nhost.run/v1", subdomain, service, region)
}
