package publicapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rapidos-social/go-rapidos/env"
	"github.com/rapidos-social/go-rapidos/feed"
	"github.com/rapidos-social/go-rapidos/feedbot"
	"github.com/rapidos-social/go-rapidos/service/ai"
	"github.com/rapidos-social/go-rapidos/service/nhost"
	"github.com/rapidos-social/go-rapidos/service/nhost/nhosttest"
	"github.com/rapidos-social/go-rapidos/service/persist"
	sentryutil "github.com/rapidos-social/go-rapidos/service/sentry"
	"github.com/rapidos-social/go-rapidos/service/throttle"
	"github.com/rapidos-social/go-rapidos/util/retry"
	"github.com/spf13/viper"
)

func init() {
	env.RegisterValidation("RAPIDOS_BACKEND", "required,oneof=nhost memory")
}

// AuthProvider is the session and identity service
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (nhost.Session, error)
	SignUp(ctx context.Context, input nhost.SignUpInput) (nhost.Session, error)
	SignOut(ctx context.Context) error
	Session() (nhost.Session, bool)
}

// PublicAPI owns the application state of one client session: the viewer, the working set,
// the focused post and the visible message. Presentation layers only go through it.
type PublicAPI struct {
	validator *validator.Validate
	sync      *feed.Synchronizer
	bots      *feedbot.Scheduler
	Auth      *AuthAPI
	Feed      *FeedAPI
}

func New(auth AuthProvider, backend feed.Backend, gen ai.Generator, botConfig feedbot.Config, opts ...feed.Option) *PublicAPI {
	opts = append([]feed.Option{feed.WithLocker(throttle.NewThrottleLocker(time.Minute))}, opts...)
	sync := feed.NewSynchronizer(backend, opts...)
	bots := feedbot.NewScheduler(sync, gen, botConfig)
	sync.SetBotAssist(bots)

	v := validator.New()

	return &PublicAPI{
		validator: v,
		sync:      sync,
		bots:      bots,
		Auth:      &AuthAPI{provider: auth, sync: sync, bots: bots, validator: v},
		Feed:      &FeedAPI{sync: sync, gen: gen},
	}
}

func SetDefaults() {
	viper.SetDefault("RAPIDOS_BACKEND", "nhost")
	nhost.SetDefaults()
	ai.SetDefaults()
	feedbot.SetDefaults()
}

// NewFromEnv wires the API against the configured backend. RAPIDOS_BACKEND=memory runs against
// an in-process store, which is handy for demos without a backend project.
func NewFromEnv(ctx context.Context) *PublicAPI {
	gen := ai.NewGeneratorFromEnv(ctx)
	botConfig := feedbot.ConfigFromEnv(ctx)

	if env.GetString(ctx, "RAPIDOS_BACKEND") == "memory" {
		backend := nhosttest.NewBackend()
		return New(nhosttest.NewAuth(backend), backend, gen, botConfig)
	}

	transport := sentryutil.NewTracingTransport(http.DefaultTransport, true)
	auth := nhost.NewAuthClient(nhost.AuthURL(ctx), &http.Client{Transport: transport, Timeout: 30 * time.Second})
	httpClient := nhost.NewAuthedHTTPClient(auth, transport)
	httpClient.Timeout = 30 * time.Second
	backend := nhost.NewClient(nhost.GraphQLURL(ctx), httpClient).
		WithRetry(retry.InteractiveRetry).
		WithTokenRefresh(auth.Refresh)

	return New(auth, backend, gen, botConfig)
}

// Viewer returns the signed-in viewer
func (api *PublicAPI) Viewer() (persist.Viewer, bool) {
	return api.sync.Viewer()
}

// Close waits for in-flight background work to finish
func (api *PublicAPI) Close() {
	api.bots.Wait()
}

// Shutdown cancels pending bot tasks and then waits for the rest to return
func (api *PublicAPI) Shutdown() {
	api.bots.Reset()
	api.bots.Wait()
}

type validationMap map[string]struct {
	value interface{}
	tag   string
}

func validateFields(validator *validator.Validate, fields validationMap) error {
	validationErr := ErrInvalidInput{}
	foundErrors := false

	for k, v := range fields {
		err := validator.Var(v.value, v.tag)
		if err != nil {
			foundErrors = true
			validationErr.Append(k, err.Error())
		}
	}

	if foundErrors {
		return validationErr
	}

	return nil
}

type ErrInvalidInput struct {
	Parameters []string
	Reasons    []string
}

func (e *ErrInvalidInput) Append(parameter string, reason string) {
	e.Parameters = append(e.Parameters, parameter)
	e.Reasons = append(e.Reasons, reason)
}

func (e ErrInvalidInput) Error() string {
	var b strings.Builder
	b.WriteString("invalid input:")
	for i := range e.Parameters {
		fmt.Fprintf(&b, " parameter: %s, reason: %s;", e.Parameters[i], e.Reasons[i])
	}
	return b.String()
}
