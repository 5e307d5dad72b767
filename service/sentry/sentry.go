package sentryutil

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/rapidos-social/go-rapidos/util"
)

const (
	viewerContextName = "viewer context"
	taskContextName   = "task context"
)

var scrubbedHeaders = []string{"Authorization", "Cookie", "X-Hasura-Admin-Secret"}

// Init configures the global Sentry client. An empty dsn leaves Sentry disabled.
func Init(dsn, env, release string, tracesSampleRate float64) error {
	if dsn == "" {
		logger.For(nil).Info("skipping sentry init")
		return nil
	}

	logger.For(nil).Info("initializing sentry...")

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          release,
		TracesSampleRate: tracesSampleRate,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			event = ScrubEventHeaders(event, hint)
			event = UpdateErrorFingerprints(event, hint)
			return event
		},
	})
}

// Flush waits for buffered events to be sent
func Flush() {
	sentry.Flush(2 * time.Second)
}

// ReportError captures err on the hub carried by ctx, tagged with its concrete type
func ReportError(ctx context.Context, err error) {
	hub := SentryHubFromContext(ctx)
	if hub == nil {
		logger.For(ctx).Warnln("could not report error to Sentry because hub is nil")
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("errorType", fmt.Sprintf("%T", err))
		hub.CaptureException(err)
	})
}

// ReportTaskError reports a failed background task, tagged with the task's name
func ReportTaskError(ctx context.Context, task string, err error) {
	hub := SentryHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("task", task)
		scope.SetContext(taskContextName, sentry.Context{"name": task})
		hub.CaptureException(err)
	})
}

func ScrubEventHeaders(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}

	for _, h := range scrubbedHeaders {
		if _, ok := event.Request.Headers[h]; ok {
			event.Request.Headers[h] = "[Filtered]"
		}
	}
	event.Request.Cookies = ""
	return event
}

func UpdateErrorFingerprints(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event == nil || hint == nil || hint.OriginalException == nil {
		return event
	}

	// errors.errorString isn't exported, and grouping every errors.New() error together is useless,
	// so fingerprint those by message instead.
	exceptionType := fmt.Sprintf("%T", hint.OriginalException)
	if exceptionType == "*errors.errorString" {
		event.Fingerprint = []string{"{{ default }}", hint.OriginalException.Error()}
	}

	return event
}

func SetViewerContext(scope *sentry.Scope, viewer *persist.Viewer) {
	if viewer == nil {
		scope.SetContext(viewerContextName, sentry.Context{"authenticated": false})
		scope.SetUser(sentry.User{})
		return
	}

	scope.SetContext(viewerContextName, sentry.Context{
		"userId":        viewer.ID.String(),
		"handle":        viewer.Handle,
		"authenticated": true,
	})
	scope.SetUser(sentry.User{ID: viewer.ID.String(), Username: viewer.Handle})
}

// NewHubContext attaches a clone of the current hub to ctx, scoped to viewer. Work that
// outlives a request uses it so its events still carry the viewer.
func NewHubContext(ctx context.Context, viewer *persist.Viewer) context.Context {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		SetViewerContext(scope, viewer)
	})
	return sentry.SetHubOnContext(ctx, hub)
}

// SentryHubFromContext gets a Hub from the supplied context, or from an underlying
// gin.Context if one is available
func SentryHubFromContext(ctx context.Context) *sentry.Hub {
	if ctx == nil {
		return nil
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}

	if gc := util.GinContextFromContext(ctx); gc != nil {
		if hub := sentrygin.GetHubFromContext(gc); hub != nil {
			return hub
		}
	}

	return nil
}

type tracingTransport struct {
	http.RoundTripper

	continueOnly bool
}

// NewTracingTransport creates an http transport that will trace requests via Sentry. If continueOnly is true,
// traces will only be generated if they'd contribute to an existing parent trace.
func NewTracingTransport(roundTripper http.RoundTripper, continueOnly bool) http.RoundTripper {
	if roundTripper == nil {
		roundTripper = http.DefaultTransport
	}

	// If roundTripper is already a tracer, grab its underlying RoundTripper instead
	if existingTracer, ok := roundTripper.(*tracingTransport); ok {
		return &tracingTransport{RoundTripper: existingTracer.RoundTripper, continueOnly: continueOnly}
	}

	return &tracingTransport{RoundTripper: roundTripper, continueOnly: continueOnly}
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.continueOnly && sentry.TransactionFromContext(req.Context()) == nil {
		return t.RoundTripper.RoundTrip(req)
	}

	span := sentry.StartSpan(req.Context(), "http."+strings.ToLower(req.Method))
	span.Description = fmt.Sprintf("HTTP %s %s", req.Method, req.URL.String())
	defer span.Finish()

	// Send sentry-trace header in case the receiving service can continue our trace
	req.Header.Add("sentry-trace", span.ToSentryTrace())

	response, err := t.RoundTripper.RoundTrip(req)
	if err != nil {
		span.Status = sentry.SpanStatusUnavailable
		return response, err
	}

	span.SetData("HTTP Status Code", response.StatusCode)
	return response, nil
}
