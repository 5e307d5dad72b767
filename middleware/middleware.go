package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/persist"
	sentryutil "github.com/rapidos-social/go-rapidos/service/sentry"
	"github.com/rapidos-social/go-rapidos/util"
	"github.com/sirupsen/logrus"
)

const viewerContextKey = "viewer"

// ViewerSource reports the signed-in viewer, if any
type ViewerSource interface {
	Viewer() (persist.Viewer, bool)
}

// ErrNotSignedIn is returned for routes that need a session when there is none
type ErrNotSignedIn struct{}

func (ErrNotSignedIn) Error() string {
	return "not signed in"
}

// SessionRequired aborts with 401 unless the request carries the issued session token and a
// viewer is signed in. The viewer is stored on the gin context and added to all subsequent logging.
func SessionRequired(src ViewerSource, tokens *SessionTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tokens.Valid(sessionToken(c)) {
			util.ErrResponse(c, http.StatusUnauthorized, ErrNotSignedIn{})
			c.Abort()
			return
		}

		viewer, ok := src.Viewer()
		if !ok {
			util.ErrResponse(c, http.StatusUnauthorized, ErrNotSignedIn{})
			c.Abort()
			return
		}

		c.Set(viewerContextKey, viewer)
		loggerCtx := logger.NewContextWithFields(c.Request.Context(), logrus.Fields{
			"viewerId": viewer.ID,
		})
		c.Request = c.Request.WithContext(loggerCtx)

		if hub := sentryutil.SentryHubFromContext(c); hub != nil {
			sentryutil.SetViewerContext(hub.Scope(), &viewer)
		}

		c.Next()
	}
}

// ViewerFromCtx returns the viewer stored by SessionRequired
func ViewerFromCtx(c *gin.Context) (persist.Viewer, bool) {
	v, ok := c.Get(viewerContextKey)
	if !ok {
		return persist.Viewer{}, false
	}
	viewer, ok := v.(persist.Viewer)
	return viewer, ok
}

// RateLimited is a middleware that rate limits requests by IP address
func RateLimited(lim *KeyRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		canContinue, tryAgainAfter := lim.ForKey(c.ClientIP())
		if !canContinue {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, util.ErrorResponse{Error: fmt.Sprintf("rate limited, try again in %s", tryAgainAfter)})
			return
		}
		c.Next()
	}
}

// HandleCORS sets the CORS headers
func HandleCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestOrigin := c.Request.Header.Get("Origin")

		if IsOriginAllowed(c, requestOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", requestOrigin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, sentry-trace, baggage")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ErrLogger is a middleware that logs errors
func ErrLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.For(c).Errorf("%s %s %s %s %s", c.Request.Method, c.Request.URL, c.ClientIP(), c.Request.Header.Get("User-Agent"), c.Errors.JSON())
		}
	}
}

// GinContextToContext is a middleware that adds the Gin context to the request context
func GinContextToContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), util.GinContextKey, c)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func Sentry(reportGinErrors bool) gin.HandlerFunc {
	handler := sentrygin.New(sentrygin.Options{Repanic: true})

	return func(c *gin.Context) {
		// Clone a new hub for each request
		hub := sentry.CurrentHub().Clone()

		// BeforeSend isn't called for transactions, so scrub headers with an event processor as well
		hub.Scope().AddEventProcessor(sentryutil.ScrubEventHeaders)

		// Add the cloned hub to the request context so sentrygin will find it
		c.Request = c.Request.WithContext(sentry.SetHubOnContext(c.Request.Context(), hub))

		// sentrygin calls c.Next() for us
		handler(c)

		if reportGinErrors {
			for _, err := range c.Errors {
				if err.IsType(gin.ErrorTypePrivate) {
					sentryutil.ReportError(c.Request.Context(), err.Err)
				}
			}
		}
	}
}
