package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rapidos-social/go-rapidos/feed"
	"github.com/rapidos-social/go-rapidos/publicapi"
	"github.com/rapidos-social/go-rapidos/service/nhost"
	"github.com/rapidos-social/go-rapidos/service/throttle"
	"github.com/rapidos-social/go-rapidos/util"
)

// errResponse picks a status for err. The message shown to the viewer is already in the view.
func errResponse(c *gin.Context, err error) {
	util.ErrResponse(c, statusFor(err), err)
}

func statusFor(err error) int {
	var (
		invalid      publicapi.ErrInvalidInput
		authErr      nhost.ErrAuth
		verification nhost.ErrVerificationRequired
		locked       throttle.ErrThrottleLocked
		noSuggestion publicapi.ErrNoSuggestion
	)

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, feed.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, feed.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.As(err, &authErr):
		if authErr.Status >= 400 && authErr.Status < 500 {
			return authErr.Status
		}
		return http.StatusUnauthorized
	case errors.As(err, &verification):
		return http.StatusForbidden
	case publicapi.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &locked):
		return http.StatusConflict
	case errors.As(err, &noSuggestion):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
