package util

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrInvalidInput is returned when a request body or query cannot be bound
type ErrInvalidInput struct {
	Reason string `json:"reason"`
}

func (e ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// ErrResponse records err on the gin context for the error middleware and writes it as JSON
func ErrResponse(c *gin.Context, code int, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error()})
}

// BindJSON decodes the request body into into. When the body is invalid it writes a 400 and
// returns false.
func BindJSON(c *gin.Context, into any) bool {
	if err := c.ShouldBindJSON(into); err != nil {
		ErrResponse(c, http.StatusBadRequest, ErrInvalidInput{Reason: err.Error()})
		return false
	}
	return true
}

// BindQuery is BindJSON for query parameters
func BindQuery(c *gin.Context, into any) bool {
	if err := c.ShouldBindQuery(into); err != nil {
		ErrResponse(c, http.StatusBadRequest, ErrInvalidInput{Reason: err.Error()})
		return false
	}
	return true
}
