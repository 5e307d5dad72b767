package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rapidos-social/go-rapidos/middleware"
	"github.com/rapidos-social/go-rapidos/publicapi"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/rapidos-social/go-rapidos/util"
)

type signInInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Viewer persist.Viewer `json:"viewer"`
	Token  string         `json:"token"`
}

func signIn(api *publicapi.PublicAPI, tokens *middleware.SessionTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input signInInput
		if !util.BindJSON(c, &input) {
			return
		}

		viewer, err := api.Auth.SignIn(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			errResponse(c, err)
			return
		}

		c.JSON(http.StatusOK, startSession(c, tokens, viewer))
	}
}

func signUp(api *publicapi.PublicAPI, tokens *middleware.SessionTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input publicapi.SignUpInput
		if !util.BindJSON(c, &input) {
			return
		}

		viewer, err := api.Auth.SignUp(c.Request.Context(), input)
		if err != nil {
			errResponse(c, err)
			return
		}

		c.JSON(http.StatusCreated, startSession(c, tokens, viewer))
	}
}

func signOut(api *publicapi.PublicAPI, tokens *middleware.SessionTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := api.Auth.SignOut(c.Request.Context()); err != nil {
			errResponse(c, err)
			return
		}

		tokens.Revoke()
		middleware.SetSessionCookie(c, "")
		c.JSON(http.StatusOK, util.SuccessResponse{Success: true})
	}
}

func getViewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := middleware.ViewerFromCtx(c)
		if !ok {
			util.ErrResponse(c, http.StatusUnauthorized, middleware.ErrNotSignedIn{})
			return
		}
		c.JSON(http.StatusOK, viewer)
	}
}

func startSession(c *gin.Context, tokens *middleware.SessionTokens, viewer persist.Viewer) sessionResponse {
	token := tokens.Issue()
	middleware.SetSessionCookie(c, token)
	return sessionResponse{Viewer: viewer, Token: token}
}
