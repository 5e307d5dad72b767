package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rapidos-social/go-rapidos/middleware"
	"github.com/rapidos-social/go-rapidos/publicapi"
)

func handlersInit(router *gin.Engine, api *publicapi.PublicAPI, tokens *middleware.SessionTokens) *gin.Engine {
	router.GET("/ping", healthcheck())

	authGroup := router.Group("/auth")
	authGroup.POST("/signin", signIn(api, tokens))
	authGroup.POST("/signup", signUp(api, tokens))
	authGroup.POST("/signout", middleware.SessionRequired(api, tokens), signOut(api, tokens))

	sessionGroup := router.Group("/", middleware.SessionRequired(api, tokens))
	sessionGroup.GET("/me", getViewer())
	sessionGroup.GET("/feed", getFeed(api))
	sessionGroup.POST("/posts", addPost(api))
	sessionGroup.POST("/posts/quick", quickPost(api))
	sessionGroup.POST("/posts/suggest", suggestPost(api))
	sessionGroup.POST("/posts/:id/like", toggleLike(api))
	sessionGroup.POST("/posts/:id/comments", addComment(api))
	sessionGroup.PUT("/focus/:id", openFocusedPost(api))
	sessionGroup.DELETE("/focus", closeFocusedPost(api))

	return router
}
