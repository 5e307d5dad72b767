package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rapidos-social/go-rapidos/feed"
	"github.com/rapidos-social/go-rapidos/publicapi"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/rapidos-social/go-rapidos/util"
)

type contentInput struct {
	Content string `json:"content"`
}

type suggestInput struct {
	Draft string `json:"draft"`
}

type suggestionResponse struct {
	Content string     `json:"content"`
	View    *feed.View `json:"view,omitempty"`
}

type getFeedInput struct {
	Refresh bool `form:"refresh"`
}

func getFeed(api *publicapi.PublicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input getFeedInput
		if !util.BindQuery(c, &input) {
			return
		}

		if input.Refresh {
			if err := api.Feed.Refresh(c.Request.Context()); err != nil {
				errResponse(c, err)
				return
			}
		}

		c.JSON(http.StatusOK, api.Feed.View())
	}
}

func addPost(api *publicapi.PublicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input contentInput
		if !util.BindJSON(c, &input) {
			return
		}

		if err := api.Feed.AddPost(c.Request.Context(), input.Content); err != nil {
			errResponse(c, err)
			return
		}

		c.JSON(http.StatusCreated, api.Feed.View())
	}
}

func quickPost(api *publicapi.PublicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input contentInput
		if !util.BindJSON(c, &input) {
			return
		}

		content, err := api.Feed.QuickPost(c.Request.Context(), input.Content)
		if err != nil {
			errResponse(c, err)
			return
		}

		view := api.Feed.View()
		c.JSON(http.StatusCreated, suggestionResponse{Content: content, View: &view})
	}
}

func suggestPost(api *publicapi.PublicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input suggestInput
		if !util.BindJSON(c, &input) {
			return
		}

		content, err := api.Feed.Suggest(c.Request.Context(), input.Draft)
		if err != nil {
			errResponse(c, err)
			return
		}

		c.JSON(http.StatusOK, suggestionResponse{Content: content})
	}
}

func toggleLike(api *publicapi.PublicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := api.Feed.ToggleLike(c.Request.Context(), persist.DBID(c.Param("id"))); err != nil {
			errResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, api.Feed.View())
	}
}

func addComment(api *publicapi.PublicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input contentInput
		if !util.BindJSON(c, &input) {
			return
		}

		if err := api.Feed.AddComment(c.Request.Context(), persist.DBID(c.Param("id")), input.Content); err != nil {
			errResponse(c, err)
			return
		}

		c.JSON(http.StatusCreated, api.Feed.View())
	}
}

func openFocusedPost(api *publicapi.PublicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := api.Feed.OpenFocusedPost(c.Request.Context(), persist.DBID(c.Param("id")))
		if err != nil {
			errResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

func closeFocusedPost(api *publicapi.PublicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		api.Feed.CloseFocusedPost()
		c.Status(http.StatusNoContent)
	}
}
