package publicapi

import (
	"context"
	"errors"
	"strings"

	"github.com/rapidos-social/go-rapidos/feed"
	"github.com/rapidos-social/go-rapidos/service/ai"
	"github.com/rapidos-social/go-rapidos/service/persist"
)

// ErrNoSuggestion is returned when text generation produced nothing usable
type ErrNoSuggestion struct {
	Err error
}

func (e ErrNoSuggestion) Error() string {
	return "no suggestion available: " + e.Err.Error()
}

func (e ErrNoSuggestion) Unwrap() error {
	return e.Err
}

type FeedAPI struct {
	sync *feed.Synchronizer
	gen  ai.Generator
}

// View is the read-only state handed to presentation
func (api FeedAPI) View() feed.View {
	return api.sync.View()
}

func (api FeedAPI) Refresh(ctx context.Context) error {
	return api.sync.Load(ctx)
}

func (api FeedAPI) AddPost(ctx context.Context, content string) error {
	if err := api.requireContent(content); err != nil {
		return err
	}
	return api.sync.AddPost(ctx, content, false)
}

// Suggest completes draft, or suggests a fresh post when draft is blank. On failure the
// suggestion is empty and the failure becomes the message.
func (api FeedAPI) Suggest(ctx context.Context, draft string) (string, error) {
	var result ai.Result
	if strings.TrimSpace(draft) == "" {
		result = ai.SuggestPost(ctx, api.gen, "")
	} else {
		result = ai.CompletePost(ctx, api.gen, draft)
	}

	if !result.OK() {
		api.sync.SetMessage(result.Message())
		err := result.Err
		if err == nil {
			err = ai.ErrEmptyResponse
		}
		return "", ErrNoSuggestion{Err: err}
	}

	api.sync.SetMessage("")
	return result.Text, nil
}

// QuickPost posts content as the viewer, generating it first when content is blank
func (api FeedAPI) QuickPost(ctx context.Context, content string) (string, error) {
	if _, ok := api.sync.Viewer(); !ok {
		return "", feed.ErrNotSignedIn
	}

	if strings.TrimSpace(content) == "" {
		suggestion, err := api.Suggest(ctx, "")
		if err != nil {
			return "", err
		}
		content = suggestion
	}

	return content, api.sync.AddPost(ctx, content, false)
}

func (api FeedAPI) ToggleLike(ctx context.Context, postID persist.DBID) error {
	if err := validatePostID(postID); err != nil {
		return err
	}
	return api.sync.ToggleLike(ctx, postID)
}

func (api FeedAPI) AddComment(ctx context.Context, postID persist.DBID, content string) error {
	if err := validatePostID(postID); err != nil {
		return err
	}
	if err := api.requireContent(content); err != nil {
		return err
	}
	return api.sync.AddComment(ctx, postID, content)
}

func (api FeedAPI) OpenFocusedPost(ctx context.Context, postID persist.DBID) (persist.Post, error) {
	if _, ok := api.sync.Viewer(); !ok {
		return persist.Post{}, feed.ErrNotSignedIn
	}
	if err := validatePostID(postID); err != nil {
		return persist.Post{}, err
	}
	return api.sync.OpenFocusedPost(ctx, postID)
}

func (api FeedAPI) CloseFocusedPost() {
	api.sync.CloseFocusedPost()
}

func (api FeedAPI) requireContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrInvalidInput{Parameters: []string{"content"}, Reasons: []string{feed.ErrEmptyContent.Error()}}
	}
	return nil
}

// validatePostID rejects ids the backend could never have issued
func validatePostID(postID persist.DBID) error {
	if !postID.Valid() {
		return ErrInvalidInput{Parameters: []string{"postId"}, Reasons: []string{"must be a uuid"}}
	}
	return nil
}

// IsNotFound reports whether err means the requested post does not exist
func IsNotFound(err error) bool {
	var notFound persist.ErrPostNotFoundByID
	return errors.As(err, &notFound)
}
