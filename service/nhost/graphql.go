package nhost

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Khan/genqlient/graphql"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/rapidos-social/go-rapidos/util/retry"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// GraphQL error codes the client reacts to
const (
	CodeConstraintViolation = "constraint-violation"
	CodeInvalidJWT          = "invalid-jwt"
)

// Client talks to the backend's GraphQL data API. Reads are retried when the API rate limits
// us; writes are attempted exactly once, unless the API rejected the token before running them.
type Client struct {
	gql     graphql.Client
	retry   retry.Retry
	refresh func(ctx context.Context) error
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	return &Client{
		gql:   graphql.NewClient(endpoint, httpClient),
		retry: retry.InteractiveRetry,
	}
}

// WithRetry returns a copy of the client that retries reads with r
func (c *Client) WithRetry(r retry.Retry) *Client {
	cpy := *c
	cpy.retry = r
	return &cpy
}

// WithTokenRefresh returns a copy of the client that calls refresh and repeats the request once
// when the API reports an expired or invalid token
func (c *Client) WithTokenRefresh(refresh func(ctx context.Context) error) *Client {
	cpy := *c
	cpy.refresh = refresh
	return &cpy
}

func (c *Client) GetPosts(ctx context.Context) ([]PostRecord, error) {
	var data struct {
		Posts []PostRecord `json:"posts"`
	}
	if err := c.query(ctx, "GetPosts", getPostsOperation, nil, &data); err != nil {
		return nil, err
	}
	return data.Posts, nil
}

// GetPostByID returns nil without an error when no post has the given ID
func (c *Client) GetPostByID(ctx context.Context, postID persist.DBID) (*PostRecord, error) {
	vars := struct {
		PostID persist.DBID `json:"postId"`
	}{postID}

	var data struct {
		Post *PostRecord `json:"posts_by_pk"`
	}
	if err := c.query(ctx, "GetPostById", getPostByIDOperation, vars, &data); err != nil {
		return nil, err
	}
	return data.Post, nil
}

func (c *Client) GetLikedPostIDs(ctx context.Context, userID persist.DBID, postIDs []persist.DBID) ([]persist.DBID, error) {
	vars := struct {
		UserID  persist.DBID   `json:"userId"`
		PostIDs []persist.DBID `json:"postIds"`
	}{userID, postIDs}

	var data struct {
		Likes []struct {
			PostID persist.DBID `json:"post_id"`
		} `json:"post_likes"`
	}
	if err := c.query(ctx, "GetUserLikesForPosts", getUserLikesForPostsOperation, vars, &data); err != nil {
		return nil, err
	}

	liked := make([]persist.DBID, 0, len(data.Likes))
	for _, l := range data.Likes {
		liked = append(liked, l.PostID)
	}
	return liked, nil
}

func (c *Client) InsertPost(ctx context.Context, post NewPost) (persist.DBID, error) {
	var data struct {
		Post *struct {
			ID persist.DBID `json:"id"`
		} `json:"insert_posts_one"`
	}
	if err := c.mutate(ctx, "AddPost", addPostOperation, post, &data); err != nil {
		return "", err
	}
	if data.Post == nil {
		return "", fmt.Errorf("AddPost: no post returned")
	}
	return data.Post.ID, nil
}

func (c *Client) InsertComment(ctx context.Context, comment NewComment) (CommentRecord, error) {
	var data struct {
		Comment *CommentRecord `json:"insert_comments_one"`
	}
	if err := c.mutate(ctx, "AddComment", addCommentOperation, comment, &data); err != nil {
		return CommentRecord{}, err
	}
	if data.Comment == nil {
		return CommentRecord{}, persist.ErrPostNotFoundByID{ID: comment.PostID}
	}
	return *data.Comment, nil
}

func (c *Client) InsertLike(ctx context.Context, postID, userID persist.DBID) error {
	vars := persist.Like{PostID: postID, UserID: userID}
	return c.mutate(ctx, "LikePost", likePostOperation, likeVars(vars), &struct{}{})
}

func (c *Client) DeleteLike(ctx context.Context, postID, userID persist.DBID) error {
	vars := persist.Like{PostID: postID, UserID: userID}
	return c.mutate(ctx, "UnlikePost", unlikePostOperation, likeVars(vars), &struct{}{})
}

func likeVars(l persist.Like) any {
	return struct {
		PostID persist.DBID `json:"postId"`
		UserID persist.DBID `json:"userId"`
	}{l.PostID, l.UserID}
}

func (c *Client) query(ctx context.Context, opName, query string, vars any, data any) error {
	req := &graphql.Request{OpName: opName, Query: query, Variables: vars}
	err := retry.RetryFunc(ctx, func(ctx context.Context) error {
		return c.do(ctx, req, data)
	}, retry.IsRateLimited, c.retry)
	if err != nil {
		return fmt.Errorf("%s: %w", opName, err)
	}
	return nil
}

func (c *Client) mutate(ctx context.Context, opName, query string, vars any, data any) error {
	req := &graphql.Request{OpName: opName, Query: query, Variables: vars}
	if err := c.do(ctx, req, data); err != nil {
		return fmt.Errorf("%s: %w", opName, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, req *graphql.Request, data any) error {
	err := c.gql.MakeRequest(ctx, req, &graphql.Response{Data: data})
	if err == nil || c.refresh == nil || ErrorCode(err) != CodeInvalidJWT {
		return err
	}
	if refreshErr := c.refresh(ctx); refreshErr != nil {
		return err
	}
	return c.gql.MakeRequest(ctx, req, &graphql.Response{Data: data})
}

// ErrorCode returns the `extensions.code` of the first GraphQL error wrapped by err, e.g.
// "constraint-violation" when a like already exists.
func ErrorCode(err error) string {
	var list gqlerror.List
	if errors.As(err, &list) {
		for _, e := range list {
			if code, ok := e.Extensions["code"].(string); ok {
				return code
			}
		}
	}

	var single *gqlerror.Error
	if errors.As(err, &single) && single != nil {
		if code, ok := single.Extensions["code"].(string); ok {
			return code
		}
	}

	return ""
}
