package nhost

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/rapidos-social/go-rapidos/util/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gqlRequest struct {
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables"`
	OperationName string          `json:"operationName"`
}

type testCase struct {
	title string
	run   func(t *testing.T)
}

// newGraphQLServer answers each operation with the canned body registered for it
func newGraphQLServer(t *testing.T, bodies map[string]string, seen func(gqlRequest, *http.Request)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			seen(req, r)
		}
		body, ok := bodies[req.OperationName]
		if !ok {
			http.Error(w, "unexpected operation "+req.OperationName, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

var fastRetry = retry.Retry{Base: 1, Cap: 1, Tries: 3, Unit: time.Millisecond}

func TestGraphQLClient(t *testing.T) {
	tests := []testCase{
		{title: "should decode posts with partial nested fields", run: testGetPostsDecodesPartialRecords},
		{title: "should return nil for a missing post", run: testGetPostByIDMissing},
		{title: "should send viewer and post ids when reading likes", run: testGetLikedPostIDs},
		{title: "should return the created post id", run: testInsertPost},
		{title: "should expose graphql error codes", run: testErrorCode},
		{title: "should retry rate limited reads", run: testRetriesRateLimitedReads},
		{title: "should not retry writes", run: testDoesNotRetryWrites},
		{title: "should send the session token", run: testSendsBearerToken},
	}
	for _, test := range tests {
		t.Run(test.title, test.run)
	}
}

func testGetPostsDecodesPartialRecords(t *testing.T) {
	srv := newGraphQLServer(t, map[string]string{
		"GetPosts": `{"data":{"posts":[
			{"id":"p2","content":"second","image_url":null,"created_at":"2024-05-02T10:00:00.000000+00:00","is_bot_post":true,
			 "user":{"id":"u1","displayName":"Ada Lovelace","avatarUrl":"https://a","metadata":{"actualUsername":"ada","isBot":false}},
			 "comments_aggregate":{"aggregate":{"count":1}},
			 "comments":[{"id":"c1","content":"hi","created_at":"2024-05-02T11:00:00+00:00","is_bot_comment":null,"user":null}],
			 "likes_aggregate":{"aggregate":{"count":3}}},
			{"id":"p1","content":"first","created_at":"2024-05-01T10:00:00Z","user":null,"comments_aggregate":null,"likes_aggregate":{"aggregate":null}}
		]}}`,
	}, nil)
	defer srv.Close()

	posts, err := NewClient(srv.URL, srv.Client()).GetPosts(context.Background())

	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, persist.DBID("p2"), posts[0].ID)
	assert.Equal(t, "ada", posts[0].User.Metadata["actualUsername"])
	assert.Equal(t, 3, posts[0].LikesAggregate.Count())
	assert.Equal(t, 1, posts[0].CommentsAggregate.Count())
	assert.Nil(t, posts[0].Comments[0].User)
	assert.Nil(t, posts[1].User)
	assert.Equal(t, 0, posts[1].CommentsAggregate.Count())
	assert.Equal(t, 0, posts[1].LikesAggregate.Count())
	assert.Nil(t, posts[1].Comments)
}

func testGetPostByIDMissing(t *testing.T) {
	var vars map[string]string
	srv := newGraphQLServer(t, map[string]string{
		"GetPostById": `{"data":{"posts_by_pk":null}}`,
	}, func(req gqlRequest, _ *http.Request) {
		json.Unmarshal(req.Variables, &vars)
	})
	defer srv.Close()

	post, err := NewClient(srv.URL, srv.Client()).GetPostByID(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, post)
	assert.Equal(t, "missing", vars["postId"])
}

func testGetLikedPostIDs(t *testing.T) {
	var vars struct {
		UserID  string   `json:"userId"`
		PostIDs []string `json:"postIds"`
	}
	srv := newGraphQLServer(t, map[string]string{
		"GetUserLikesForPosts": `{"data":{"post_likes":[{"post_id":"p1"}]}}`,
	}, func(req gqlRequest, _ *http.Request) {
		json.Unmarshal(req.Variables, &vars)
	})
	defer srv.Close()

	liked, err := NewClient(srv.URL, srv.Client()).GetLikedPostIDs(context.Background(), "u1", []persist.DBID{"p1", "p2"})

	require.NoError(t, err)
	assert.Equal(t, []persist.DBID{"p1"}, liked)
	assert.Equal(t, "u1", vars.UserID)
	assert.Equal(t, []string{"p1", "p2"}, vars.PostIDs)
}

func testInsertPost(t *testing.T) {
	var vars map[string]any
	srv := newGraphQLServer(t, map[string]string{
		"AddPost": `{"data":{"insert_posts_one":{"id":"new-post"}}}`,
	}, func(req gqlRequest, _ *http.Request) {
		json.Unmarshal(req.Variables, &vars)
	})
	defer srv.Close()

	id, err := NewClient(srv.URL, srv.Client()).InsertPost(context.Background(), NewPost{UserID: "u1", Content: "hello", IsBotPost: true})

	require.NoError(t, err)
	assert.Equal(t, persist.DBID("new-post"), id)
	assert.Equal(t, "u1", vars["userId"])
	assert.Equal(t, true, vars["isBotPost"])
	assert.Nil(t, vars["imageUrl"])
}

func testErrorCode(t *testing.T) {
	srv := newGraphQLServer(t, map[string]string{
		"LikePost": `{"data":null,"errors":[{"message":"Uniqueness violation","extensions":{"code":"constraint-violation","path":"$.selectionSet.insert_post_likes_one.args.object"}}]}`,
	}, nil)
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).InsertLike(context.Background(), "p1", "u1")

	require.Error(t, err)
	assert.Equal(t, "constraint-violation", ErrorCode(err))
	assert.Contains(t, err.Error(), "LikePost")
}

func testRetriesRateLimitedReads(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"posts":[]}}`))
	}))
	defer srv.Close()

	posts, err := NewClient(srv.URL, srv.Client()).WithRetry(fastRetry).GetPosts(context.Background())

	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func testDoesNotRetryWrites(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).WithRetry(fastRetry).DeleteLike(context.Background(), "p1", "u1")

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func testSendsBearerToken(t *testing.T) {
	var header string
	srv := newGraphQLServer(t, map[string]string{
		"GetPosts": `{"data":{"posts":[]}}`,
	}, func(_ gqlRequest, r *http.Request) {
		header = r.Header.Get("Authorization")
	})
	defer srv.Close()

	auth := NewAuthClient("unused", nil)
	auth.setSession(&Session{AccessToken: "token-123"})

	_, err := NewClient(srv.URL, NewAuthedHTTPClient(auth, srv.Client().Transport)).GetPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Bearer token-123", header)
}
