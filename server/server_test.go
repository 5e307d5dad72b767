package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rapidos-social/go-rapidos/feed"
	"github.com/rapidos-social/go-rapidos/feedbot"
	"github.com/rapidos-social/go-rapidos/middleware"
	"github.com/rapidos-social/go-rapidos/publicapi"
	"github.com/rapidos-social/go-rapidos/service/ai"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/nhost/nhosttest"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCase struct {
	title string
	run   func(t *testing.T)
}

type testServer struct {
	router  *gin.Engine
	backend *nhosttest.Backend
	auth    *nhosttest.Auth
	api     *publicapi.PublicAPI
	token   string
}

func newTestServer(t *testing.T, gen ai.Generator) *testServer {
	logger.Discard()
	backend := nhosttest.NewBackend()
	auth := nhosttest.NewAuth(backend)
	api := publicapi.New(auth, backend, gen, feedbot.Config{}, feed.WithRand(func() float64 { return 0.99 }))
	t.Cleanup(api.Close)
	router := CoreInit(context.Background(), api)
	gin.SetMode(gin.TestMode)
	return &testServer{router: router, backend: backend, auth: auth, api: api}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestMain(t *testing.T) {
	tests := []testCase{
		{title: "ping", run: testPing},
		{title: "feed routes require a session", run: testRequiresSession},
		{title: "sign up then post, like and comment", run: testRoundTrip},
		{title: "bad credentials are rejected", run: testBadCredentials},
		{title: "unknown focused post is not found", run: testFocusNotFound},
		{title: "failed suggestion is a bad gateway", run: testSuggestFailure},
		{title: "sign out ends the session", run: testSignOut},
		{title: "a signed in server still needs the session token", run: testRequiresToken},
		{title: "session cookie is issued on sign up", run: testSessionCookie},
		{title: "malformed post ids are bad requests", run: testMalformedPostID},
		{title: "me returns the viewer", run: testMe},
	}
	for _, test := range tests {
		t.Run(test.title, test.run)
	}
}

func testPing(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	w := s.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rapidos operational", decode[healthcheckResponse](t, w).Message)
}

func testRequiresSession(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	for _, path := range []string{"/feed", "/feed?refresh=true"} {
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, nil).Code)
	}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/posts", map[string]string{"content": "hi"}).Code)
}

func signUpAs(t *testing.T, s *testServer) persist.Viewer {
	w := s.do(t, http.MethodPost, "/auth/signup", publicapi.SignUpInput{Email: "ada@example.com", Password: "pw", Username: "ada", DisplayName: "Ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[sessionResponse](t, w)
	require.NotEmpty(t, session.Token)
	s.token = session.Token
	return session.Viewer
}

func testRoundTrip(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	bob := s.auth.Register("bob@example.com", "pw", "Bob", map[string]any{"actualUsername": "bob"})
	postID := s.backend.SeedPost(bob.ID, "hello from bob")
	viewer := signUpAs(t, s)
	assert.Equal(t, "ada", viewer.Handle)

	w := s.do(t, http.MethodPost, "/posts", map[string]string{"content": "hello from ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[feed.View](t, w)
	require.Len(t, view.Posts, 2)
	assert.Equal(t, "hello from ada", view.Posts[0].Content)

	w = s.do(t, http.MethodPost, "/posts/"+postID.String()+"/like", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode[feed.View](t, w)
	assert.True(t, view.Posts[1].LikedByViewer)
	assert.Equal(t, 1, view.Posts[1].LikeCount)

	w = s.do(t, http.MethodPut, "/focus/"+postID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/posts/"+postID.String()+"/comments", map[string]string{"content": "nice one bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view = decode[feed.View](t, w)
	require.NotNil(t, view.Focused)
	require.Len(t, view.Focused.Comments, 1)
	assert.Equal(t, "ada", view.Focused.Comments[0].Author.Handle)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/posts", map[string]string{"content": "   "}).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/focus", nil).Code)

	w = s.do(t, http.MethodGet, "/feed?refresh=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[feed.View](t, w).Focused)
}

func testBadCredentials(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	w := s.do(t, http.MethodPost, "/auth/signin", map[string]string{"email": "ada@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/signin", map[string]string{"email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func testFocusNotFound(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	signUpAs(t, s)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/focus/"+persist.GenerateID().String(), nil).Code)
}

func testSuggestFailure(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	signUpAs(t, s)

	w := s.do(t, http.MethodPost, "/posts/quick", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 0, s.backend.Posts())

	view := decode[feed.View](t, s.do(t, http.MethodGet, "/feed", nil))
	assert.Contains(t, view.Message, "Error: ")
}

func testSignOut(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	signUpAs(t, s)

	w := s.do(t, http.MethodPost, "/auth/signout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/feed", nil).Code)
}

func testRequiresToken(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	signUpAs(t, s)

	s.token = ""
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/posts", map[string]string{"content": "hi"}).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/feed", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/signout", nil).Code)
	assert.Equal(t, 0, s.backend.Posts())

	s.token = persist.GenerateID().String()
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/feed", nil).Code)
}

func testSessionCookie(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	w := s.do(t, http.MethodPost, "/auth/signup", publicapi.SignUpInput{Email: "ada@example.com", Password: "pw", Username: "ada", DisplayName: "Ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, decode[sessionResponse](t, w).Token, cookie.Value)

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieKey, Value: cookie.Value})
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func testMalformedPostID(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	signUpAs(t, s)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/focus/missing", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/posts/missing/like", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/posts/missing/comments", map[string]string{"content": "hi"}).Code)
	assert.Equal(t, 0, s.backend.Calls(nhosttest.OpLikePost))
}

func testMe(t *testing.T) {
	s := newTestServer(t, ai.Unconfigured{})
	signUpAs(t, s)

	w := s.do(t, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada", decode[persist.Viewer](t, w).Handle)
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieKey {
			return cookie
		}
	}
	return nil
}
