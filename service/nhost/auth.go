package nhost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rapidos-social/go-rapidos/service/persist"
	"golang.org/x/sync/singleflight"
)

// refreshMargin is how long before expiry an access token is replaced
const refreshMargin = time.Minute

var ErrNoSession = errors.New("no session to refresh")

// AuthUser is the account as returned by the auth service
type AuthUser struct {
	ID          persist.DBID   `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"displayName"`
	AvatarURL   string         `json:"avatarUrl"`
	Metadata    map[string]any `json:"metadata"`
}

type Session struct {
	AccessToken          string   `json:"accessToken"`
	AccessTokenExpiresIn int      `json:"accessTokenExpiresIn"`
	RefreshToken         string   `json:"refreshToken"`
	User                 AuthUser `json:"user"`
}

type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	Metadata    map[string]any
}

// ErrAuth is an error reported by the auth service
type ErrAuth struct {
	Status  int    `json:"status"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e ErrAuth) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// ErrVerificationRequired is returned from sign up when the account exists but cannot be used
// until its email address is verified
type ErrVerificationRequired struct {
	Email string
}

func (e ErrVerificationRequired) Error() string {
	return fmt.Sprintf("check %s to verify your account before signing in", e.Email)
}

// AuthClient is a client of the backend's email/password auth service. It holds at most one
// session at a time and refreshes its access token shortly before it expires.
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	refreshes  singleflight.Group

	mu        sync.RWMutex
	session   *Session
	expiresAt time.Time
}

func NewAuthClient(baseURL string, httpClient *http.Client) *AuthClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AuthClient{baseURL: baseURL, httpClient: httpClient, now: time.Now}
}

func (c *AuthClient) SignIn(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp struct {
		Session *Session `json:"session"`
	}
	if err := c.post(ctx, "/signin/email-password", body, &resp); err != nil {
		return Session{}, err
	}
	if resp.Session == nil {
		return Session{}, ErrAuth{Status: http.StatusUnauthorized, Message: "sign in did not return a session"}
	}

	c.setSession(resp.Session)
	return *resp.Session, nil
}

func (c *AuthClient) SignUp(ctx context.Context, input SignUpInput) (Session, error) {
	body := map[string]any{
		"email":    input.Email,
		"password": input.Password,
		"options": map[string]any{
			"displayName": input.DisplayName,
			"metadata":    input.Metadata,
		},
	}

	var resp struct {
		Session *Session `json:"session"`
	}
	if err := c.post(ctx, "/signup/email-password", body, &resp); err != nil {
		return Session{}, err
	}
	if resp.Session == nil {
		return Session{}, ErrVerificationRequired{Email: input.Email}
	}

	c.setSession(resp.Session)
	return *resp.Session, nil
}

// SignOut ends the current session. A failed request keeps the session, except when the
// service rejects the token as unauthorized, since then it is already gone server side.
func (c *AuthClient) SignOut(ctx context.Context) error {
	session, ok := c.Session()
	if !ok {
		return nil
	}

	token, err := c.Token(ctx)
	if err != nil {
		token = session.AccessToken
	}
	err = c.postWithToken(ctx, "/signout", token, map[string]string{"refreshToken": c.refreshToken()}, nil)

	var authErr ErrAuth
	if err != nil && !(errors.As(err, &authErr) && authErr.Status == http.StatusUnauthorized) {
		return err
	}

	c.setSession(nil)
	return nil
}

// Token returns an access token for the current session, refreshing it first when it expires
// within refreshMargin. It returns "" without a session.
func (c *AuthClient) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	session, expiresAt := c.session, c.expiresAt
	c.mu.RUnlock()

	if session == nil {
		return "", nil
	}
	if expiresAt.IsZero() || c.now().Add(refreshMargin).Before(expiresAt) {
		return session.AccessToken, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return "", err
	}
	return c.AccessToken(), nil
}

// Refresh trades the refresh token for a new access token. Concurrent callers share one request.
func (c *AuthClient) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshes.Do("refresh", func() (any, error) {
		c.mu.RLock()
		current := c.session
		c.mu.RUnlock()
		if current == nil {
			return nil, ErrNoSession
		}

		var fresh Session
		if err := c.postWithToken(ctx, "/token", "", map[string]string{"refreshToken": current.RefreshToken}, &fresh); err != nil {
			return nil, fmt.Errorf("refreshing session: %w", err)
		}
		if fresh.User.ID == "" {
			fresh.User = current.User
		}
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = current.RefreshToken
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		// a sign out or new sign in while refreshing wins
		if c.session == current {
			c.setSessionLocked(&fresh)
		}
		return nil, nil
	})
	return err
}

// Session returns the current session, if any
func (c *AuthClient) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *AuthClient) AccessToken() string {
	s, _ := c.Session()
	return s.AccessToken
}

func (c *AuthClient) refreshToken() string {
	s, _ := c.Session()
	return s.RefreshToken
}

func (c *AuthClient) setSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSessionLocked(s)
}

func (c *AuthClient) setSessionLocked(s *Session) {
	c.session = s
	c.expiresAt = time.Time{}
	if s != nil && s.AccessTokenExpiresIn > 0 {
		c.expiresAt = c.now().Add(time.Duration(s.AccessTokenExpiresIn) * time.Second)
	}
}

func (c *AuthClient) post(ctx context.Context, path string, body any, out any) error {
	return c.postWithToken(ctx, path, c.AccessToken(), body, out)
}

func (c *AuthClient) postWithToken(ctx context.Context, path, token string, body any, out any) error {
	bs, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bs))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		authErr := ErrAuth{}
		json.NewDecoder(resp.Body).Decode(&authErr)
		authErr.Status = resp.StatusCode
		if authErr.Message == "" {
			authErr.Message = http.StatusText(resp.StatusCode)
		}
		return authErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
