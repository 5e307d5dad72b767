package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionCookieKey holds the session token for browser clients
const SessionCookieKey = "rapidos_session"

// SessionTokens holds the token issued to whoever signed the server in. The server keeps a
// single backend session, so issuing a new token invalidates the previous one.
type SessionTokens struct {
	mu    sync.Mutex
	token string
}

func NewSessionTokens() *SessionTokens {
	return &SessionTokens{}
}

// Issue mints a fresh token, replacing any earlier one
func (s *SessionTokens) Issue() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token
}

func (s *SessionTokens) Revoke() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Valid reports whether token is the one currently issued
func (s *SessionTokens) Valid(token string) bool {
	s.mu.Lock()
	current := s.token
	s.mu.Unlock()
	if current == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(token)) == 1
}

// SetSessionCookie hands token to the client as an http-only cookie. An empty token clears it.
func SetSessionCookie(c *gin.Context, token string) {
	maxAge := 0
	if token == "" {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieKey,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// sessionToken reads the bearer token, falling back to the session cookie
func sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	// an empty cookie is how the cookie gets deleted, so treat it as missing
	token, err := c.Cookie(SessionCookieKey)
	if err != nil {
		return ""
	}
	return token
}
