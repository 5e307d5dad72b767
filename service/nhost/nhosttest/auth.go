package nhosttest

import (
	"context"
	"net/http"
	"sync"

	"github.com/rapidos-social/go-rapidos/service/nhost"
	"github.com/rapidos-social/go-rapidos/service/persist"
)

type account struct {
	password string
	user     nhost.AuthUser
}

// Auth is an in-memory email/password auth service whose accounts are visible to a Backend
type Auth struct {
	backend *Backend

	mu       sync.Mutex
	accounts map[string]account
	session  *nhost.Session
}

func NewAuth(backend *Backend) *Auth {
	return &Auth{backend: backend, accounts: make(map[string]account)}
}

// Register creates an account without signing in
func (a *Auth) Register(email, password, displayName string, metadata map[string]any) nhost.AuthUser {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registerLocked(email, password, displayName, metadata)
}

func (a *Auth) registerLocked(email, password, displayName string, metadata map[string]any) nhost.AuthUser {
	u := nhost.AuthUser{
		ID:          persist.GenerateID(),
		Email:       email,
		DisplayName: displayName,
		Metadata:    metadata,
	}
	a.accounts[email] = account{password: password, user: u}
	a.backend.AddUser(u)
	return u
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (nhost.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.accounts[email]
	if !ok || acct.password != password {
		return nhost.Session{}, nhost.ErrAuth{Status: http.StatusUnauthorized, Code: "invalid-email-password", Message: "Incorrect email or password"}
	}
	return a.startLocked(acct.user), nil
}

func (a *Auth) SignUp(ctx context.Context, input nhost.SignUpInput) (nhost.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.accounts[input.Email]; ok {
		return nhost.Session{}, nhost.ErrAuth{Status: http.StatusConflict, Code: "email-already-in-use", Message: "Email already in use"}
	}
	u := a.registerLocked(input.Email, input.Password, input.DisplayName, input.Metadata)
	return a.startLocked(u), nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = nil
	return nil
}

func (a *Auth) Session() (nhost.Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nhost.Session{}, false
	}
	return *a.session, true
}

func (a *Auth) startLocked(u nhost.AuthUser) nhost.Session {
	a.session = &nhost.Session{
		AccessToken:  "access-" + u.ID.String(),
		RefreshToken: "refresh-" + u.ID.String(),
		User:         u,
	}
	return *a.session
}
