package publicapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rapidos-social/go-rapidos/feed"
	"github.com/rapidos-social/go-rapidos/feedbot"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/nhost"
	"github.com/rapidos-social/go-rapidos/service/persist"
)

const signUpFieldsRequired = "App Username and Name are required for sign up."

type SignUpInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type AuthAPI struct {
	provider  AuthProvider
	sync      *feed.Synchronizer
	bots      *feedbot.Scheduler
	validator *validator.Validate
}

func (api AuthAPI) SignIn(ctx context.Context, email, password string) (persist.Viewer, error) {
	if err := validateFields(api.validator, validationMap{
		"email":    {email, "required,email"},
		"password": {password, "required"},
	}); err != nil {
		api.sync.SetMessage(err.Error())
		return persist.Viewer{}, err
	}

	api.sync.SetMessage("")
	session, err := api.provider.SignIn(ctx, email, password)
	if err != nil {
		return persist.Viewer{}, api.authFailed(ctx, err, "Authentication failed.")
	}

	return api.startSession(ctx, session.User), nil
}

// SignUp creates an account with the chosen handle and display name and signs it in
func (api AuthAPI) SignUp(ctx context.Context, input SignUpInput) (persist.Viewer, error) {
	username := strings.TrimSpace(input.Username)
	displayName := strings.TrimSpace(input.DisplayName)
	if username == "" || displayName == "" {
		api.sync.SetMessage(signUpFieldsRequired)
		return persist.Viewer{}, ErrInvalidInput{Parameters: []string{"username", "displayName"}, Reasons: []string{"required", "required"}}
	}
	if err := validateFields(api.validator, validationMap{
		"email":    {input.Email, "required,email"},
		"password": {input.Password, "required"},
	}); err != nil {
		api.sync.SetMessage(err.Error())
		return persist.Viewer{}, err
	}

	api.sync.SetMessage("")
	session, err := api.provider.SignUp(ctx, nhost.SignUpInput{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: displayName,
		Metadata: map[string]any{
			"actualUsername": username,
			"avatarUrl":      fmt.Sprintf("https://picsum.photos/seed/%s/200/200", username),
			"isBot":          false,
		},
	})
	if err != nil {
		return persist.Viewer{}, api.authFailed(ctx, err, "Authentication failed.")
	}

	return api.startSession(ctx, session.User), nil
}

// SignOut ends the session. On failure the session is kept and the failure becomes the message.
func (api AuthAPI) SignOut(ctx context.Context) error {
	if err := api.provider.SignOut(ctx); err != nil {
		return api.authFailed(ctx, err, "Logout failed.")
	}

	api.bots.Reset()
	api.sync.SetViewer(nil)
	return nil
}

// Resume picks up a session the provider already holds
func (api AuthAPI) Resume(ctx context.Context) (persist.Viewer, bool) {
	session, ok := api.provider.Session()
	if !ok {
		return persist.Viewer{}, false
	}
	return api.startSession(ctx, session.User), true
}

func (api AuthAPI) Viewer() (persist.Viewer, bool) {
	return api.sync.Viewer()
}

func (api AuthAPI) startSession(ctx context.Context, u nhost.AuthUser) persist.Viewer {
	viewer := feed.MapViewer(u)
	api.bots.Reset()
	api.sync.SetViewer(&viewer)

	// a failed first load is already the visible message; the session itself is fine
	if err := api.sync.Load(ctx); err != nil {
		logger.For(ctx).Warnf("first feed load for @%s failed: %s", viewer.Handle, err)
	}
	return viewer
}

func (api AuthAPI) authFailed(ctx context.Context, err error, fallback string) error {
	logger.For(ctx).Errorf("authentication error: %s", err)
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	api.sync.SetMessage(msg)
	return err
}
