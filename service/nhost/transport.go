package nhost

import (
	"context"
	"io"
	"net/http"
)

type tokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// bearerTransport adds the session's access token to every request. A 401 triggers one
// refresh and a single retry when the request body can be replayed.
type bearerTransport struct {
	base http.RoundTripper
	auth tokenSource
}

func (t bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.auth.Token(req.Context())
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	if token == "" {
		return t.base.RoundTrip(req)
	}

	resp, err := t.base.RoundTrip(withToken(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	if refreshErr := t.auth.Refresh(req.Context()); refreshErr != nil {
		return resp, nil
	}
	token, err = t.auth.Token(req.Context())
	if err != nil {
		return resp, nil
	}

	retry := withToken(req, token)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return t.base.RoundTrip(retry)
}

func withToken(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// NewAuthedHTTPClient returns an http.Client whose requests carry auth's current access token
func NewAuthedHTTPClient(auth *AuthClient, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: bearerTransport{base: base, auth: auth}}
}
