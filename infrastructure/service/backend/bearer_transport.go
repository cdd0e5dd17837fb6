// Package backend talks to the REST backend: the login endpoints and every
// other call made on behalf of the current session.
package backend

import (
	"context"
	"errors"
	"net/http"

	apperr "github.com/rankboard/portalgate/domain/error"
)

// TokenSource resolves the current access token. *usecase.SessionStore
// satisfies it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// BearerTransport attaches "Authorization: Bearer <token>" to every request,
// asking Tokens for the token each time so a logout or a new login is picked
// up by the very next request. Without a readable session the request goes
// out unauthenticated; only storage failures abort it.
type BearerTransport struct {
	Base   http.RoundTripper
	Tokens TokenSource
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Tokens.AccessToken(req.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrPersistenceFailure("", nil)) {
			return nil, err
		}
		token = ""
	}

	out := req.Clone(req.Context())
	out.Header.Del("Authorization")
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base().RoundTrip(out)
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewHTTPClient returns a client whose requests carry the session token.
func NewHTTPClient(tokens TokenSource, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &BearerTransport{Base: base, Tokens: tokens}}
}
