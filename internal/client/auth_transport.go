package client

import (
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// authTransport attaches the stored bearer token to every outbound request.
// The token is read per request so a login or logout earlier in the process
// is picked up immediately.
type authTransport struct {
	tokens TokenSource
	next   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	req = req.Clone(req.Context())

	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", uuid.NewString())
	}

	if t.tokens != nil {
		if token := t.tokens.Token(); token != "" {
			(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
		}
	}

	return t.next.RoundTrip(req)
}
