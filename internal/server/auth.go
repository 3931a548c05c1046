package server

import (
	"net/http"
	"strings"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
)

// Authenticator resolves the caller identity for a request. The production
// deployment sits behind a session-terminating proxy, so the default
// implementation trusts a forwarded identity header.
type Authenticator interface {
	// Authenticate returns the caller's user id, or an error when the
	// request carries no usable identity.
	Authenticate(r *http.Request) (string, error)
}

// DefaultUserHeader is the identity header the proxy injects.
const DefaultUserHeader = "X-Attune-User"

// HeaderAuthenticator reads the caller identity from a request header.
type HeaderAuthenticator struct {
	header string
}

// NewHeaderAuthenticator builds a header authenticator. An empty header
// name falls back to DefaultUserHeader.
func NewHeaderAuthenticator(header string) *HeaderAuthenticator {
	if header == "" {
		header = DefaultUserHeader
	}
	return &HeaderAuthenticator{header: header}
}

func (a *HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	userID := strings.TrimSpace(r.Header.Get(a.header))
	if userID == "" {
		return "", attuneErrors.New(attuneErrors.CodeInvalidInput, "missing caller identity").
			WithSuggestion("Send the " + a.header + " header, or configure a different authenticator")
	}
	return userID, nil
}

// StaticAuthenticator always returns the same user id. Used by the CLI's
// single-user local mode.
type StaticAuthenticator struct {
	UserID string
}

func (a *StaticAuthenticator) Authenticate(*http.Request) (string, error) {
	return a.UserID, nil
}
