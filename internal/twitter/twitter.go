// Package twitter implements the authenticated request pipeline for the
// Twitter API: the three-legged OAuth 1.0a handshake, app-only bearer
// token lifecycle, and the request executor that signs calls and
// recovers from expired tokens.
package twitter

import (
	"errors"
	"fmt"

	"github.com/heliotropix/places-auth/internal/models"
)

// Store persists the access-token credential and the cached bearer
// token. Only this package writes to it; implementations must be safe
// for concurrent use.
type Store interface {
	Credential() (models.Credential, bool, error)
	SetCredential(models.Credential) error
	DeleteCredential() error
	BearerToken() (string, error)
	SetBearerToken(token string) error
}

// Endpoints holds the provider URLs. The zero value is unusable; start
// from DefaultEndpoints and override for staging or test servers.
type Endpoints struct {
	RequestTokenURL string `yaml:"request_token_url"`
	AuthorizeURL    string `yaml:"authorize_url"`
	AccessTokenURL  string `yaml:"access_token_url"`
	BearerTokenURL  string `yaml:"bearer_token_url"`
	APIBaseURL      string `yaml:"api_base_url"`
}

// DefaultEndpoints returns the production Twitter API endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		RequestTokenURL: "https://api.twitter.com/oauth/request_token",
		AuthorizeURL:    "https://api.twitter.com/oauth/authorize",
		AccessTokenURL:  "https://api.twitter.com/oauth/access_token",
		BearerTokenURL:  "https://api.twitter.com/oauth2/token",
		APIBaseURL:      "https://api.twitter.com/1.1",
	}
}

// invalidTokenCode is the application-level error code Twitter embeds
// in a response body for an invalid or expired token. It can arrive in
// an HTTP 200 body, so the executor checks for it explicitly rather
// than trusting the status line.
const invalidTokenCode = 89

// Handshake lifecycle errors.
var (
	// ErrAuthorizeBusy is returned when Authorize is called while a
	// handshake is already in flight. At most one handshake exists per
	// Authorizer.
	ErrAuthorizeBusy = errors.New("an authorization handshake is already in flight")

	// ErrMissingVerifier means the callback URL arrived without an
	// oauth_verifier, so the access-token exchange cannot proceed.
	ErrMissingVerifier = errors.New("callback URL carries no oauth_verifier")

	// ErrHandshakeCanceled reports that Cancel discarded the pending
	// handshake.
	ErrHandshakeCanceled = errors.New("authorization handshake canceled")

	// ErrHandshakeTimeout reports that the user never completed the
	// browser authorization within the configured window.
	ErrHandshakeTimeout = errors.New("authorization handshake timed out")

	// ErrNotAuthorized is returned when a user-context request is made
	// with no finalized access-token credential in the store.
	ErrNotAuthorized = errors.New("no access-token credential; run the authorization handshake first")
)

// ErrDecode marks response bodies that do not parse as the expected
// JSON or form-encoded shape.
var ErrDecode = errors.New("undecodable response body")

// TransportError wraps a network-level failure (unreachable host,
// timeout). The pipeline never retries these; callers apply their own
// policy.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err (or any error in its chain) is a
// TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusError reports an HTTP status outside the acceptable range for
// the request.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// ServerError is an application-level error object carried in an
// otherwise well-formed response body.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}
