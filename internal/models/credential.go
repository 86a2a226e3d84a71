// Package models defines types shared across internal packages.
package models

import (
	"fmt"
	"net/url"
)

// Credential is an OAuth 1.0 token pair, either a mid-handshake request
// token (Verifier set once the callback has arrived) or a finalized
// access token (ScreenName and UserID populated from the token
// response). Access-token credentials are immutable: re-authorization
// replaces the stored credential wholesale.
type Credential struct {
	Key      string `json:"key"`
	Secret   string `json:"secret"`
	Verifier string `json:"verifier,omitempty"`

	ScreenName string `json:"screen_name,omitempty"`
	UserID     string `json:"user_id,omitempty"`
}

// ParseCredential builds a Credential from a form-encoded token
// response body (oauth/request_token and oauth/access_token both answer
// in this shape). oauth_token and oauth_token_secret are required;
// screen_name and user_id are present only on access-token responses.
func ParseCredential(body string) (Credential, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return Credential{}, fmt.Errorf("parsing token response: %w", err)
	}

	cred := Credential{
		Key:        values.Get("oauth_token"),
		Secret:     values.Get("oauth_token_secret"),
		ScreenName: values.Get("screen_name"),
		UserID:     values.Get("user_id"),
	}
	if cred.Key == "" || cred.Secret == "" {
		return Credential{}, fmt.Errorf("token response missing oauth_token or oauth_token_secret")
	}

	return cred, nil
}

// Zero reports whether the credential carries no token at all.
func (c Credential) Zero() bool {
	return c.Key == "" && c.Secret == ""
}

// Finalized reports whether the credential is a completed access token,
// safe to hand to the request signer. Request tokens still carrying a
// verifier are an intermediate handshake state and must never sign API
// requests.
func (c Credential) Finalized() bool {
	return c.Key != "" && c.Secret != "" && c.Verifier == ""
}
