package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/heliotropix/places-auth/internal/models"
	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name records are filed under:
	// Keychain on macOS, Credential Manager on Windows, Secret Service
	// on Linux.
	keyringService = "places-auth"

	keyringCredentialAccount = "twitter_credential"
	keyringBearerAccount     = "twitter_bearer_token"
)

// Keyring stores authorization state in the operating system keyring
// instead of an on-disk database.
type Keyring struct {
	service string
}

// NewKeyring creates a keyring-backed store.
func NewKeyring() *Keyring {
	return &Keyring{service: keyringService}
}

// Available reports whether the system keyring can be used. A read of a
// nonexistent record distinguishes "keyring works" from "no keyring
// daemon at all".
func (k *Keyring) Available() bool {
	_, err := keyring.Get(k.service, "__probe__")

	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// Credential returns the stored access-token credential. ok is false
// when no credential has been stored.
func (k *Keyring) Credential() (models.Credential, bool, error) {
	secret, err := keyring.Get(k.service, keyringCredentialAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return models.Credential{}, false, nil
	}
	if err != nil {
		return models.Credential{}, false, fmt.Errorf("reading credential from keyring: %w", err)
	}

	var cred models.Credential
	if err := json.Unmarshal([]byte(secret), &cred); err != nil {
		return models.Credential{}, false, fmt.Errorf("decoding credential from keyring: %w", err)
	}

	return cred, true, nil
}

// SetCredential replaces the stored credential wholesale.
func (k *Keyring) SetCredential(cred models.Credential) error {
	v, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	if err := keyring.Set(k.service, keyringCredentialAccount, string(v)); err != nil {
		return fmt.Errorf("writing credential to keyring: %w", err)
	}

	return nil
}

// DeleteCredential removes the stored credential.
func (k *Keyring) DeleteCredential() error {
	err := keyring.Delete(k.service, keyringCredentialAccount)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting credential from keyring: %w", err)
	}

	return nil
}

// BearerToken returns the cached bearer token, or empty string.
func (k *Keyring) BearerToken() (string, error) {
	token, err := keyring.Get(k.service, keyringBearerAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading bearer token from keyring: %w", err)
	}

	return token, nil
}

// SetBearerToken replaces the cached bearer token wholesale.
func (k *Keyring) SetBearerToken(token string) error {
	if err := keyring.Set(k.service, keyringBearerAccount, token); err != nil {
		return fmt.Errorf("writing bearer token to keyring: %w", err)
	}

	return nil
}
