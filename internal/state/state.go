// Package state persists authorization state so a restart recovers
// prior authorization without re-running the handshake. The primary
// backend is a bbolt database; a system-keyring backend is available
// for hosts where an on-disk token file is unwanted.
package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/heliotropix/places-auth/internal/models"
	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.places-auth/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

// Fixed record names, documented so other tooling can locate them.
var (
	authBucket     = []byte("auth")
	credentialKey  = []byte("twitter_credential")
	bearerTokenKey = []byte("twitter_bearer_token")
)

// State wraps a bbolt database for all persistent authorization state.
type State struct {
	db *bolt.DB
}

// Load opens the state database at ~/.places-auth/state.db, creating it
// if it does not exist.
func Load() (*State, error) {
	return LoadAt(dbPath())
}

// LoadAt opens a state database at the given path, creating it if it
// does not exist. Useful for tests that need an isolated database.
func LoadAt(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(authBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// Credential returns the persisted access-token credential. ok is false
// when no credential has been stored.
func (s *State) Credential() (models.Credential, bool, error) {
	var (
		cred models.Credential
		ok   bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(authBucket).Get(credentialKey)
		if v == nil {
			return nil
		}

		ok = true

		return json.Unmarshal(v, &cred)
	})
	if err != nil {
		return models.Credential{}, false, fmt.Errorf("reading credential: %w", err)
	}

	return cred, ok, nil
}

// SetCredential replaces the persisted credential wholesale.
func (s *State) SetCredential(cred models.Credential) error {
	v, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Put(credentialKey, v)
	})
	if err != nil {
		return fmt.Errorf("writing credential: %w", err)
	}

	return nil
}

// DeleteCredential removes the persisted credential.
func (s *State) DeleteCredential() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Delete(credentialKey)
	})
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}

	return nil
}

// BearerToken returns the cached app-only bearer token, or empty string.
func (s *State) BearerToken() (string, error) {
	var token string

	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(authBucket).Get(bearerTokenKey); v != nil {
			token = string(v)
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reading bearer token: %w", err)
	}

	return token, nil
}

// SetBearerToken replaces the cached bearer token wholesale.
func (s *State) SetBearerToken(token string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Put(bearerTokenKey, []byte(token))
	})
	if err != nil {
		return fmt.Errorf("writing bearer token: %w", err)
	}

	return nil
}

func dbPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return filepath.Join(home, ".places-auth", "state.db")
}
