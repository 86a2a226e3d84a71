package twitter

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/heliotropix/places-auth/internal/models"
	"github.com/heliotropix/places-auth/internal/oauth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSigner() *oauth.Signer {
	return oauth.NewSigner("consumer-key", "consumer-secret")
}

// memStore is an in-memory Store for flow tests. The gomock MockStore
// is used where call counts matter.
type memStore struct {
	mu      sync.Mutex
	cred    models.Credential
	hasCred bool
	bearer  string
}

func (s *memStore) Credential() (models.Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cred, s.hasCred, nil
}

func (s *memStore) SetCredential(cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = cred
	s.hasCred = true

	return nil
}

func (s *memStore) DeleteCredential() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = models.Credential{}
	s.hasCred = false

	return nil
}

func (s *memStore) BearerToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bearer, nil
}

func (s *memStore) SetBearerToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bearer = token

	return nil
}

func testEndpoints(t *testing.T, baseURL string) Endpoints {
	t.Helper()

	return Endpoints{
		RequestTokenURL: baseURL + "/oauth/request_token",
		AuthorizeURL:    baseURL + "/oauth/authorize",
		AccessTokenURL:  baseURL + "/oauth/access_token",
		BearerTokenURL:  baseURL + "/oauth2/token",
		APIBaseURL:      baseURL + "/1.1",
	}
}
