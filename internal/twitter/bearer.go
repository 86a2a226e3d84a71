package twitter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/heliotropix/places-auth/internal/oauth"
	"golang.org/x/sync/singleflight"
)

// BearerSource manages the app-only (OAuth2 client-credentials) bearer
// token. The token carries no expiry; invalidity is detected reactively
// by the executor, which calls Refresh. Concurrent refreshes are
// collapsed into a single token request.
type BearerSource struct {
	httpClient *http.Client
	basicAuth  string
	tokenURL   string
	store      Store
	logger     *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	cached string
}

// NewBearerSource creates a bearer token source. If httpClient is nil a
// client with a 30-second timeout is used.
func NewBearerSource(httpClient *http.Client, consumerKey, consumerSecret, tokenURL string, store Store, logger *slog.Logger) *BearerSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpClientTimeout}
	}

	// RFC 6749 2.3.1: credentials are form-encoded before the Base64
	// derivation.
	basic := oauth.PercentEncode(consumerKey) + ":" + oauth.PercentEncode(consumerSecret)

	return &BearerSource{
		httpClient: httpClient,
		basicAuth:  base64.StdEncoding.EncodeToString([]byte(basic)),
		tokenURL:   tokenURL,
		store:      store,
		logger:     logger,
	}
}

// Token returns the current bearer token, preferring the in-memory
// cache, then the store, then a fresh acquisition.
func (b *BearerSource) Token(ctx context.Context) (string, error) {
	b.mu.Lock()
	cached := b.cached
	b.mu.Unlock()

	if cached != "" {
		return cached, nil
	}

	stored, err := b.store.BearerToken()
	if err != nil {
		return "", err
	}
	if stored != "" {
		b.mu.Lock()
		b.cached = stored
		b.mu.Unlock()

		return stored, nil
	}

	return b.Refresh(ctx)
}

// Refresh acquires a new bearer token, replacing the cached and
// persisted values wholesale. Concurrent callers share one request.
func (b *BearerSource) Refresh(ctx context.Context) (string, error) {
	token, err, _ := b.group.Do("bearer", func() (any, error) {
		token, err := b.fetch(ctx)
		if err != nil {
			return "", err
		}

		// Persist before caching: a token the store never accepted must
		// not be served from memory after Refresh reports failure.
		if err := b.store.SetBearerToken(token); err != nil {
			return "", err
		}

		b.mu.Lock()
		b.cached = token
		b.mu.Unlock()

		b.logger.Debug("bearer token refreshed")

		return token, nil
	})
	if err != nil {
		return "", fmt.Errorf("refreshing bearer token: %w", err)
	}

	return token.(string), nil
}

type bearerTokenResponse struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
}

// fetch performs POST oauth2/token with the Basic-authenticated
// client-credentials grant.
func (b *BearerSource) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.tokenURL, strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("Authorization", "Basic "+b.basicAuth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("sending token request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	var tr bearerTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: %s", ErrDecode, sanitizeResponseBody(body))
	}
	if tr.AccessToken == "" || !strings.EqualFold(tr.TokenType, "bearer") {
		return "", fmt.Errorf("%w: token response missing bearer access_token", ErrDecode)
	}

	return tr.AccessToken, nil
}

// Invalidate drops the in-memory cache, forcing the next Token call
// back to the store. Exists for tests and explicit logout.
func (b *BearerSource) Invalidate() {
	b.mu.Lock()
	b.cached = ""
	b.mu.Unlock()
}
