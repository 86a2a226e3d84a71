package e2e_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliotropix/places-auth/internal/oauth"
	"github.com/heliotropix/places-auth/internal/routing"
	"github.com/heliotropix/places-auth/internal/state"
	"github.com/heliotropix/places-auth/internal/twitter"
)

const (
	consumerKey    = "e2e-consumer-key"
	consumerSecret = "e2e-consumer-secret"
	callbackScheme = "placestest"

	requestTokenKey    = "e2e-request-token"
	requestTokenSecret = "e2e-request-secret"
	accessTokenKey     = "e2e-access-token"
	accessTokenSecret  = "e2e-access-secret"
	verifier           = "e2e-verifier"
	bearerToken        = "e2e-bearer-token"
)

// harness holds the full e2e stack: a fake provider backed by httptest,
// a bbolt store in a temp directory, and the wired client components.
type harness struct {
	Provider   *provider
	Store      *state.State
	Router     *routing.Router
	Authorizer *twitter.Authorizer
	Client     *twitter.Client
	Bearer     *twitter.BearerSource
}

// provider is a fake OAuth provider and API. It hands out fixed tokens
// and records how often each endpoint was hit.
type provider struct {
	URL string

	mu            sync.Mutex
	requestTokens int
	accessTokens  int
	bearerTokens  int
	apiCalls      int

	// apiHandler serves API requests once auth headers check out.
	apiHandler http.HandlerFunc
}

func (p *provider) counts() (requestTokens, accessTokens, bearerTokens, apiCalls int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.requestTokens, p.accessTokens, p.bearerTokens, p.apiCalls
}

func newProvider(t *testing.T) *provider {
	t.Helper()

	p := &provider{}

	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/request_token", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requestTokens++
		p.mu.Unlock()

		header := r.Header.Get("Authorization")
		assert.Contains(t, header, `oauth_consumer_key="`+consumerKey+`"`)
		assert.Contains(t, header, "oauth_callback=")
		assert.NotContains(t, header, "oauth_token=")

		fmt.Fprintf(w, "oauth_token=%s&oauth_token_secret=%s&oauth_callback_confirmed=true",
			requestTokenKey, requestTokenSecret)
	})

	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.accessTokens++
		p.mu.Unlock()

		header := r.Header.Get("Authorization")
		assert.Contains(t, header, `oauth_token="`+requestTokenKey+`"`)
		assert.Contains(t, header, `oauth_verifier="`+verifier+`"`)

		fmt.Fprintf(w, "oauth_token=%s&oauth_token_secret=%s&screen_name=e2euser&user_id=42",
			accessTokenKey, accessTokenSecret)
	})

	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.bearerTokens++
		p.mu.Unlock()

		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("Authorization"))

		fmt.Fprintf(w, `{"token_type":"bearer","access_token":"%s"}`, bearerToken)
	})

	mux.HandleFunc("/1.1/", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.apiCalls++
		handler := p.apiHandler
		p.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}

		fmt.Fprint(w, `{"result":{"places":[]}}`)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	p.URL = ts.URL

	return p
}

func (p *provider) setAPIHandler(h http.HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.apiHandler = h
}

// newHarness wires the full stack against a fresh fake provider and a
// bbolt store in a temp directory, the way main assembles it.
func newHarness(t *testing.T) *harness {
	t.Helper()

	p := newProvider(t)

	store, err := state.LoadAt(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	endpoints := twitter.Endpoints{
		RequestTokenURL: p.URL + "/oauth/request_token",
		AuthorizeURL:    p.URL + "/oauth/authorize",
		AccessTokenURL:  p.URL + "/oauth/access_token",
		BearerTokenURL:  p.URL + "/oauth2/token",
		APIBaseURL:      p.URL + "/1.1",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	signer := oauth.NewSigner(consumerKey, consumerSecret)
	bearer := twitter.NewBearerSource(nil, consumerKey, consumerSecret, endpoints.BearerTokenURL, store, logger)

	router := routing.NewRouter(callbackScheme)
	authorizer := twitter.NewAuthorizer(nil, signer, endpoints, store, logger)
	authorizer.Register(router)

	return &harness{
		Provider:   p,
		Store:      store,
		Router:     router,
		Authorizer: authorizer,
		Client:     twitter.NewClient(nil, signer, endpoints, store, bearer, logger),
		Bearer:     bearer,
	}
}

// testContext returns a context canceled when the test ends, standing
// in for testContext(t) which requires Go 1.24.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// login runs the full handshake against the fake provider, simulating
// the browser redirect by routing the callback URL.
func (h *harness) login(t *testing.T) {
	t.Helper()

	handshake, err := h.Authorizer.Authorize(testContext(t), twitter.CallbackURL(callbackScheme), false)
	require.NoError(t, err)
	require.Contains(t, handshake.AuthorizeURL, "oauth_token="+requestTokenKey)

	callback := twitter.CallbackURL(callbackScheme) + "?oauth_verifier=" + url.QueryEscape(verifier)
	require.True(t, h.Router.Route(callback))

	result := <-handshake.Done
	require.NoError(t, result.Err)
	require.Equal(t, accessTokenKey, result.Credential.Key)
}

// oauthHeaderParam extracts one oauth_* parameter from an Authorization
// header.
func oauthHeaderParam(header, name string) string {
	for _, part := range strings.Split(strings.TrimPrefix(header, "OAuth "), ", ") {
		key, value, found := strings.Cut(part, "=")
		if found && key == name {
			return strings.Trim(value, `"`)
		}
	}

	return ""
}
