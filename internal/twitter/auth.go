package twitter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/heliotropix/places-auth/internal/models"
	"github.com/heliotropix/places-auth/internal/oauth"
	"github.com/heliotropix/places-auth/internal/routing"
)

// authorizeSuccessOp is the operation name the callback URL must carry:
// <scheme>://twitterservice/AuthorizeSuccess?oauth_verifier=...
const authorizeSuccessOp = "AuthorizeSuccess"

// RouteName is the handler name the Authorizer claims on the callback
// router.
const RouteName = "twitterservice"

// CallbackURL builds the custom-scheme URL the provider redirects to
// when the user approves access.
func CallbackURL(scheme string) string {
	return scheme + "://" + RouteName + "/" + authorizeSuccessOp
}

// Result is the outcome of a handshake, delivered exactly once on
// Handshake.Done.
type Result struct {
	Credential models.Credential
	Err        error
}

// Handshake is an in-flight three-legged authorization. The caller
// opens AuthorizeURL in the user's browser surface and waits on Done;
// the Authorizer resolves Done when the callback URL arrives (or the
// handshake is canceled or times out).
type Handshake struct {
	AuthorizeURL string
	Done         <-chan Result

	requestToken models.Credential
	done         chan Result
	timer        *time.Timer
}

// Authorizer drives the three-legged OAuth 1.0a handshake:
//
//	Idle -> request token -> user authorization in browser -> access token -> credential persisted
//
// At most one handshake is in flight at a time; a second Authorize call
// while one is pending fails with ErrAuthorizeBusy rather than silently
// abandoning the first.
type Authorizer struct {
	httpClient *http.Client
	signer     *oauth.Signer
	endpoints  Endpoints
	store      Store
	logger     *slog.Logger

	// Timeout bounds how long a handshake may wait for the callback.
	// Zero means wait forever.
	Timeout time.Duration

	mu      sync.Mutex
	pending *Handshake
}

// NewAuthorizer creates an Authorizer. If httpClient is nil a client
// with a 30-second timeout is used.
func NewAuthorizer(httpClient *http.Client, signer *oauth.Signer, endpoints Endpoints, store Store, logger *slog.Logger) *Authorizer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpClientTimeout}
	}

	return &Authorizer{
		httpClient: httpClient,
		signer:     signer,
		endpoints:  endpoints,
		store:      store,
		logger:     logger,
	}
}

// Register claims the Authorizer's handler name on the router. The host
// forwards inbound custom-scheme URLs to router.Route; URLs addressed
// to twitterservice land in HandleCallback.
func (a *Authorizer) Register(router *routing.Router) {
	router.Add(RouteName, a.HandleCallback)
}

// Authorize starts a handshake: it obtains a request token, records the
// pending exchange, and returns the URL the user must visit. callbackURL
// is the custom-scheme URL the provider redirects back to; forceLogin
// makes the provider re-prompt for account credentials.
func (a *Authorizer) Authorize(ctx context.Context, callbackURL string, forceLogin bool) (*Handshake, error) {
	a.mu.Lock()
	if a.pending != nil {
		a.mu.Unlock()
		return nil, ErrAuthorizeBusy
	}
	// Reserve the slot before the network call so concurrent Authorize
	// calls cannot both pass the busy check.
	placeholder := &Handshake{}
	a.pending = placeholder
	a.mu.Unlock()

	requestToken, err := a.obtainRequestToken(ctx, callbackURL)
	if err != nil {
		a.mu.Lock()
		a.pending = nil
		a.mu.Unlock()

		return nil, fmt.Errorf("obtaining request token: %w", err)
	}

	authorizeURL := a.endpoints.AuthorizeURL + "?oauth_token=" + url.QueryEscape(requestToken.Key)
	if forceLogin {
		authorizeURL += "&force_login=true"
	}

	done := make(chan Result, 1)
	h := &Handshake{
		AuthorizeURL: authorizeURL,
		Done:         done,
		requestToken: requestToken,
		done:         done,
	}

	a.mu.Lock()
	if a.pending != placeholder {
		// Cancel ran while the request token was being obtained.
		a.mu.Unlock()
		return nil, ErrHandshakeCanceled
	}
	a.pending = h
	a.mu.Unlock()

	if a.Timeout > 0 {
		h.timer = time.AfterFunc(a.Timeout, func() {
			a.abandon(h, ErrHandshakeTimeout)
		})
	}

	a.logger.Info("authorization handshake started")

	return h, nil
}

// Cancel discards the pending handshake, if any, resolving its Done
// channel with ErrHandshakeCanceled.
func (a *Authorizer) Cancel() {
	a.mu.Lock()
	h := a.pending
	a.mu.Unlock()

	if h != nil {
		a.abandon(h, ErrHandshakeCanceled)
	}
}

// HandleCallback is the routing.Handler that completes the handshake.
// It consumes URLs whose operation is AuthorizeSuccess while a
// handshake is pending; everything else is declined so the router can
// report an unconsumed URL.
func (a *Authorizer) HandleCallback(_ *url.URL, operation string, params map[string]string) bool {
	if operation != authorizeSuccessOp {
		return false
	}

	a.mu.Lock()
	h := a.pending
	if h == nil || h.done == nil {
		a.mu.Unlock()
		return false
	}
	a.pending = nil
	a.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}

	verifier, ok := params["oauth_verifier"]
	if !ok || verifier == "" {
		h.done <- Result{Err: ErrMissingVerifier}
		return true
	}

	// The exchange is a network call; resolve the handshake off the
	// router's goroutine.
	go a.exchange(h, verifier)

	return true
}

// Authorized reports whether a finalized credential is stored.
func (a *Authorizer) Authorized() (bool, error) {
	cred, ok, err := a.store.Credential()
	if err != nil {
		return false, err
	}

	return ok && cred.Finalized(), nil
}

// Logout removes the stored credential. The pending handshake, if any,
// is left alone.
func (a *Authorizer) Logout() error {
	return a.store.DeleteCredential()
}

// abandon resolves h with err if it is still the pending handshake.
func (a *Authorizer) abandon(h *Handshake, err error) {
	a.mu.Lock()
	if a.pending != h {
		a.mu.Unlock()
		return
	}
	a.pending = nil
	a.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}

	if h.done != nil {
		h.done <- Result{Err: err}
	}

	a.logger.Info("authorization handshake abandoned", slog.String("reason", err.Error()))
}

// obtainRequestToken performs POST oauth/request_token signed with the
// consumer credentials only.
func (a *Authorizer) obtainRequestToken(ctx context.Context, callbackURL string) (models.Credential, error) {
	extra := map[string]string{"oauth_callback": callbackURL}

	return a.tokenRequest(ctx, a.endpoints.RequestTokenURL, "", "", extra)
}

// exchange performs the access-token step with the request token and
// the verifier from the callback, persists the resulting credential,
// and resolves the handshake.
func (a *Authorizer) exchange(h *Handshake, verifier string) {
	ctx, cancel := context.WithTimeout(context.Background(), httpClientTimeout)
	defer cancel()

	extra := map[string]string{"oauth_verifier": verifier}

	cred, err := a.tokenRequest(ctx, a.endpoints.AccessTokenURL, h.requestToken.Key, h.requestToken.Secret, extra)
	if err != nil {
		h.done <- Result{Err: fmt.Errorf("exchanging for access token: %w", err)}
		return
	}

	if err := a.store.SetCredential(cred); err != nil {
		h.done <- Result{Err: fmt.Errorf("persisting credential: %w", err)}
		return
	}

	a.logger.Info("authorization complete", slog.String("screen_name", cred.ScreenName))

	h.done <- Result{Credential: cred}
}

// tokenRequest performs a signed POST against a token endpoint and
// parses the form-encoded credential from the response body.
func (a *Authorizer) tokenRequest(ctx context.Context, endpoint, tokenKey, tokenSecret string, extra map[string]string) (models.Credential, error) {
	header, err := a.signer.AuthorizationHeader(http.MethodPost, endpoint, nil, tokenKey, tokenSecret, extra)
	if err != nil {
		return models.Credential{}, fmt.Errorf("signing token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return models.Credential{}, fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("Authorization", header)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return models.Credential{}, &TransportError{Err: fmt.Errorf("sending token request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return models.Credential{}, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		a.logger.Debug("token request rejected",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("body", sanitizeResponseBody(body)),
		)

		return models.Credential{}, &StatusError{Code: resp.StatusCode}
	}

	cred, err := models.ParseCredential(string(body))
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return cred, nil
}
