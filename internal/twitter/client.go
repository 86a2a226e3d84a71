package twitter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/heliotropix/places-auth/internal/oauth"
	"github.com/tidwall/gjson"
)

const (
	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads. API responses are
	// small JSON or form-encoded payloads.
	maxAPIResponseBytes = 1024 * 1024
)

// Client issues authenticated requests against the API. User-context
// requests are signed with the access-token credential from the store;
// app-only requests carry the bearer token from the BearerSource. The
// executor inspects every response body for the invalid-token sentinel
// and, on the app-only path, refreshes the bearer token and retries
// exactly once. The user-context path never refreshes automatically
// because re-authorization requires interactive user consent.
type Client struct {
	httpClient *http.Client
	signer     *oauth.Signer
	endpoints  Endpoints
	store      Store
	bearer     *BearerSource
	logger     *slog.Logger
}

// NewClient creates an API client. If httpClient is nil a client with a
// 30-second timeout is used.
func NewClient(httpClient *http.Client, signer *oauth.Signer, endpoints Endpoints, store Store, bearer *BearerSource, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpClientTimeout}
	}

	return &Client{
		httpClient: httpClient,
		signer:     signer,
		endpoints:  endpoints,
		store:      store,
		bearer:     bearer,
		logger:     logger,
	}
}

// GetUser issues an OAuth1-signed GET to endpoint (a path under the API
// base URL) with the given query, in the user's context. It fails with
// ErrNotAuthorized when no finalized credential is stored.
func (c *Client) GetUser(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	cred, ok, err := c.store.Credential()
	if err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}
	if !ok || !cred.Finalized() {
		return nil, ErrNotAuthorized
	}

	requestURL := c.apiURL(endpoint, query)

	header, err := c.signer.AuthorizationHeader(http.MethodGet, requestURL, nil, cred.Key, cred.Secret, nil)
	if err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	body, err := c.do(ctx, http.MethodGet, requestURL, header)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s", ErrDecode, sanitizeResponseBody(body))
	}

	if serverErr := sniffServerError(body); serverErr != nil {
		// No silent recovery here: a dead user token needs the user
		// back in the browser.
		return nil, serverErr
	}

	return body, nil
}

// GetAppOnly issues a bearer-authenticated GET to endpoint with the
// given query. A response carrying the invalid-token sentinel code
// triggers exactly one token refresh followed by exactly one retry; a
// sentinel on the retry is surfaced, never looped.
func (c *Client) GetAppOnly(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	token, err := c.bearer.Token(ctx)
	if err != nil {
		return nil, err
	}

	requestURL := c.apiURL(endpoint, query)

	body, err := c.do(ctx, http.MethodGet, requestURL, "Bearer "+token)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s", ErrDecode, sanitizeResponseBody(body))
	}

	serverErr := sniffServerError(body)
	if serverErr == nil {
		return body, nil
	}
	if serverErr.Code != invalidTokenCode {
		return nil, serverErr
	}

	c.logger.Info("bearer token rejected, refreshing", slog.String("endpoint", endpoint))

	token, err = c.bearer.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	body, err = c.do(ctx, http.MethodGet, requestURL, "Bearer "+token)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s", ErrDecode, sanitizeResponseBody(body))
	}

	if serverErr := sniffServerError(body); serverErr != nil {
		return nil, serverErr
	}

	return body, nil
}

func (c *Client) apiURL(endpoint string, query url.Values) string {
	requestURL := strings.TrimSuffix(c.endpoints.APIBaseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	return requestURL
}

// do sends the request with the given Authorization header and returns
// the response body. Statuses 401 and 403 pass through so the body can
// be inspected for the sentinel error object; any other non-2xx status
// is a StatusError.
func (c *Client) do(ctx context.Context, method, requestURL, authorization string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("sending request to %s: %w", requestURL, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", requestURL, err)
	}

	if !acceptableStatus(resp.StatusCode) {
		c.logger.Debug("request rejected",
			slog.String("url", requestURL),
			slog.Int("status", resp.StatusCode),
			slog.String("body", sanitizeResponseBody(body)),
		)

		return nil, &StatusError{Code: resp.StatusCode}
	}

	return body, nil
}

// acceptableStatus allows 2xx plus 401 and 403, whose bodies carry the
// application error object the executor needs to see.
func acceptableStatus(code int) bool {
	if code < 300 {
		return true
	}

	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// sniffServerError checks a response body for the API's error shape:
// {"errors":[{"code":89,"message":"..."}]}. Returns nil when the body
// carries no error object.
func sniffServerError(body []byte) *ServerError {
	errs := gjson.GetBytes(body, "errors")
	if !errs.IsArray() || len(errs.Array()) == 0 {
		return nil
	}

	first := errs.Array()[0]

	return &ServerError{
		Code:    int(first.Get("code").Int()),
		Message: first.Get("message").String(),
	}
}

// sanitizeResponseBody truncates and sanitizes a response body for
// logging. Limits to 256 bytes and replaces non-printable characters to
// prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}
