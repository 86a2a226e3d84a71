// Package routing dispatches inbound custom-scheme URLs to registered
// handlers. The host application forwards every "open URL" event it
// receives to Route; services claim a handler name at construction and
// consume the URLs addressed to them.
//
// Custom URL shape (RFC 3986): <app-scheme>://<handler-name>/<operation>[?k=v&...]
// where the URL host selects the handler and the first path segment is
// the operation. Anything past the first segment is ignored.
package routing

import (
	"net/url"
	"strings"
)

// Handler processes a routed URL. operation is the first path segment;
// params holds the flattened query (last value wins on duplicates). The
// return value reports whether the handler recognized and consumed the
// URL, and is propagated verbatim as Route's result.
type Handler func(u *url.URL, operation string, params map[string]string) bool

// Router matches inbound URLs against a handler table. It fails closed:
// URLs with an unknown scheme, an unregistered handler name, or that do
// not parse invoke nothing and report false.
type Router struct {
	schemes map[string]bool
	table   map[string]Handler
}

// NewRouter creates a router accepting the given URL schemes.
func NewRouter(schemes ...string) *Router {
	accepted := make(map[string]bool, len(schemes))
	for _, scheme := range schemes {
		accepted[strings.ToLower(scheme)] = true
	}

	return &Router{
		schemes: accepted,
		table:   make(map[string]Handler),
	}
}

// Add registers handler under name. Registering the same name again
// replaces the previous handler. The table is meant to be populated at
// construction time; Add is not safe for use concurrently with Route.
func (r *Router) Add(name string, handler Handler) {
	r.table[strings.ToLower(name)] = handler
}

// Route dispatches rawURL to the handler registered for its host part
// and returns the handler's result, or false if nothing matched.
func (r *Router) Route(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if !r.schemes[strings.ToLower(u.Scheme)] {
		return false
	}

	if u.Host == "" {
		return false
	}

	handler, ok := r.table[strings.ToLower(u.Host)]
	if !ok {
		return false
	}

	operation := strings.TrimPrefix(u.Path, "/")
	if slash := strings.IndexByte(operation, '/'); slash >= 0 {
		operation = operation[:slash]
	}

	params := make(map[string]string)
	for key, values := range u.Query() {
		if len(values) > 0 {
			params[key] = values[len(values)-1]
		}
	}

	return handler(u, operation, params)
}
