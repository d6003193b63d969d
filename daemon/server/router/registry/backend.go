package registry

import (
	"context"
	"net/http"
)

// Backend is all the methods that need to be implemented
// to provide the registry proxy functionality.
type Backend interface {
	// ServeRegistry forwards a registry API request to the resolved
	// upstream, obtaining an anonymous pull token first when the path
	// requires one. Responses are streamed back with their headers
	// rewritten for the proxy origin.
	ServeRegistry(ctx context.Context, w http.ResponseWriter, r *http.Request) error

	// ServeToken forwards a token request verbatim to the
	// authentication service so clients can run their own token
	// exchange through the proxy.
	ServeToken(ctx context.Context, w http.ResponseWriter, r *http.Request) error

	// ServeSearch proxies the legacy search surface of the default hub,
	// or the resolved upstream when the request targets another
	// registry.
	ServeSearch(ctx context.Context, w http.ResponseWriter, r *http.Request) error

	// ServeRoot serves the landing page for browser requests eligible
	// for it and forwards everything else upstream.
	ServeRoot(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}
