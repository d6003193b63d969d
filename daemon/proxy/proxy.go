// Package proxy implements the forwarding engine fronting upstream
// container registries: anonymous token brokering, registry API
// relaying, storage redirect chasing and the legacy index endpoints.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/docker/distribution/registry/api/errcode"
	"github.com/pkg/errors"

	"github.com/regfront/regfront/daemon/config"
	"github.com/regfront/regfront/daemon/pkg/registry"
	"github.com/regfront/regfront/daemon/server/httputils"
)

// Engine relays registry traffic to upstream registries. It owns the
// outbound HTTP clients and the token broker and is safe for concurrent
// use.
type Engine struct {
	table     *registry.Table
	broker    *TokenBroker
	direct    *http.Client
	follower  *http.Client
	transport *http.Transport
	authBase  string
	indexURL  *url.URL
	scheme    string
}

// NewEngine builds the forwarding engine from the daemon configuration
// and the resolved route table.
func NewEngine(conf *config.Config, table *registry.Table) (*Engine, error) {
	indexURL, err := url.Parse(conf.IndexEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "parsing index endpoint")
	}
	transport := newTransport(conf)
	direct, follower := newClients(transport)
	return &Engine{
		table:     table,
		broker:    NewTokenBroker(follower, conf.AuthEndpoint, registry.AuthService),
		direct:    direct,
		follower:  follower,
		transport: transport,
		authBase:  conf.AuthEndpoint,
		indexURL:  indexURL,
		scheme:    "https",
	}, nil
}

// Close releases idle upstream connections.
func (e *Engine) Close() {
	e.transport.CloseIdleConnections()
}

// officialImagePattern matches single-segment image paths such as
// "/v2/nginx/manifests/latest", which address official images living
// under the library/ namespace on the hub.
var officialImagePattern = regexp.MustCompile(`^/v2/[^/]+/[^/]+/[^/]+$`)

// NormalizePath rewrites bare official-image paths to their canonical
// library/ form when the request targets the default hub. All other
// paths pass through untouched.
func NormalizePath(path string, defaultHub bool) string {
	if !defaultHub {
		return path
	}
	if !officialImagePattern.MatchString(path) || strings.HasPrefix(path, "/v2/library/") {
		return path
	}
	return "/v2/library/" + strings.TrimPrefix(path, "/v2/")
}

func cloneBody(body []byte) io.Reader {
	if len(body) == 0 {
		return nil
	}
	return bytes.NewReader(body)
}

// ForwardRegistry relays a registry API request to the decided
// upstream. Manifest, blob and tag paths are fronted by an anonymous
// pull token obtained fresh for this request; the client's own
// Authorization header never travels upstream on this path.
func (e *Engine) ForwardRegistry(ctx context.Context, w http.ResponseWriter, r *http.Request, decision registry.Decision) error {
	if strings.Contains(r.URL.Path, "/token") {
		return e.ForwardToken(ctx, w, r)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return invalidParamf("reading request body: %v", err)
	}

	path := NormalizePath(r.URL.Path, decision.Upstream == e.table.DefaultHost())

	var token string
	if repo, _, gated := RepositoryScope(path); gated {
		if repo == "" {
			return invalidParamf("malformed repository path %q", path)
		}
		token, err = e.broker.Token(ctx, repo, r.Header)
		if err != nil {
			tokenExchanges.WithValues("error").Inc()
			return err
		}
		if token == "" {
			tokenExchanges.WithValues("denied").Inc()
			return e.writeChallenge(w, repo)
		}
		tokenExchanges.WithValues("issued").Inc()
	}

	req, err := e.buildRegistryRequest(ctx, r, decision.Upstream, path, token, body)
	if err != nil {
		return err
	}
	resp, err := e.direct.Do(req)
	if err != nil {
		return upstreamWrapf(err, "forwarding to %s", decision.Upstream)
	}
	defer resp.Body.Close()

	rewriteChallenge(resp.Header, e.authBase, e.scheme+"://"+r.Host)
	if location := resp.Header.Get("Location"); location != "" {
		return e.followRedirect(ctx, w, r, location, decision.Upstream, body)
	}
	return e.writeResponse(ctx, w, resp)
}

// buildRegistryRequest assembles the outbound request. The header set
// is built fresh rather than cloned: only negotiated content headers
// travel upstream, and the Authorization slot belongs to the brokered
// token alone.
func (e *Engine) buildRegistryRequest(ctx context.Context, r *http.Request, upstream, path, token string, body []byte) (*http.Request, error) {
	u := *r.URL
	u.Scheme = e.scheme
	u.Host = upstream
	u.Path = path
	u.RawPath = ""

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), cloneBody(body))
	if err != nil {
		return nil, errors.Wrap(err, "building upstream request")
	}
	req.Host = upstream
	req.Header.Set("User-Agent", r.Header.Get("User-Agent"))
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}
	adjustAccept(req.Header)
	if v := r.Header.Get("Accept-Language"); v != "" {
		req.Header.Set("Accept-Language", v)
	}
	if v := r.Header.Get("Accept-Encoding"); v != "" {
		// Forwarding Accept-Encoding verbatim disables the transport's
		// transparent gzip, so bodies relay byte for byte.
		req.Header.Set("Accept-Encoding", v)
	}
	req.Header.Set("Cache-Control", "max-age=3600")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if v := r.Header.Get("X-Amz-Content-Sha256"); v != "" {
		req.Header.Set("X-Amz-Content-Sha256", v)
	}
	return req, nil
}

// writeChallenge answers a request no token could be brokered for with
// the canonical bearer challenge for the repository's pull scope.
func (e *Engine) writeChallenge(w http.ResponseWriter, repo string) error {
	challenge := fmt.Sprintf("Bearer realm=%q,service=%q,scope=%q",
		e.authBase+"/token", e.broker.service, "repository:"+repo+":pull")
	w.Header().Set("Www-Authenticate", challenge)
	return httputils.WriteJSON(w, http.StatusUnauthorized, errcode.Errors{
		errcode.ErrorCodeUnauthorized.WithDetail(repo),
	})
}

// ForwardToken relays a token exchange verbatim to the token service.
// Clients see this daemon as their token realm after the challenge
// rewrite, so whatever they ask here goes to the real service
// untouched.
func (e *Engine) ForwardToken(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return invalidParamf("reading request body: %v", err)
	}

	tokenURL := e.authBase + r.URL.Path
	if r.URL.RawQuery != "" {
		tokenURL += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, tokenURL, cloneBody(body))
	if err != nil {
		return errors.Wrap(err, "building token exchange request")
	}
	copyHeader(req.Header, r.Header)
	adjustAccept(req.Header)

	resp, err := e.follower.Do(req)
	if err != nil {
		return upstreamWrapf(err, "forwarding token exchange")
	}
	defer resp.Body.Close()

	return e.writeResponse(ctx, w, resp)
}

// ForwardSearch relays the legacy v1 index endpoints. Hub-bound
// traffic goes to the index endpoint; explicitly routed requests
// forward to their upstream unchanged. The "library/" prefix clients
// prepend to official image names is stripped from search terms.
func (e *Engine) ForwardSearch(ctx context.Context, w http.ResponseWriter, r *http.Request, decision registry.Decision) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return invalidParamf("reading request body: %v", err)
	}

	u := *r.URL
	if decision.Upstream == e.table.DefaultHost() {
		// The v1 index endpoints live on the index host, not on the
		// registry host serving pulls.
		u.Scheme = e.indexURL.Scheme
		u.Host = e.indexURL.Host
	} else {
		u.Scheme = e.scheme
		u.Host = decision.Upstream
	}
	query := u.Query()
	if q := query.Get("q"); strings.Contains(q, "library/") && q != "library/" {
		query.Set("q", strings.Replace(q, "library/", "", 1))
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), cloneBody(body))
	if err != nil {
		return errors.Wrap(err, "building index request")
	}
	copyHeader(req.Header, r.Header)
	adjustAccept(req.Header)

	resp, err := e.direct.Do(req)
	if err != nil {
		return upstreamWrapf(err, "forwarding to %s", u.Host)
	}
	defer resp.Body.Close()

	rewriteChallenge(resp.Header, e.authBase, e.scheme+"://"+r.Host)
	if location := resp.Header.Get("Location"); location != "" {
		return e.followRedirect(ctx, w, r, location, u.Host, body)
	}
	return e.writeResponse(ctx, w, resp)
}

// ForwardOrigin proxies the browser-facing root page from the
// configured origin URL.
func (e *Engine) ForwardOrigin(ctx context.Context, w http.ResponseWriter, r *http.Request, origin string) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return invalidParamf("reading request body: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, origin, cloneBody(body))
	if err != nil {
		return errors.Wrap(err, "building origin request")
	}
	copyHeader(req.Header, r.Header)
	adjustAccept(req.Header)

	resp, err := e.follower.Do(req)
	if err != nil {
		return upstreamWrapf(err, "forwarding to origin")
	}
	defer resp.Body.Close()

	return e.writeResponse(ctx, w, resp)
}
