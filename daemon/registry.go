package daemon

import (
	"context"
	"net/http"
	"strings"

	"github.com/containerd/log"
	"github.com/docker/go-metrics"

	"github.com/regfront/regfront/daemon/pkg/registry"
	"github.com/regfront/regfront/daemon/proxy"
)

// resolve derives the routing decision for an inbound request. The URL
// of a server-side request carries no host, so the Host header is
// grafted on before consulting the route table.
func (d *Daemon) resolve(r *http.Request) registry.Decision {
	u := *r.URL
	u.Host = r.Host
	return d.table.Resolve(&u)
}

// ServeRegistry forwards a registry API request to its resolved
// upstream.
func (d *Daemon) ServeRegistry(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	decision := d.resolve(r)
	defer metrics.StartTimer(requestActions.WithValues(actionFor(r.URL.Path)))()
	log.G(ctx).WithFields(log.Fields{
		"upstream": decision.Upstream,
		"route":    decision.Kind.String(),
	}).Debug("Forwarding registry request")
	return d.engine.ForwardRegistry(ctx, w, r, decision)
}

// ServeToken relays a token exchange to the authentication service.
func (d *Daemon) ServeToken(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer metrics.StartTimer(requestActions.WithValues("token"))()
	return d.engine.ForwardToken(ctx, w, r)
}

// actionFor buckets a request path into the metric action label.
func actionFor(path string) string {
	if strings.Contains(path, "/token") {
		return "token"
	}
	if _, operation, gated := proxy.RepositoryScope(path); gated && operation != "" {
		return operation
	}
	if strings.HasPrefix(path, "/v2") {
		return "registry"
	}
	return "forward"
}
