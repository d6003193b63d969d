package registry

import (
	"net/url"
	"strings"
)

// RouteKind enumerates the ways a request can be matched to an
// upstream. Unknown registries are the deliberate RouteDefaultHub
// fallback, not an error.
type RouteKind int

const (
	// RouteNamespace means the ns query parameter selected the upstream.
	RouteNamespace RouteKind = iota
	// RouteHostPrefix means the hostname prefix matched the route table.
	RouteHostPrefix
	// RouteDefaultHub means nothing matched and the default hub was used.
	RouteDefaultHub
)

func (k RouteKind) String() string {
	switch k {
	case RouteNamespace:
		return "namespace"
	case RouteHostPrefix:
		return "host-prefix"
	case RouteDefaultHub:
		return "default"
	default:
		return "unknown"
	}
}

// Decision is the routing outcome for a single request. It is derived
// once per request and immutable thereafter.
type Decision struct {
	// Upstream is the registry host the request targets. Never empty.
	Upstream string
	// Kind records how Upstream was selected.
	Kind RouteKind
	// ShowUI is true only when the default hub was reached through
	// implicit hostname routing: explicit overrides are programmatic
	// usage and never get the browser-facing surface.
	ShowUI bool
}

// Resolve maps a request URL to an upstream registry host. The ns
// parameter wins over everything and addresses an arbitrary upstream by
// namespace; hubhost overrides the hostname used for prefix routing.
// Resolve never fails: unmatched prefixes fall back to the default hub.
func (t *Table) Resolve(u *url.URL) Decision {
	query := u.Query()
	if ns := query.Get("ns"); ns != "" {
		host := ns
		if ns == DefaultNamespace {
			host = t.defaultHost
		}
		return Decision{Upstream: host, Kind: RouteNamespace}
	}

	hostname := query.Get("hubhost")
	explicit := hostname != ""
	if !explicit {
		hostname = u.Hostname()
	}
	prefix, _, _ := strings.Cut(strings.ToLower(hostname), ".")
	if target, ok := t.routes[prefix]; ok {
		return Decision{Upstream: target, Kind: RouteHostPrefix}
	}
	return Decision{Upstream: t.defaultHost, Kind: RouteDefaultHub, ShowUI: !explicit}
}
