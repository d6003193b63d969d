package registry

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/distribution/reference"
)

const (
	// DefaultNamespace is the namespace used by clients to address the
	// default (Docker Hub) registry through the ns query parameter.
	DefaultNamespace = "docker.io"
	// DefaultRegistryHost is the hostname for the default (Docker Hub)
	// registry used for pulling images. This hostname is hard-coded to
	// handle requests addressed to "docker.io", which is the canonical
	// reference for images on Docker Hub but does not match the
	// domain-name of Docker Hub's registry.
	DefaultRegistryHost = "registry-1.docker.io"
	// IndexHostname is the index hostname, used for the legacy v1
	// search endpoints backing the browser-facing surface.
	IndexHostname = "index.docker.io"
	// IndexServer is the base URL of the legacy index.
	IndexServer = "https://" + IndexHostname
	// DefaultAuthServer is the base URL of the token service issuing
	// anonymous pull tokens for the default registry.
	DefaultAuthServer = "https://auth.docker.io"
	// AuthService is the service name sent on token exchanges.
	AuthService = "registry.docker.io"
)

// defaultUpstreams maps well-known hostname prefixes to upstream
// registry hosts. The "test" prefix deliberately routes to the default
// hub while still counting as an explicit table hit.
func defaultUpstreams(defaultHost string) map[string]string {
	return map[string]string{
		"quay":       "quay.io",
		"gcr":        "gcr.io",
		"k8s-gcr":    "k8s.gcr.io",
		"k8s":        "registry.k8s.io",
		"ghcr":       "ghcr.io",
		"cloudsmith": "docker.cloudsmith.io",
		"nvcr":       "nvcr.io",
		"test":       defaultHost,
	}
}

var validHostPortRegex = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^` + reference.DomainRegexp.String() + `$`)
})

// Table resolves inbound requests to upstream registry hosts. It is
// built once at startup and read-only afterward.
type Table struct {
	routes      map[string]string
	defaultHost string
}

// NewTable builds a route table around defaultHost, merging in extra
// "prefix=host" routes. Returns an error if defaultHost or any route is
// invalid.
func NewTable(defaultHost string, extraRoutes []string) (*Table, error) {
	host, err := ValidateHost(defaultHost)
	if err != nil {
		return nil, err
	}
	routes := defaultUpstreams(host)
	for _, route := range extraRoutes {
		r, err := ValidateUpstream(route)
		if err != nil {
			return nil, err
		}
		prefix, target, _ := strings.Cut(r, "=")
		routes[prefix] = target
	}
	return &Table{routes: routes, defaultHost: host}, nil
}

// DefaultHost returns the default hub host the table falls back to.
func (t *Table) DefaultHost() string {
	return t.defaultHost
}

// ValidateUpstream validates and normalizes a "prefix=host" route. It
// is used by the daemon to validate the daemon configuration.
func ValidateUpstream(val string) (string, error) {
	prefix, target, ok := strings.Cut(val, "=")
	if !ok || prefix == "" {
		return "", invalidParamf("invalid upstream route %q: must be in the form prefix=host", val)
	}
	if strings.Contains(prefix, ".") || strings.Contains(prefix, "/") {
		return "", invalidParamf("invalid upstream route prefix %q: must be a bare hostname prefix", prefix)
	}
	host, err := ValidateHost(target)
	if err != nil {
		return "", invalidParamWrapf(err, "invalid upstream route %q", val)
	}
	return strings.ToLower(prefix) + "=" + host, nil
}

// ValidateEndpoint validates and normalizes an HTTP(S) endpoint base
// URL, such as the token service or the legacy index. It returns the
// URL with any trailing slash removed so that callers can append paths
// to it directly.
func ValidateEndpoint(endpoint string) (string, error) {
	// Fast path for missing scheme, as url.Parse splits by ":", which can
	// cause the hostname to be considered the "scheme" when using "hostname:port".
	if scheme, _, ok := strings.Cut(endpoint, "://"); !ok || scheme == "" {
		return "", invalidParamf("invalid endpoint: no scheme specified for %q: must use either 'https://' or 'http://'", endpoint)
	}
	uri, err := url.Parse(endpoint)
	if err != nil {
		return "", invalidParamWrapf(err, "invalid endpoint: %q is not a valid URI", endpoint)
	}
	if uri.Scheme != "http" && uri.Scheme != "https" {
		return "", invalidParamf("invalid endpoint: unsupported scheme %q in %q: must use either 'https://' or 'http://'", uri.Scheme, uri)
	}
	if uri.Host == "" {
		return "", invalidParamf("invalid endpoint: no host in %q", uri)
	}
	if uri.RawQuery != "" || uri.Fragment != "" {
		return "", invalidParamf("invalid endpoint: query or fragment at end of the URI %q", uri)
	}
	if uri.User != nil {
		// strip password from output
		uri.User = url.UserPassword(uri.User.Username(), "xxxxx")
		return "", invalidParamf("invalid endpoint: username/password not allowed in URI %q", uri)
	}
	return strings.TrimSuffix(endpoint, "/"), nil
}

// ValidateHost validates and normalizes a registry host. The Docker Hub
// aliases ("docker.io", "index.docker.io") normalize to the registry
// host actually serving pulls. It is used by the daemon to validate the
// daemon configuration.
func ValidateHost(val string) (string, error) {
	if scheme, _, ok := strings.Cut(val, "://"); ok {
		return "", invalidParamf("invalid registry host %q: must not contain a %q scheme", val, scheme)
	}
	host := normalizeHubAlias(strings.ToLower(val))
	if err := validateHostPort(host); err != nil {
		return "", err
	}
	return host, nil
}

func normalizeHubAlias(host string) string {
	if host == DefaultNamespace || host == IndexHostname {
		return DefaultRegistryHost
	}
	return host
}

func validateHostPort(s string) error {
	// Split host and port, and in case s can not be split, assume host only
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		host = s
		port = ""
	}
	// If match against the `host:port` pattern fails,
	// it might be `IPv6:port`, which will be captured by net.ParseIP(host)
	if !validHostPortRegex().MatchString(s) && net.ParseIP(host) == nil {
		return invalidParamf("invalid host %q", host)
	}
	if port != "" {
		v, err := strconv.Atoi(port)
		if err != nil {
			return err
		}
		if v < 0 || v > 65535 {
			return invalidParamf("invalid port %q", port)
		}
	}
	return nil
}
