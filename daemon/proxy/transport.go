package proxy

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http/httpproxy"

	"github.com/regfront/regfront/daemon/config"
)

// newTransport builds the transport shared by the upstream clients.
// Proxy selection honors the daemon configuration when any proxy field
// is set and falls back to the process environment otherwise.
func newTransport(conf *config.Config) *http.Transport {
	proxyCfg := httpproxy.FromEnvironment()
	if conf.HTTPProxy != "" || conf.HTTPSProxy != "" || conf.NoProxy != "" {
		proxyCfg = &httpproxy.Config{
			HTTPProxy:  conf.HTTPProxy,
			HTTPSProxy: conf.HTTPSProxy,
			NoProxy:    conf.NoProxy,
		}
	}
	proxyFunc := proxyCfg.ProxyFunc()

	return &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			return proxyFunc(req.URL)
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}
}

// newClients returns the two clients used against upstreams: direct
// surfaces redirect responses to the caller so the storage redirect can
// be re-issued without credentials, follower chases redirects like a
// regular client.
func newClients(base *http.Transport) (direct, follower *http.Client) {
	rt := otelhttp.NewTransport(base)
	direct = &http.Client{
		Transport: rt,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	follower = &http.Client{Transport: rt}
	return direct, follower
}
