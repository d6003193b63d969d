package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/regfront/regfront/daemon/config"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0"

// unreachableUpstream refuses connections immediately, which lets the
// tests tell "forwarded upstream" apart from "served locally" without
// touching the network.
const unreachableUpstream = "127.0.0.1:1"

func newTestDaemon(t *testing.T, conf *config.Config) *Daemon {
	t.Helper()
	if conf == nil {
		conf = config.New()
	}
	d, err := NewDaemon(context.Background(), conf)
	assert.NilError(t, err)
	t.Cleanup(func() {
		assert.NilError(t, d.Shutdown(context.Background()))
	})
	return d
}

func TestNewDaemonRejectsBadRoutes(t *testing.T) {
	conf := config.New()
	conf.Upstreams = []string{"missing-equals-sign"}
	_, err := NewDaemon(context.Background(), conf)
	assert.Check(t, is.ErrorType(err, cerrdefs.IsInvalidArgument))
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{path: "/v2/library/nginx/manifests/latest", expected: "manifests"},
		{path: "/v2/library/nginx/blobs/sha256:deadbeef", expected: "blobs"},
		{path: "/v2/myorg/myapp/tags/list", expected: "tags"},
		{path: "/token", expected: "token"},
		{path: "/auth/token", expected: "token"},
		{path: "/v2/", expected: "registry"},
		{path: "/v2/_catalog", expected: "registry"},
		{path: "/", expected: "forward"},
		{path: "/v1/search", expected: "forward"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Check(t, is.Equal(actionFor(tc.path), tc.expected))
		})
	}
}

func TestIsBrowser(t *testing.T) {
	assert.Check(t, isBrowser(browserUA))
	assert.Check(t, isBrowser("MOZILLA/4.0 (compatible)"))
	assert.Check(t, !isBrowser("docker/27.0.1 go/go1.22.4"))
	assert.Check(t, !isBrowser("containerd/2.0.0"))
	assert.Check(t, !isBrowser(""))
}

func TestServeRootBrowserSurface(t *testing.T) {
	t.Run("redirect configured", func(t *testing.T) {
		conf := config.New()
		conf.RedirectURL = "https://landing.example.com"
		d := newTestDaemon(t, conf)

		r := httptest.NewRequest(http.MethodGet, "http://hub.example.com/", nil)
		r.Header.Set("User-Agent", browserUA)
		w := httptest.NewRecorder()

		assert.NilError(t, d.ServeRoot(context.Background(), w, r))
		assert.Check(t, is.Equal(w.Code, http.StatusFound))
		assert.Check(t, is.Equal(w.Header().Get("Location"), "https://landing.example.com"))
	})

	t.Run("placeholder configured", func(t *testing.T) {
		conf := config.New()
		conf.OriginURL = config.PlaceholderOrigin
		d := newTestDaemon(t, conf)

		r := httptest.NewRequest(http.MethodGet, "http://hub.example.com/", nil)
		r.Header.Set("User-Agent", browserUA)
		w := httptest.NewRecorder()

		assert.NilError(t, d.ServeRoot(context.Background(), w, r))
		assert.Check(t, is.Equal(w.Code, http.StatusOK))
		assert.Check(t, is.Contains(w.Body.String(), "Welcome to nginx!"))
	})

	t.Run("built-in search page by default", func(t *testing.T) {
		d := newTestDaemon(t, nil)

		r := httptest.NewRequest(http.MethodGet, "http://hub.example.com/", nil)
		r.Header.Set("User-Agent", browserUA)
		w := httptest.NewRecorder()

		assert.NilError(t, d.ServeRoot(context.Background(), w, r))
		assert.Check(t, is.Equal(w.Code, http.StatusOK))
		assert.Check(t, is.Contains(w.Body.String(), "Registry Search"))
		assert.Check(t, is.Equal(w.Header().Get("Content-Type"), "text/html; charset=UTF-8"))
	})

	t.Run("non-browser agents are forwarded", func(t *testing.T) {
		conf := config.New()
		conf.RedirectURL = "https://landing.example.com"
		conf.DefaultUpstream = unreachableUpstream
		d := newTestDaemon(t, conf)

		r := httptest.NewRequest(http.MethodGet, "http://hub.example.com/", nil)
		r.Header.Set("User-Agent", "docker/27.0.1")
		w := httptest.NewRecorder()

		err := d.ServeRoot(context.Background(), w, r)
		assert.Check(t, is.ErrorType(err, cerrdefs.IsUnavailable))
		assert.Check(t, is.Equal(w.Header().Get("Location"), ""))
	})

	t.Run("ns override bypasses the page even for browsers", func(t *testing.T) {
		conf := config.New()
		conf.RedirectURL = "https://landing.example.com"
		d := newTestDaemon(t, conf)

		r := httptest.NewRequest(http.MethodGet, "http://hub.example.com/?ns="+unreachableUpstream, nil)
		r.Header.Set("User-Agent", browserUA)
		w := httptest.NewRecorder()

		err := d.ServeRoot(context.Background(), w, r)
		assert.Check(t, is.ErrorType(err, cerrdefs.IsUnavailable))
		assert.Check(t, is.Equal(w.Header().Get("Location"), ""))
	})

	t.Run("hubhost override bypasses the page", func(t *testing.T) {
		conf := config.New()
		conf.RedirectURL = "https://landing.example.com"
		conf.DefaultUpstream = unreachableUpstream
		d := newTestDaemon(t, conf)

		r := httptest.NewRequest(http.MethodGet, "http://hub.example.com/?hubhost=hub.example.com", nil)
		r.Header.Set("User-Agent", browserUA)
		w := httptest.NewRecorder()

		err := d.ServeRoot(context.Background(), w, r)
		assert.Check(t, is.ErrorType(err, cerrdefs.IsUnavailable))
		assert.Check(t, is.Equal(w.Header().Get("Location"), ""))
	})
}
