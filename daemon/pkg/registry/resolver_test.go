package registry

import (
	"net/url"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"pgregory.net/rapid"
)

func newDefaultTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(DefaultRegistryHost, nil)
	assert.NilError(t, err)
	return tbl
}

func requestURL(t *testing.T, rawURL string) *url.URL {
	t.Helper()
	u, err := url.Parse(rawURL)
	assert.NilError(t, err)
	return u
}

func TestResolveKnownPrefixes(t *testing.T) {
	tbl := newDefaultTable(t)
	tests := []struct {
		host     string
		upstream string
	}{
		{host: "quay.example.com", upstream: "quay.io"},
		{host: "gcr.example.com", upstream: "gcr.io"},
		{host: "k8s-gcr.example.com", upstream: "k8s.gcr.io"},
		{host: "k8s.example.com", upstream: "registry.k8s.io"},
		{host: "ghcr.example.com", upstream: "ghcr.io"},
		{host: "cloudsmith.example.com", upstream: "docker.cloudsmith.io"},
		{host: "nvcr.example.com", upstream: "nvcr.io"},
		{host: "test.example.com", upstream: DefaultRegistryHost},
		{host: "QUAY.Example.com", upstream: "quay.io"},
		{host: "ghcr.example.com:8443", upstream: "ghcr.io"},
	}
	for _, tc := range tests {
		t.Run(tc.host, func(t *testing.T) {
			d := tbl.Resolve(requestURL(t, "https://"+tc.host+"/v2/"))
			assert.Check(t, is.Equal(d.Upstream, tc.upstream))
			assert.Check(t, is.Equal(d.Kind, RouteHostPrefix))
			assert.Check(t, !d.ShowUI, "table hits never get the UI")
		})
	}
}

func TestResolveUnknownPrefixFallsBack(t *testing.T) {
	tbl := newDefaultTable(t)
	for _, host := range []string{"docker.example.com", "registry.example.com", "localhost"} {
		d := tbl.Resolve(requestURL(t, "https://"+host+"/v2/"))
		assert.Check(t, is.Equal(d.Upstream, DefaultRegistryHost))
		assert.Check(t, is.Equal(d.Kind, RouteDefaultHub))
		assert.Check(t, d.ShowUI, "implicit default-hub routing gets the UI")
	}
}

func TestResolveNamespaceParam(t *testing.T) {
	tbl := newDefaultTable(t)

	d := tbl.Resolve(requestURL(t, "https://docker.example.com/v2/foo/manifests/latest?ns=quay.io"))
	assert.Check(t, is.Equal(d.Upstream, "quay.io"))
	assert.Check(t, is.Equal(d.Kind, RouteNamespace))
	assert.Check(t, !d.ShowUI)

	// docker.io is the namespace alias for the default hub.
	d = tbl.Resolve(requestURL(t, "https://docker.example.com/v2/?ns=docker.io"))
	assert.Check(t, is.Equal(d.Upstream, DefaultRegistryHost))
	assert.Check(t, is.Equal(d.Kind, RouteNamespace))

	// ns wins over hubhost.
	d = tbl.Resolve(requestURL(t, "https://docker.example.com/v2/?ns=quay.io&hubhost=ghcr.example.com"))
	assert.Check(t, is.Equal(d.Upstream, "quay.io"))

	// An empty ns is treated as absent.
	d = tbl.Resolve(requestURL(t, "https://quay.example.com/v2/?ns="))
	assert.Check(t, is.Equal(d.Upstream, "quay.io"))
	assert.Check(t, is.Equal(d.Kind, RouteHostPrefix))
}

func TestResolveHubhostParam(t *testing.T) {
	tbl := newDefaultTable(t)

	d := tbl.Resolve(requestURL(t, "https://docker.example.com/v2/?hubhost=ghcr.example.com"))
	assert.Check(t, is.Equal(d.Upstream, "ghcr.io"))
	assert.Check(t, is.Equal(d.Kind, RouteHostPrefix))
	assert.Check(t, !d.ShowUI)

	// Unmatched hubhost still falls back to the default hub, but the
	// explicit override disables the UI.
	d = tbl.Resolve(requestURL(t, "https://docker.example.com/v2/?hubhost=mirror.example.com"))
	assert.Check(t, is.Equal(d.Upstream, DefaultRegistryHost))
	assert.Check(t, is.Equal(d.Kind, RouteDefaultHub))
	assert.Check(t, !d.ShowUI)
}

func TestResolveExtraRoutes(t *testing.T) {
	tbl, err := NewTable(DefaultRegistryHost, []string{"corp=registry.corp.example.com", "quay=quay.mirror.example.com"})
	assert.NilError(t, err)

	d := tbl.Resolve(requestURL(t, "https://corp.example.com/v2/"))
	assert.Check(t, is.Equal(d.Upstream, "registry.corp.example.com"))

	// Extra routes may override built-in prefixes.
	d = tbl.Resolve(requestURL(t, "https://quay.example.com/v2/"))
	assert.Check(t, is.Equal(d.Upstream, "quay.mirror.example.com"))
}

func TestResolveNeverFails(t *testing.T) {
	tbl := newDefaultTable(t)
	rapid.Check(t, func(t *rapid.T) {
		host := rapid.StringMatching(`[a-z0-9-]{1,12}(\.[a-z0-9-]{1,12}){0,3}`).Draw(t, "host")
		d := tbl.Resolve(&url.URL{Scheme: "https", Host: host, Path: "/v2/"})
		if d.Upstream == "" {
			t.Fatalf("empty upstream for host %q", host)
		}
		if d.Kind == RouteDefaultHub && d.Upstream != DefaultRegistryHost {
			t.Fatalf("default-hub decision with upstream %q", d.Upstream)
		}
	})
}

func TestResolveNamespaceAlwaysWins(t *testing.T) {
	tbl := newDefaultTable(t)
	rapid.Check(t, func(t *rapid.T) {
		ns := rapid.StringMatching(`[a-z0-9-]{1,12}(\.[a-z0-9-]{1,12}){1,3}`).Draw(t, "ns")
		u := &url.URL{Scheme: "https", Host: "quay.example.com", Path: "/v2/", RawQuery: url.Values{"ns": {ns}}.Encode()}
		d := tbl.Resolve(u)
		want := ns
		if ns == DefaultNamespace {
			want = DefaultRegistryHost
		}
		if d.Upstream != want {
			t.Fatalf("ns=%q resolved to %q, want %q", ns, d.Upstream, want)
		}
		if d.ShowUI {
			t.Fatalf("ns=%q must bypass the UI", ns)
		}
	})
}
