package daemon

import (
	"context"
	"net/http"
	"strings"

	"github.com/docker/go-metrics"

	"github.com/regfront/regfront/daemon/ui"
)

// ServeSearch proxies the legacy v1 search surface.
func (d *Daemon) ServeSearch(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	decision := d.resolve(r)
	defer metrics.StartTimer(requestActions.WithValues("search"))()
	return d.engine.ForwardSearch(ctx, w, r, decision)
}

// ServeRoot serves the landing surface for browsers reaching the
// default hub implicitly. Everything else at the root, including
// requests carrying an ns or hubhost override, goes through the
// registry pipeline like any other path.
func (d *Daemon) ServeRoot(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	decision := d.resolve(r)
	if decision.ShowUI && isBrowser(r.Header.Get("User-Agent")) {
		defer metrics.StartTimer(requestActions.WithValues("root"))()
		switch {
		case d.config.RedirectURL != "":
			http.Redirect(w, r, d.config.RedirectURL, http.StatusFound)
			return nil
		case d.config.ServePlaceholder():
			return ui.ServePlaceholder(w)
		case d.config.OriginURL != "":
			return d.engine.ForwardOrigin(ctx, w, r, d.config.OriginURL)
		default:
			return ui.ServeSearchPage(w)
		}
	}
	defer metrics.StartTimer(requestActions.WithValues(actionFor(r.URL.Path)))()
	return d.engine.ForwardRegistry(ctx, w, r, decision)
}

// isBrowser reports whether the User-Agent looks like an interactive
// browser rather than container tooling.
func isBrowser(userAgent string) bool {
	return strings.Contains(strings.ToLower(userAgent), "mozilla")
}
