package proxy

import (
	"context"
	"net/http"
	"net/url"

	"github.com/docker/go-metrics"
	"github.com/pkg/errors"
)

// followRedirect re-issues a redirected request against the location
// the upstream pointed us at, typically a signed blob-storage URL. The
// Authorization header is stripped before the hop: signed URLs carry
// their own credentials and object stores reject requests bearing both.
func (e *Engine) followRedirect(ctx context.Context, w http.ResponseWriter, r *http.Request, location, baseHost string, body []byte) error {
	target, err := (&url.URL{Scheme: e.scheme, Host: baseHost}).Parse(location)
	if err != nil {
		return invalidParamf("invalid redirect location %q: %v", location, err)
	}

	headers := make(http.Header, len(r.Header))
	copyHeader(headers, r.Header)
	headers.Del("Authorization")
	adjustAccept(headers)

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), cloneBody(body))
	if err != nil {
		return errors.Wrap(err, "building redirect request")
	}
	req.Header = headers

	defer metrics.StartTimer(storageRedirects)()
	resp, err := e.follower.Do(req)
	if err != nil {
		return upstreamWrapf(err, "following redirect to %s", target.Host)
	}
	defer resp.Body.Close()

	return e.writeResponse(ctx, w, resp, func(h http.Header) {
		h.Set("Cache-Control", "max-age=1500")
		h.Del("Content-Security-Policy")
		h.Del("Content-Security-Policy-Report-Only")
		h.Del("Clear-Site-Data")
	})
}
