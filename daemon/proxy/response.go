package proxy

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/containerd/log"
	"github.com/docker/distribution/manifest/schema2"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// hopHeaders are hop-by-hop headers that must not survive the relay to
// the client. See RFC 7230, section 6.1.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
}

// rewriteChallenge repoints Www-Authenticate challenges at this proxy
// so clients exchange their tokens through us instead of going to the
// upstream token service directly.
func rewriteChallenge(h http.Header, authBase, proxyOrigin string) {
	if challenge := h.Get("Www-Authenticate"); challenge != "" {
		h.Set("Www-Authenticate", strings.ReplaceAll(challenge, authBase, proxyOrigin))
	}
}

// adjustAccept makes sure outbound manifest requests advertise OCI
// image support. Old clients that only ask for Docker schema 2 would
// otherwise be refused multi-arch images by some upstreams.
func adjustAccept(h http.Header) {
	accept := h.Get("Accept")
	if accept == "" {
		accept = schema2.MediaTypeManifest + ", " + ocispec.MediaTypeImageIndex + ", " + ocispec.MediaTypeImageManifest
	} else if !strings.Contains(accept, ocispec.MediaTypeImageIndex) {
		accept += ", " + ocispec.MediaTypeImageIndex
	}
	h.Set("Accept", accept)
}

// writeResponse relays an upstream response to the client: headers
// minus the hop-by-hop set, then the CORS pair every response from this
// daemon carries, then any caller mutations, then status and body.
func (e *Engine) writeResponse(ctx context.Context, w http.ResponseWriter, resp *http.Response, mutate ...func(http.Header)) error {
	copyHeader(w.Header(), resp.Header)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", "*")
	for _, m := range mutate {
		m(w.Header())
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// The status line is already on the wire; all that is left is
		// to log that the client got a truncated body.
		log.G(ctx).WithError(err).Debug("Relaying upstream response body interrupted")
	}
	return nil
}
