package middleware

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/containerd/log"

	"github.com/regfront/regfront/daemon/server/httputils"
)

// blockedPage is the fixed body returned to denied user agents.
const blockedPage = `<html>
<head><title>403 Forbidden</title></head>
<body>
<center><h1>403 Forbidden</h1></center>
<hr><center>nginx</center>
</body>
</html>
`

// NewUserAgentFilter returns a middleware rejecting requests whose
// User-Agent contains any of the blocked substrings. The substrings must
// already be lowercased; the list is fixed for the process lifetime. The
// check runs before any routing or upstream interaction so denied
// crawlers never incur network cost.
func NewUserAgentFilter(blocked []string) Middleware {
	return func(handler httputils.APIFunc) httputils.APIFunc {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
			ua := strings.ToLower(r.Header.Get("User-Agent"))
			for _, b := range blocked {
				if strings.Contains(ua, b) {
					log.G(ctx).WithFields(log.Fields{
						"user-agent": r.Header.Get("User-Agent"),
						"match":      b,
					}).Debug("rejecting blocked user agent")
					blockedRequests.Inc()
					w.Header().Set("Content-Type", "text/html; charset=UTF-8")
					w.WriteHeader(http.StatusForbidden)
					_, err := io.WriteString(w, blockedPage)
					return err
				}
			}
			return handler(ctx, w, r, vars)
		}
	}
}
