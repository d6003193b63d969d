package middleware

import (
	"context"
	"net/http"

	"github.com/containerd/log"

	"github.com/regfront/regfront/daemon/server/httputils"
)

// DebugRequestMiddleware dumps the request to logger
func DebugRequestMiddleware(handler httputils.APIFunc) httputils.APIFunc {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
		log.G(ctx).Debugf("Calling %s %s", r.Method, r.RequestURI)
		return handler(ctx, w, r, vars)
	}
}
