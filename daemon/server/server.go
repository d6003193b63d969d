package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/containerd/log"
	"github.com/docker/distribution/registry/api/errcode"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/regfront/regfront/daemon/server/httpstatus"
	"github.com/regfront/regfront/daemon/server/httputils"
	"github.com/regfront/regfront/daemon/server/middleware"
	"github.com/regfront/regfront/daemon/server/router"
)

// Server contains instance details for the server.
type Server struct {
	middlewares []middleware.Middleware
	fallback    httputils.APIFunc
	servers     []*httpServer
}

type httpServer struct {
	srv *http.Server
	l   net.Listener
}

// UseMiddleware appends a new middleware to the request chain.
// This needs to be called before the API routes are configured.
func (s *Server) UseMiddleware(m middleware.Middleware) {
	s.middlewares = append(s.middlewares, m)
}

// UseFallback sets the handler that serves every request no explicit
// route matched. It runs through the same middleware chain as routed
// handlers.
func (s *Server) UseFallback(f httputils.APIFunc) {
	s.fallback = f
}

// Accept sets a listener to accept connections on the given address.
func (s *Server) Accept(addr string, listeners ...net.Listener) {
	for _, listener := range listeners {
		s.servers = append(s.servers, &httpServer{
			srv: &http.Server{
				Addr:              addr,
				ReadHeaderTimeout: 5 * time.Minute,
			},
			l: listener,
		})
	}
}

// ServeAPI installs the handler on every accepted listener and serves
// until the first listener fails. A graceful Shutdown makes it return
// nil.
func (s *Server) ServeAPI(ctx context.Context, handler http.Handler) error {
	var g errgroup.Group
	for _, srv := range s.servers {
		srv.srv.Handler = handler
		g.Go(func() error {
			log.G(ctx).Infof("API listen on %s", srv.l.Addr())
			if err := srv.srv.Serve(srv.l); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Shutdown stops all servers, waiting up to timeout for in-flight
// requests to drain.
func (s *Server) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, srv := range s.servers {
		if err := srv.srv.Shutdown(ctx); err != nil {
			log.G(ctx).WithError(err).Error("error stopping API server")
		}
	}
}

func (s *Server) makeHTTPHandler(handler httputils.APIFunc, operation string) http.HandlerFunc {
	return otelhttp.NewHandler(otelhttp.WithRouteTag(operation, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		handlerFunc := s.handlerWithGlobalMiddlewares(handler)

		vars := mux.Vars(r)
		if vars == nil {
			vars = make(map[string]string)
		}

		if err := handlerFunc(ctx, w, r, vars); err != nil {
			statusCode := httpstatus.FromError(err)
			if statusCode >= 500 {
				log.G(ctx).Errorf("Handler for %s %s returned error: %v", r.Method, r.URL.Path, err)
			}
			makeErrorResponse(w, statusCode, err)
		}
	})), operation).ServeHTTP
}

// makeErrorResponse writes err to the response in the JSON envelope
// registry clients expect. Headers already set on w, such as the CORS
// pair from the middleware chain, are preserved.
func makeErrorResponse(w http.ResponseWriter, statusCode int, err error) {
	var errs errcode.Errors
	if coded, ok := err.(errcode.Error); ok {
		errs = errcode.Errors{coded}
	} else {
		errs = errcode.Errors{errcode.ErrorCodeUnknown.WithMessage(err.Error())}
	}
	_ = httputils.WriteJSON(w, statusCode, errs)
}

// CreateMux returns a new mux with all the routers registered.
func (s *Server) CreateMux(routers ...router.Router) *mux.Router {
	m := mux.NewRouter()

	log.G(context.TODO()).Debug("Registering routers")
	for _, apiRouter := range routers {
		for _, r := range apiRouter.Routes() {
			f := s.makeHTTPHandler(r.Handler(), r.Method()+" "+r.Path())
			log.G(context.TODO()).Debugf("Registering %s, %s", r.Method(), r.Path())
			m.Path(r.Path()).Methods(r.Method()).Handler(f)
		}
	}

	if s.fallback != nil {
		f := s.makeHTTPHandler(s.fallback, "fallback")
		m.NotFoundHandler = f
		m.MethodNotAllowedHandler = f
	}

	return m
}

// handlerWithGlobalMiddlewares wraps the handler function for a request with
// the server's global middlewares. The ordering of the middlewares is backwards,
// meaning that the first in the list will be evaluated last.
func (s *Server) handlerWithGlobalMiddlewares(handler httputils.APIFunc) httputils.APIFunc {
	next := handler

	for _, m := range s.middlewares {
		next = m(next)
	}

	if log.GetLevel() == log.DebugLevel {
		next = middleware.DebugRequestMiddleware(next)
	}

	return next
}
