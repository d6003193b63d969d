package registry

import "github.com/regfront/regfront/daemon/server/router"

// registryRouter is a router to talk with the registry proxy backend.
type registryRouter struct {
	backend Backend
	routes  []router.Route
}

// NewRouter initializes a new registry router.
func NewRouter(b Backend) router.Router {
	r := &registryRouter{backend: b}
	r.initRoutes()
	return r
}

// Routes returns the available routes to the registry controller.
func (rr *registryRouter) Routes() []router.Route {
	return rr.routes
}

// initRoutes initializes the routes in the registry router. Anything not
// matched here is picked up by the server's fallback handler, which
// forwards it through the same proxy pipeline.
func (rr *registryRouter) initRoutes() {
	rr.routes = []router.Route{
		// GET
		router.NewGetRoute("/", rr.getRoot),
		router.NewGetRoute("/token", rr.getToken),
		router.NewGetRoute("/v1/search", rr.getSearch),
		router.NewGetRoute("/v1/repositories/{path:.*}", rr.getSearch),
		router.NewGetRoute("/v2", rr.getRegistry),
		router.NewGetRoute("/v2/{path:.*}", rr.getRegistry),
		// HEAD
		router.NewHeadRoute("/v2", rr.getRegistry),
		router.NewHeadRoute("/v2/{path:.*}", rr.getRegistry),
		// POST
		router.NewPostRoute("/token", rr.getToken),
	}
}
