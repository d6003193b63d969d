package registry

import (
	"context"
	"net/http"
)

func (rr *registryRouter) getRegistry(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	return rr.backend.ServeRegistry(ctx, w, r)
}

func (rr *registryRouter) getToken(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	return rr.backend.ServeToken(ctx, w, r)
}

func (rr *registryRouter) getSearch(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	return rr.backend.ServeSearch(ctx, w, r)
}

func (rr *registryRouter) getRoot(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	return rr.backend.ServeRoot(ctx, w, r)
}
