package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestUserAgentFilterBlocks(t *testing.T) {
	called := false
	handler := func(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
		called = true
		return nil
	}
	h := NewUserAgentFilter([]string{"netcraft", "scrapy"})(handler)

	tests := []struct {
		userAgent string
		blocked   bool
	}{
		{userAgent: "Mozilla/5.0 (compatible; NetcraftSurveyAgent/1.0)", blocked: true},
		{userAgent: "Scrapy/2.11 (+https://scrapy.org)", blocked: true},
		{userAgent: "docker/27.0.1 go/go1.22 git-commit/abc kernel/6.8", blocked: false},
		{userAgent: "", blocked: false},
	}

	for _, tc := range tests {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/v2/", nil)
		if tc.userAgent != "" {
			req.Header.Set("User-Agent", tc.userAgent)
		}
		resp := httptest.NewRecorder()

		err := h(context.Background(), resp, req, nil)
		assert.NilError(t, err, tc.userAgent)

		if tc.blocked {
			assert.Check(t, !called, tc.userAgent)
			assert.Check(t, is.Equal(resp.Code, http.StatusForbidden), tc.userAgent)
			assert.Check(t, is.Equal(resp.Header().Get("Content-Type"), "text/html; charset=UTF-8"), tc.userAgent)
			assert.Check(t, is.Equal(resp.Body.String(), blockedPage), tc.userAgent)
		} else {
			assert.Check(t, called, tc.userAgent)
		}
	}
}

func TestUserAgentFilterBlockedBodyIsFixed(t *testing.T) {
	handler := func(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
		t.Fatal("handler must not be called for blocked agents")
		return nil
	}
	h := NewUserAgentFilter([]string{"netcraft"})(handler)

	var bodies []string
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v2/library/nginx/manifests/latest", nil)
		req.Header.Set("User-Agent", "netcraft probe")
		resp := httptest.NewRecorder()
		assert.NilError(t, h(context.Background(), resp, req, nil))
		bodies = append(bodies, resp.Body.String())
	}
	assert.Check(t, is.Equal(bodies[0], bodies[1]))
	assert.Check(t, is.Equal(bodies[1], bodies[2]))
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	handler := func(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
		t.Fatal("handler must not be called for preflight requests")
		return nil
	}

	req := httptest.NewRequest(http.MethodOptions, "/v2/library/nginx/manifests/latest", nil)
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	resp := httptest.NewRecorder()

	err := CORSMiddleware(handler)(context.Background(), resp, req, nil)
	assert.NilError(t, err)

	assert.Check(t, is.Equal(resp.Code, http.StatusNoContent))
	assert.Check(t, is.Equal(resp.Body.Len(), 0))
	hdr := resp.Result().Header
	assert.Check(t, is.Equal(hdr.Get("Access-Control-Allow-Origin"), "*"))
	assert.Check(t, is.Equal(hdr.Get("Access-Control-Allow-Methods"), "GET,POST,PUT,PATCH,TRACE,DELETE,HEAD,OPTIONS"))
	assert.Check(t, is.Equal(hdr.Get("Access-Control-Max-Age"), "1728000"))
}

func TestCORSMiddlewareInjectsHeaders(t *testing.T) {
	handler := func(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	req := httptest.NewRequest(http.MethodGet, "/v2/", nil)
	resp := httptest.NewRecorder()

	err := CORSMiddleware(handler)(context.Background(), resp, req, nil)
	assert.NilError(t, err)

	hdr := resp.Result().Header
	assert.Check(t, is.Equal(hdr.Get("Access-Control-Allow-Origin"), "*"))
	assert.Check(t, is.Equal(hdr.Get("Access-Control-Expose-Headers"), "*"))
}
