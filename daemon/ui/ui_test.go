package ui

import (
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestServeSearchPage(t *testing.T) {
	w := httptest.NewRecorder()
	assert.NilError(t, ServeSearchPage(w))
	assert.Check(t, is.Equal(w.Header().Get("Content-Type"), "text/html; charset=UTF-8"))
	assert.Check(t, is.Contains(w.Body.String(), "/v1/search?q="))
}

func TestServePlaceholder(t *testing.T) {
	w := httptest.NewRecorder()
	assert.NilError(t, ServePlaceholder(w))
	assert.Check(t, is.Equal(w.Header().Get("Content-Type"), "text/html; charset=UTF-8"))
	assert.Check(t, is.Contains(w.Body.String(), "Welcome to nginx!"))
}
