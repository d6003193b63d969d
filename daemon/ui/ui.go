// Package ui serves the browser-facing pages of the registry front.
package ui

import (
	"io"
	"net/http"
)

// ServeSearchPage writes the built-in image search page. Its script
// talks back to this daemon's search endpoint, so the page works on
// any deployment without configuration.
func ServeSearchPage(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	_, err := io.WriteString(w, searchPage)
	return err
}

// ServePlaceholder writes the stock web-server welcome page that
// disguised deployments present instead of the search surface.
func ServePlaceholder(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	_, err := io.WriteString(w, placeholderPage)
	return err
}
