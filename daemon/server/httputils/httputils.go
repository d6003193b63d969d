package httputils

import (
	"context"
	"encoding/json"
	"net/http"
)

// APIFunc is an adapter to allow the use of ordinary functions as API
// endpoints. Any function that has the appropriate signature can be
// registered as an API endpoint.
type APIFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error

// WriteJSON writes the value v to the http response stream as json with standard json encoding.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
