// Package httpmiddleware contains the HTTP middleware chain shared by the
// API server.
package httpmiddleware

import (
	"encoding/json"
	"net/http"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type errorDetail struct {
	Code    string `json:"code"`
	HTTP    int    `json:"http"`
	Message string `json:"message"`
}

// writeError writes the API error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error errorDetail `json:"error"`
	}{errorDetail{Code: code, HTTP: status, Message: message}})
}
