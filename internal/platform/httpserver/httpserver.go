package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Per-request deadlines are enforced by the
// timeout middleware; these are transport-level guards against slow or
// idle clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
