package middleware

import (
	"net/http"

	"github.com/wolfman30/counseling-clinic/internal/http/respond"
)

// Default request body caps.
const (
	DefaultMaxBodyBytes   int64 = 1 << 20
	DefaultMaxUploadBytes int64 = 32 << 20
)

// BodyLimit caps the request body at maxBytes. Reads past the cap fail with
// *http.MaxBytesError; a declared Content-Length above the cap is refused up front.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respond.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
