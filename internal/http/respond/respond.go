// Package respond holds the JSON response helpers shared by the API handlers.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/counseling-clinic/internal/authz"
)

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Internal writes the generic 500 body. Details belong in the log, not the response.
func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal server error")
}

// Authz writes 401/403 when err came from the authorization gate and reports whether it did.
func Authz(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		Error(w, http.StatusUnauthorized, authz.ErrUnauthenticated.Error())
		return true
	case errors.Is(err, authz.ErrPermissionDenied):
		Error(w, http.StatusForbidden, authz.ErrPermissionDenied.Error())
		return true
	}
	return false
}

// Actor pulls the authenticated caller from the request, writing 401 when absent.
func Actor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		Error(w, http.StatusUnauthorized, authz.ErrUnauthenticated.Error())
		return authz.Actor{}, false
	}
	return actor, true
}

// BadBody writes 413 when err came from an exceeded body limit and 400 with msg otherwise.
func BadBody(w http.ResponseWriter, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	Error(w, http.StatusBadRequest, msg)
}
