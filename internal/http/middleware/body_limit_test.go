package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/counseling-clinic/internal/http/respond"
)

func decodeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respond.BadBody(w, err, "invalid request body")
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestBodyLimit(t *testing.T) {
	small := `{"notes":"ok"}`
	large := `{"notes":"` + strings.Repeat("x", 128) + `"}`

	tests := []struct {
		name       string
		body       string
		hideLength bool
		wantStatus int
	}{
		{name: "under the cap", body: small, wantStatus: http.StatusOK},
		{name: "declared length over the cap", body: large, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "streamed body over the cap", body: large, hideLength: true, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "malformed body under the cap", body: `{"notes":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reader io.Reader = strings.NewReader(tt.body)
			if tt.hideLength {
				reader = io.MultiReader(reader)
			}
			req := httptest.NewRequest(http.MethodPost, "/appointments", reader)
			if tt.hideLength {
				req.ContentLength = -1
			}
			rec := httptest.NewRecorder()
			BodyLimit(64)(decodeHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestBodyLimitDefaultsWhenNonPositive(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(`{"a":1}`))
	req.ContentLength = DefaultMaxBodyBytes + 1
	rec := httptest.NewRecorder()
	BodyLimit(0)(decodeHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body too large")
}
