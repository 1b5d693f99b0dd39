package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/internal/http/respond"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

// Handler handles HTTP requests for appointments.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}
	view, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view)
}

// Update handles PUT /appointments/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var patch UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}
	view, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

// Delete handles DELETE /appointments/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "appointment deleted"})
}

// Get handles GET /appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

// List handles GET /appointments.
// Query params:
//   - from: RFC3339 lower bound on appointmentDate (optional)
//   - to: RFC3339 exclusive upper bound (optional)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	q, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	views, err := h.service.List(r.Context(), actor, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

// Recent handles GET /appointments/recent.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	views, err := h.service.Recent(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

// ListOwn handles GET /client/appointments.
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	views, err := h.service.ListForClient(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

// Export handles GET /appointments/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	q, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	views, err := h.service.ExportAll(r.Context(), actor, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, views, h.service.Location()); err != nil {
		h.logger.Error("failed to write appointments export", "error", err)
	}
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (ListQuery, bool) {
	var q ListQuery
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid "+p.name+" time, use RFC3339 format")
			return ListQuery{}, false
		}
		*p.dst = &t
	}
	return q, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if respond.Authz(w, err) {
		return
	}
	switch {
	case IsValidation(err):
		respond.Error(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, ErrConflict):
		respond.Error(w, http.StatusConflict, ErrConflict.Error())
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, directory.ErrClientNotFound):
		respond.Error(w, http.StatusNotFound, directory.ErrClientNotFound.Error())
	case errors.Is(err, directory.ErrPersonnelNotFound):
		respond.Error(w, http.StatusNotFound, directory.ErrPersonnelNotFound.Error())
	case errors.Is(err, directory.ErrServiceNotFound):
		respond.Error(w, http.StatusNotFound, directory.ErrServiceNotFound.Error())
	case errors.Is(err, ErrReferenceMissing):
		respond.Error(w, http.StatusNotFound, ErrReferenceMissing.Error())
	default:
		h.logger.Error("appointment request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		respond.Internal(w)
	}
}
