package packages

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/internal/http/respond"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

// Handler serves the package endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a package handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// List handles GET /packages.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	out, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if out == nil {
		out = []*Package{}
	}
	respond.JSON(w, http.StatusOK, out)
}

// Get handles GET /packages/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// Create handles POST /packages.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}
	p, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, p)
}

// Update handles PUT /packages/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}
	p, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// Delete handles DELETE /packages/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if respond.Authz(w, err) {
		return
	}
	switch {
	case IsValidation(err):
		for _, target := range validationErrors {
			if errors.Is(err, target) {
				respond.Error(w, http.StatusBadRequest, target.Error())
				return
			}
		}
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, directory.ErrServiceNotFound):
		respond.Error(w, http.StatusNotFound, directory.ErrServiceNotFound.Error())
	default:
		h.logger.Error("package request failed", "error", err)
		respond.Internal(w)
	}
}
