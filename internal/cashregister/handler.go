package cashregister

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/counseling-clinic/internal/appointments"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/internal/http/respond"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

// Handler serves the cash register endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a cash register handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// List handles GET /transactions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	views, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

// ListOwn handles GET /client/transactions.
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	views, err := h.service.ListForClient(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

// Create handles POST /transactions.
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
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view)
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
	case errors.Is(err, directory.ErrClientNotFound):
		respond.Error(w, http.StatusNotFound, directory.ErrClientNotFound.Error())
	case errors.Is(err, appointments.ErrNotFound):
		respond.Error(w, http.StatusNotFound, appointments.ErrNotFound.Error())
	default:
		h.logger.Error("transaction request failed", "error", err)
		respond.Internal(w)
	}
}
