package directory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/counseling-clinic/internal/http/respond"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

// Handler serves the client, staff and catalog endpoints.
type Handler struct {
	manager *Manager
	logger  *logging.Logger
}

// NewHandler creates a directory handler.
func NewHandler(manager *Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

// ListServices handles GET /services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	services, err := h.manager.ListServices(r.Context(), actor)
	if err != nil {
		h.writeError(w, "list services", err)
		return
	}
	if services == nil {
		services = []*Service{}
	}
	respond.JSON(w, http.StatusOK, services)
}

// ListPersonnel handles GET /personnel.
func (h *Handler) ListPersonnel(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	personnel, err := h.manager.ListPersonnel(r.Context(), actor)
	if err != nil {
		h.writeError(w, "list personnel", err)
		return
	}
	if personnel == nil {
		personnel = []*Personnel{}
	}
	respond.JSON(w, http.StatusOK, personnel)
}

// ListClients handles GET /clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	clients, err := h.manager.ListClients(r.Context(), actor)
	if err != nil {
		h.writeError(w, "list clients", err)
		return
	}
	if clients == nil {
		clients = []*Client{}
	}
	respond.JSON(w, http.StatusOK, clients)
}

// GetClient handles GET /clients/{id}.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	c, err := h.manager.GetClient(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get client", err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

// CreateClient handles POST /clients.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var in ClientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}
	c, err := h.manager.CreateClient(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, "create client", err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

// UpdateClient handles PUT /clients/{id}.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var in ClientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}
	c, err := h.manager.UpdateClient(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, "update client", err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

// DeleteClient handles DELETE /clients/{id}.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	if err := h.manager.DeleteClient(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete client", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CreatePersonnel handles POST /personnel.
func (h *Handler) CreatePersonnel(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var in PersonnelInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}
	p, err := h.manager.CreatePersonnel(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, "create personnel", err)
		return
	}
	respond.JSON(w, http.StatusCreated, p)
}

// CreateService handles POST /services.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var in ServiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}
	s, err := h.manager.CreateService(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, "create service", err)
		return
	}
	respond.JSON(w, http.StatusCreated, s)
}

// UpdateService handles PUT /services/{id}.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var in ServiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}
	s, err := h.manager.UpdateService(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, "update service", err)
		return
	}
	respond.JSON(w, http.StatusOK, s)
}

// DeleteService handles DELETE /services/{id}.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	if err := h.manager.DeleteService(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete service", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
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
	case errors.Is(err, ErrClientNotFound):
		respond.Error(w, http.StatusNotFound, ErrClientNotFound.Error())
	case errors.Is(err, ErrPersonnelNotFound):
		respond.Error(w, http.StatusNotFound, ErrPersonnelNotFound.Error())
	case errors.Is(err, ErrServiceNotFound):
		respond.Error(w, http.StatusNotFound, ErrServiceNotFound.Error())
	case errors.Is(err, ErrEmailTaken):
		respond.Error(w, http.StatusConflict, ErrEmailTaken.Error())
	case errors.Is(err, ErrInUse):
		respond.Error(w, http.StatusConflict, ErrInUse.Error())
	default:
		h.logger.Error("directory request failed", "op", op, "error", err)
		respond.Internal(w)
	}
}
