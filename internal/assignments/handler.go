package assignments

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/counseling-clinic/internal/attachments"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/internal/http/respond"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

// maxUploadMemory bounds the in-memory part of a multipart form; the rest spills to disk.
const maxUploadMemory = 32 << 20

// Handler handles HTTP requests for assignments.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new assignments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// List handles GET /assignments?clientId=&personnelId=&status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := Filter{ClientID: q.Get("clientId"), PersonnelID: q.Get("personnelId")}
	if raw := q.Get("status"); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			respond.Error(w, http.StatusBadRequest, ErrInvalidStatus.Error())
			return
		}
		f.Status = status
	}
	views, err := h.service.List(r.Context(), actor, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

// Create handles POST /assignments with a JSON or multipart body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var (
		req     CreateRequest
		uploads []Upload
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			respond.BadBody(w, err, "invalid multipart body")
			return
		}
		defer r.MultipartForm.RemoveAll()
		form := r.MultipartForm
		req = CreateRequest{
			ClientID:    formValue(form, "clientId"),
			PersonnelID: formValue(form, "personnelId"),
			Title:       formValue(form, "title"),
			Description: optionalFormValue(form, "description"),
			Type:        formValue(form, "type"),
			DueDate:     optionalFormValue(form, "dueDate"),
		}
		var err error
		if uploads, err = formUploads(form); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid file upload")
			return
		}
		defer closeUploads(uploads)
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}

	view, err := h.service.Create(r.Context(), actor, req, uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view)
}

// Update handles PATCH /assignments/{id} with a JSON or multipart body.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var (
		patch   UpdateRequest
		uploads []Upload
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			respond.BadBody(w, err, "invalid multipart body")
			return
		}
		defer r.MultipartForm.RemoveAll()
		form := r.MultipartForm
		patch = UpdateRequest{
			Status:         optionalFormValue(form, "status"),
			Notes:          optionalFormValue(form, "notes"),
			ClientFeedback: optionalFormValue(form, "clientFeedback"),
		}
		if patch.Status != nil && *patch.Status == "" {
			patch.Status = nil
		}
		var err error
		if uploads, err = formUploads(form); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid file upload")
			return
		}
		defer closeUploads(uploads)
	} else if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond.BadBody(w, err, "invalid request body")
		return
	}

	view, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), patch, uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

// Attach handles POST /assignments/{id}/attachment.
func (h *Handler) Attach(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respond.BadBody(w, err, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()
	uploads, err := formUploads(r.MultipartForm)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid file upload")
		return
	}
	defer closeUploads(uploads)
	if len(uploads) == 0 {
		respond.Error(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	view, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), UpdateRequest{}, uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

// Delete handles DELETE /assignments/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Download handles GET /assignments/download?path=. The body is the presigned URL.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	url, err := h.service.DownloadURL(r.Context(), actor, r.URL.Query().Get("path"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(url))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if respond.Authz(w, err) {
		return
	}
	switch {
	case IsValidation(err):
		respond.Error(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, attachments.ErrInvalidKey):
		respond.Error(w, http.StatusBadRequest, attachments.ErrInvalidKey.Error())
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, directory.ErrClientNotFound):
		respond.Error(w, http.StatusNotFound, directory.ErrClientNotFound.Error())
	case errors.Is(err, directory.ErrPersonnelNotFound):
		respond.Error(w, http.StatusNotFound, directory.ErrPersonnelNotFound.Error())
	case errors.Is(err, attachments.ErrDisabled):
		respond.Error(w, http.StatusServiceUnavailable, attachments.ErrDisabled.Error())
	default:
		h.logger.Error("assignment request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		respond.Internal(w)
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func optionalFormValue(form *multipart.Form, key string) *string {
	v, ok := form.Value[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[0]
	return &s
}

// formUploads opens every non-empty part under "files".
func formUploads(form *multipart.Form) ([]Upload, error) {
	var out []Upload
	for _, fh := range form.File["files"] {
		if fh.Size == 0 {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			closeUploads(out)
			return nil, err
		}
		out = append(out, Upload{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Body: f})
	}
	return out, nil
}

func closeUploads(uploads []Upload) {
	for _, u := range uploads {
		if c, ok := u.Body.(multipart.File); ok {
			_ = c.Close()
		}
	}
}
