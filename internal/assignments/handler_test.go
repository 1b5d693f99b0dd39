package assignments

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

func newTestRouter(f *fixture) http.Handler {
	h := NewHandler(f.svc, logging.Discard())
	r := chi.NewRouter()
	r.Get("/assignments", h.List)
	r.Post("/assignments", h.Create)
	r.Get("/assignments/download", h.Download)
	r.Patch("/assignments/{id}", h.Update)
	r.Delete("/assignments/{id}", h.Delete)
	r.Post("/assignments/{id}/attachment", h.Attach)
	return r
}

func serve(router http.Handler, actor authz.Actor, req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(authz.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateMultipart(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("clientId", "c1"))
	require.NoError(t, mw.WriteField("title", "Nefes egzersizi"))
	require.NoError(t, mw.WriteField("type", "EXERCISE"))
	part, err := mw.CreateFormFile("files", "nefes.mp3")
	require.NoError(t, err)
	_, _ = part.Write([]byte("audio"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assignments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(router, psychOne, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var v View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, "p1", v.PersonnelID)
	require.Len(t, v.Attachments, 1)
	assert.Equal(t, "nefes.mp3", v.Attachments[0].Name)
}

func TestHandlerCreateJSONErrors(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	rec := serve(router, admin, httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(`{"clientId":"c1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required fields")

	rec = serve(router, clientOne, httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, admin, httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(`{"clientId":"c1","personnelId":"p9","title":"x","type":"BOOK"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerListAndPatch(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	a := f.seed(t, Assignment{ClientID: "c1", PersonnelID: "p1", Title: "x", Type: TypeBook, Status: StatusPending})

	rec := serve(router, clientOne, httptest.NewRequest(http.MethodGet, "/assignments?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, clientOne, httptest.NewRequest(http.MethodGet, "/assignments", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)

	rec = serve(router, clientOne, httptest.NewRequest(http.MethodPatch, "/assignments/"+a.ID, strings.NewReader(`{"status":"IN_PROGRESS","notes":"başladım"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"IN_PROGRESS"`)

	rec = serve(router, clientOne, httptest.NewRequest(http.MethodPatch, "/assignments/"+a.ID, strings.NewReader(`{"title":"hack"}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, admin, httptest.NewRequest(http.MethodPatch, "/assignments/nope", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerAttachRequiresFiles(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	a := f.seed(t, Assignment{ClientID: "c1", PersonnelID: "p1", Title: "x", Type: TypeBook, Status: StatusPending})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "empty"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/assignments/"+a.ID+"/attachment", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(router, clientOne, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body.Reset()
	mw = multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "cevap.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("cevap"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/assignments/"+a.ID+"/attachment", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = serve(router, clientOne, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var v View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	require.Len(t, v.Submissions, 1)
}

func TestHandlerDownload(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	rec := serve(router, clientOne, httptest.NewRequest(http.MethodGet, "/assignments/download?path=assignments/1-a.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "https://signed.example/assignments/1-a.pdf", rec.Body.String())

	rec = serve(router, clientOne, httptest.NewRequest(http.MethodGet, "/assignments/download", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing path parameter")
}

func TestHandlerDelete(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	a := f.seed(t, Assignment{ClientID: "c1", PersonnelID: "p1", Title: "x", Type: TypeBook, Status: StatusPending})

	rec := serve(router, admin, httptest.NewRequest(http.MethodDelete, "/assignments/"+a.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}
