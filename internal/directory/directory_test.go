package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

func strPtr(s string) *string { return &s }

func seededRepo() *InMemoryRepository {
	repo := NewInMemoryRepository()
	repo.PutClient(Client{ID: "c1", UserID: "u-client", FirstName: "Fatma", LastName: "Özkan", Phone: strPtr("+90 532 555 1234"), IsActive: true})
	repo.PutPersonnel(Personnel{ID: "p1", UserID: "u-psy", FirstName: "Ayşe", LastName: "Yılmaz", Role: "PSYCHOLOGIST", IsActive: true})
	repo.PutPersonnel(Personnel{ID: "p2", FirstName: "Zeynep", LastName: "Kaya", Role: "COORDINATOR", IsActive: true})
	repo.PutPersonnel(Personnel{ID: "p3", FirstName: "Ali", LastName: "Demir", Role: "ADMINISTRATOR", IsActive: true})
	repo.PutService(Service{ID: "s2", Name: "Family Therapy", Duration: 80, IsActive: true})
	repo.PutService(Service{ID: "s1", Name: "Bireysel Terapi", Duration: 50, IsActive: true})
	repo.PutService(Service{ID: "s3", Name: "Retired", Duration: 50, IsActive: false})
	return repo
}

func TestInMemoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()

	c, err := repo.ClientByUserID(ctx, "u-client")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "Fatma Özkan", c.FullName())
	assert.True(t, c.HasPhone())

	_, err = repo.Client(ctx, "missing")
	assert.ErrorIs(t, err, ErrClientNotFound)
	assert.True(t, IsNotFound(err))

	_, err = repo.ClientByUserID(ctx, "")
	assert.ErrorIs(t, err, ErrClientNotFound)

	p, err := repo.PersonnelByUserID(ctx, "u-psy")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	services, err := repo.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Bireysel Terapi", services[0].Name)

	personnel, err := repo.ListPersonnel(ctx)
	require.NoError(t, err)
	require.Len(t, personnel, 2)
	assert.Equal(t, "Ayşe", personnel[0].FirstName)
	assert.Equal(t, "Zeynep", personnel[1].FirstName)
}

func TestPostgresRepositoryClientNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM clients WHERE id = \$1`).
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "first_name", "last_name", "phone", "email", "photo", "is_active"}))

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.Client(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrClientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryListServices(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	price := 1500.0
	mock.ExpectQuery(`SELECT .+ FROM services WHERE is_active ORDER BY name ASC`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "duration", "price", "service_type", "is_active"}).
			AddRow("s1", "Bireysel Terapi", (*string)(nil), 50, &price, "INDIVIDUAL", true).
			AddRow("s2", "Çift Terapisi", strPtr("couples"), 80, (*float64)(nil), "COUPLE", true))

	repo := NewPostgresRepositoryWithDB(mock)
	services, err := repo.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, 50, services[0].Duration)
	require.NotNil(t, services[0].Price)
	assert.Equal(t, 1500.0, *services[0].Price)
	assert.Nil(t, services[1].Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryPersonnel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM personnel WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "first_name", "last_name", "phone", "specialization", "role", "is_active"}).
			AddRow("p1", "u-psy", "Ayşe", "Yılmaz", (*string)(nil), strPtr("CBT"), "PSYCHOLOGIST", true))

	repo := NewPostgresRepositoryWithDB(mock)
	p, err := repo.Personnel(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ayşe Yılmaz", p.FullName())
	assert.Equal(t, "CBT", *p.Specialization)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type countingRepo struct {
	Store
	clientCalls int
}

func (c *countingRepo) Client(ctx context.Context, id string) (*Client, error) {
	c.clientCalls++
	return c.Store.Client(ctx, id)
}

func TestCachedRepositoryReadsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	backing := &countingRepo{Store: seededRepo()}
	cache := NewCachedRepository(backing, rdb, time.Minute, logging.Discard())
	ctx := context.Background()

	first, err := cache.Client(ctx, "c1")
	require.NoError(t, err)
	second, err := cache.Client(ctx, "c1")
	require.NoError(t, err)

	assert.Equal(t, 1, backing.clientCalls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("clinic:directory:client:c1"))

	mr.FastForward(2 * time.Minute)
	_, err = cache.Client(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.clientCalls)

	require.NoError(t, cache.Invalidate(ctx, "client", "c1"))
	assert.False(t, mr.Exists("clinic:directory:client:c1"))
}

func TestCachedRepositoryDoesNotCacheMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cache := NewCachedRepository(seededRepo(), rdb, 0, logging.Discard())
	_, err := cache.Service(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.Empty(t, mr.Keys())
}

func TestCachedRepositoryFallsBackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	cache := NewCachedRepository(seededRepo(), rdb, time.Minute, logging.Discard())
	p, err := cache.Personnel(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestHandlerListPersonnelRequiresStaff(t *testing.T) {
	h := NewHandler(NewManager(seededRepo(), logging.Discard()), logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/personnel", nil)
	req = req.WithContext(authz.WithActor(req.Context(), authz.Actor{UserID: "u-client", Role: authz.RoleClient}))
	rec := httptest.NewRecorder()
	h.ListPersonnel(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/personnel", nil)
	req = req.WithContext(authz.WithActor(req.Context(), authz.Actor{UserID: "u-admin", Role: authz.RoleAdministrator}))
	rec = httptest.NewRecorder()
	h.ListPersonnel(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body []Personnel
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body, 2)
}

func TestHandlerListServicesNeedsActor(t *testing.T) {
	h := NewHandler(NewManager(seededRepo(), nil), nil)
	rec := httptest.NewRecorder()
	h.ListServices(rec, httptest.NewRequest(http.MethodGet, "/services", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

var (
	admin        = authz.Actor{UserID: "u-admin", Role: authz.RoleAdministrator}
	coordinator  = authz.Actor{UserID: "u-coord", Role: authz.RoleCoordinator}
	psychologist = authz.Actor{UserID: "u-psy", Role: authz.RolePsychologist}
	clientActor  = authz.Actor{UserID: "u-client", Role: authz.RoleClient}
)

func floatPtr(f float64) *float64 { return &f }

func TestInMemoryClientWrites(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()

	created, err := repo.CreateClient(ctx, &Client{FirstName: "Mehmet", LastName: "Aydın", Email: strPtr("mehmet@example.com"), IsActive: true})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = repo.CreateClient(ctx, &Client{FirstName: "M", LastName: "A", Email: strPtr("MEHMET@example.com")})
	assert.ErrorIs(t, err, ErrEmailTaken)

	created.LastName = "Aydin"
	updated, err := repo.UpdateClient(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Aydin", updated.LastName)

	_, err = repo.UpdateClient(ctx, &Client{ID: "missing"})
	assert.ErrorIs(t, err, ErrClientNotFound)

	clients, err := repo.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Aydin", clients[0].LastName)

	require.NoError(t, repo.DeleteClient(ctx, created.ID))
	assert.ErrorIs(t, repo.DeleteClient(ctx, created.ID), ErrClientNotFound)
}

func TestManagerClientLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(seededRepo(), logging.Discard())

	_, err := m.CreateClient(ctx, psychologist, ClientInput{FirstName: "A", LastName: "B", Email: "a@b.c"})
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = m.CreateClient(ctx, coordinator, ClientInput{FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, ErrMissingFields)

	c, err := m.CreateClient(ctx, coordinator, ClientInput{FirstName: " Elif ", LastName: "Şahin", Email: " Elif@Example.com ", Phone: strPtr("  ")})
	require.NoError(t, err)
	assert.Equal(t, "Elif", c.FirstName)
	require.NotNil(t, c.Email)
	assert.Equal(t, "elif@example.com", *c.Email)
	assert.Nil(t, c.Phone)
	assert.True(t, c.IsActive)

	inactive := false
	updated, err := m.UpdateClient(ctx, coordinator, c.ID, ClientInput{FirstName: "Elif", LastName: "Şahin Kaya", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Şahin Kaya", updated.LastName)
	assert.Equal(t, "elif@example.com", *updated.Email)
	assert.False(t, updated.IsActive)

	_, err = m.UpdateClient(ctx, coordinator, "missing", ClientInput{FirstName: "x", LastName: "y"})
	assert.ErrorIs(t, err, ErrClientNotFound)

	assert.ErrorIs(t, m.DeleteClient(ctx, coordinator, c.ID), authz.ErrPermissionDenied)
	require.NoError(t, m.DeleteClient(ctx, admin, c.ID))
	_, err = m.GetClient(ctx, admin, c.ID)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestManagerGetClientOwnership(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	repo.PutClient(Client{ID: "c2", UserID: "u-other", FirstName: "Can", LastName: "Er", IsActive: true})
	m := NewManager(repo, logging.Discard())

	c, err := m.GetClient(ctx, clientActor, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)

	_, err = m.GetClient(ctx, clientActor, "c2")
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = m.ListClients(ctx, clientActor)
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)
}

func TestManagerCreatePersonnel(t *testing.T) {
	ctx := context.Background()
	m := NewManager(seededRepo(), logging.Discard())

	_, err := m.CreatePersonnel(ctx, coordinator, PersonnelInput{FirstName: "Deniz", LastName: "Ak", Role: "PSYCHOLOGIST"})
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = m.CreatePersonnel(ctx, admin, PersonnelInput{FirstName: "Deniz", LastName: "Ak", Role: "CLIENT"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = m.CreatePersonnel(ctx, admin, PersonnelInput{FirstName: "Deniz", Role: "PSYCHOLOGIST"})
	assert.ErrorIs(t, err, ErrMissingFields)

	p, err := m.CreatePersonnel(ctx, admin, PersonnelInput{FirstName: "Deniz", LastName: "Ak", Role: "psychologist", Specialization: strPtr("EMDR")})
	require.NoError(t, err)
	assert.Equal(t, "PSYCHOLOGIST", p.Role)
	assert.True(t, p.IsActive)

	listed, err := m.ListPersonnel(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestManagerServiceRules(t *testing.T) {
	ctx := context.Background()
	m := NewManager(seededRepo(), logging.Discard())

	tests := []struct {
		name string
		in   ServiceInput
		want error
	}{
		{"missing name", ServiceInput{Duration: 50, Price: floatPtr(100), ServiceType: "INDIVIDUAL"}, ErrMissingFields},
		{"missing type", ServiceInput{Name: "x", Duration: 50, Price: floatPtr(100)}, ErrMissingFields},
		{"zero duration", ServiceInput{Name: "x", Price: floatPtr(100), ServiceType: "INDIVIDUAL"}, ErrInvalidDuration},
		{"over a day", ServiceInput{Name: "x", Duration: MaxServiceMinutes + 1, Price: floatPtr(100), ServiceType: "INDIVIDUAL"}, ErrInvalidDuration},
		{"no price", ServiceInput{Name: "x", Duration: 50, ServiceType: "INDIVIDUAL"}, ErrInvalidPrice},
		{"negative price", ServiceInput{Name: "x", Duration: 50, Price: floatPtr(-1), ServiceType: "INDIVIDUAL"}, ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateService(ctx, admin, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := m.CreateService(ctx, coordinator, ServiceInput{Name: "x", Duration: 50, Price: floatPtr(1), ServiceType: "GROUP"})
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	s, err := m.CreateService(ctx, admin, ServiceInput{Name: "Grup Terapisi", Duration: 90, Price: floatPtr(800), ServiceType: "group"})
	require.NoError(t, err)
	assert.Equal(t, "GROUP", s.ServiceType)
	assert.True(t, s.IsActive)

	updated, err := m.UpdateService(ctx, admin, s.ID, ServiceInput{Name: "Grup Terapisi", Duration: 120, Price: floatPtr(900), ServiceType: "GROUP"})
	require.NoError(t, err)
	assert.Equal(t, 120, updated.Duration)
	assert.True(t, updated.IsActive)

	_, err = m.UpdateService(ctx, admin, "missing", ServiceInput{Name: "x", Duration: 50, Price: floatPtr(1), ServiceType: "GROUP"})
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestManagerDeleteRespectsReferences(t *testing.T) {
	ctx := context.Background()
	var checked []string
	inUse := func(_ context.Context, kind Kind, id string) (bool, error) {
		checked = append(checked, string(kind)+":"+id)
		return id == "s1" || id == "c1", nil
	}
	m := NewManager(seededRepo(), logging.Discard(), inUse)

	assert.ErrorIs(t, m.DeleteService(ctx, admin, "s1"), ErrInUse)
	assert.ErrorIs(t, m.DeleteClient(ctx, admin, "c1"), ErrInUse)
	require.NoError(t, m.DeleteService(ctx, admin, "s2"))
	assert.ErrorIs(t, m.DeleteService(ctx, admin, "s2"), ErrServiceNotFound)
	assert.Equal(t, []string{"service:s1", "client:c1", "service:s2"}, checked)

	failing := NewManager(seededRepo(), logging.Discard(), func(context.Context, Kind, string) (bool, error) {
		return false, errors.New("boom")
	})
	err := failing.DeleteService(ctx, admin, "s3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInUse)
}

func TestCachedRepositoryWritesInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cache := NewCachedRepository(seededRepo(), rdb, time.Minute, logging.Discard())
	ctx := context.Background()

	_, err := cache.Client(ctx, "c1")
	require.NoError(t, err)
	_, err = cache.Service(ctx, "s1")
	require.NoError(t, err)
	require.True(t, mr.Exists("clinic:directory:client:c1"))
	require.True(t, mr.Exists("clinic:directory:service:s1"))

	m := NewManager(cache, logging.Discard())
	_, err = m.UpdateClient(ctx, coordinator, "c1", ClientInput{FirstName: "Fatma", LastName: "Öztürk"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("clinic:directory:client:c1"))

	c, err := cache.Client(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Öztürk", c.LastName)

	require.NoError(t, m.DeleteService(ctx, admin, "s1"))
	assert.False(t, mr.Exists("clinic:directory:service:s1"))
	_, err = cache.Service(ctx, "s1")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestPostgresRepositoryCreateClientDuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO clients`).
		WithArgs(pgxmock.AnyArg(), "", "Elif", "Şahin", (*string)(nil), strPtr("elif@example.com"), (*string)(nil), true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: clientEmailIndex})

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.CreateClient(context.Background(), &Client{FirstName: "Elif", LastName: "Şahin", Email: strPtr("elif@example.com"), IsActive: true})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryServiceWrites(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE services SET`).
		WithArgs("missing", "x", (*string)(nil), 50, floatPtr(100), "GROUP", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`DELETE FROM services WHERE id = \$1`).
		WithArgs("s1").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectExec(`DELETE FROM services WHERE id = \$1`).
		WithArgs("s2").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewPostgresRepositoryWithDB(mock)
	ctx := context.Background()
	_, err = repo.UpdateService(ctx, &Service{ID: "missing", Name: "x", Duration: 50, Price: floatPtr(100), ServiceType: "GROUP", IsActive: true})
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.ErrorIs(t, repo.DeleteService(ctx, "s1"), ErrInUse)
	assert.NoError(t, repo.DeleteService(ctx, "s2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newManagementRouter(m *Manager) http.Handler {
	h := NewHandler(m, logging.Discard())
	r := chi.NewRouter()
	r.Get("/clients", h.ListClients)
	r.Post("/clients", h.CreateClient)
	r.Get("/clients/{id}", h.GetClient)
	r.Put("/clients/{id}", h.UpdateClient)
	r.Delete("/clients/{id}", h.DeleteClient)
	r.Post("/personnel", h.CreatePersonnel)
	r.Post("/services", h.CreateService)
	r.Put("/services/{id}", h.UpdateService)
	r.Delete("/services/{id}", h.DeleteService)
	return r
}

func serveAs(router http.Handler, actor authz.Actor, req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(authz.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerClientEndpoints(t *testing.T) {
	router := newManagementRouter(NewManager(seededRepo(), logging.Discard()))

	rec := serveAs(router, coordinator, httptest.NewRequest(http.MethodPost, "/clients",
		strings.NewReader(`{"firstName":"Elif","lastName":"Şahin","email":"elif@example.com"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Client
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = serveAs(router, coordinator, httptest.NewRequest(http.MethodPost, "/clients",
		strings.NewReader(`{"firstName":"E","lastName":"S","email":"ELIF@example.com"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serveAs(router, coordinator, httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(`{"firstName":`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveAs(router, psychologist, httptest.NewRequest(http.MethodGet, "/clients", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []Client
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	assert.Len(t, listed, 2)

	rec = serveAs(router, clientActor, httptest.NewRequest(http.MethodGet, "/clients/"+created.ID, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serveAs(router, coordinator, httptest.NewRequest(http.MethodPut, "/clients/"+created.ID,
		strings.NewReader(`{"firstName":"Elif","lastName":"Kaya"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"lastName":"Kaya"`)

	rec = serveAs(router, admin, httptest.NewRequest(http.MethodDelete, "/clients/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serveAs(router, admin, httptest.NewRequest(http.MethodGet, "/clients/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerServiceEndpoints(t *testing.T) {
	inUse := func(_ context.Context, kind Kind, id string) (bool, error) {
		return kind == KindService && id == "s1", nil
	}
	router := newManagementRouter(NewManager(seededRepo(), logging.Discard(), inUse))

	rec := serveAs(router, admin, httptest.NewRequest(http.MethodPost, "/services",
		strings.NewReader(`{"name":"Çocuk Terapisi","duration":45,"price":1200,"serviceType":"CHILD"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serveAs(router, admin, httptest.NewRequest(http.MethodPost, "/services",
		strings.NewReader(`{"name":"x","duration":100000,"price":1,"serviceType":"CHILD"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrInvalidDuration.Error())

	rec = serveAs(router, coordinator, httptest.NewRequest(http.MethodPut, "/services/s2",
		strings.NewReader(`{"name":"x","duration":50,"price":1,"serviceType":"CHILD"}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serveAs(router, admin, httptest.NewRequest(http.MethodDelete, "/services/s1", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serveAs(router, admin, httptest.NewRequest(http.MethodDelete, "/services/s9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveAs(router, admin, httptest.NewRequest(http.MethodPost, "/personnel",
		strings.NewReader(`{"firstName":"Deniz","lastName":"Ak","role":"COORDINATOR"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
}
