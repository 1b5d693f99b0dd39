package cashregister

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/counseling-clinic/internal/appointments"
	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

var (
	admin     = authz.Actor{UserID: "u-admin", Role: authz.RoleAdministrator}
	psych     = authz.Actor{UserID: "u-psy", Role: authz.RolePsychologist}
	clientOne = authz.Actor{UserID: "u-client1", Role: authz.RoleClient}
)

func strPtr(s string) *string { return &s }

type fixture struct {
	svc   *Service
	repo  *InMemoryRepository
	appts *appointments.InMemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := directory.NewInMemoryRepository()
	dir.PutClient(directory.Client{ID: "c1", UserID: "u-client1", FirstName: "Fatma", LastName: "Özkan", IsActive: true})
	appts := appointments.NewInMemoryRepository()
	repo := NewInMemoryRepository()
	svc := NewService(repo, dir, appts, time.UTC, logging.Discard())
	svc.now = func() time.Time { return time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, repo: repo, appts: appts}
}

func TestAmountAcceptsNumbersAndStrings(t *testing.T) {
	var req CreateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"1500,50"}`), &req))
	assert.Equal(t, Amount(1500.5), req.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount":750}`), &req))
	assert.Equal(t, Amount(750), req.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"lots"}`), &req))
}

func TestCreateIncomeDropsCategory(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.Create(context.Background(), admin, CreateRequest{
		Amount: 1500, Type: "income", PaymentMethod: "CASH", Description: "Seans ücreti",
		Category: strPtr("RENT"), ClientID: strPtr("c1"),
	})
	require.NoError(t, err)

	assert.Equal(t, TypeIncome, v.Type)
	assert.Nil(t, v.Category)
	assert.Equal(t, time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC), v.TransactionDate)
	require.NotNil(t, v.Client)
	assert.Equal(t, "Fatma", v.Client.FirstName)
}

func TestCreateExpenseKeepsCategory(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.Create(context.Background(), admin, CreateRequest{
		Amount: 300, Type: "EXPENSE", PaymentMethod: "BANK_TRANSFER", Description: "Kira",
		Category: strPtr("RENT"), TransactionDate: strPtr("2030-06-01"),
	})
	require.NoError(t, err)
	require.NotNil(t, v.Category)
	assert.Equal(t, "RENT", *v.Category)
	assert.Equal(t, time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), v.TransactionDate)
}

func TestCreateLinksClientThroughAppointment(t *testing.T) {
	f := newFixture(t)
	appt, err := f.appts.Insert(context.Background(), &appointments.Appointment{
		ClientID: "c1", PersonnelID: "p1", ServiceID: "s1", Duration: 50, Status: appointments.StatusCompleted,
	}, appointments.Window{})
	require.NoError(t, err)

	v, err := f.svc.Create(context.Background(), admin, CreateRequest{
		Amount: 1200, Type: "INCOME", PaymentMethod: "CREDIT_CARD", Description: "Seans", AppointmentID: &appt.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, v.ClientID)
	assert.Equal(t, "c1", *v.ClientID)

	_, err = f.svc.Create(context.Background(), admin, CreateRequest{
		Amount: 1200, Type: "INCOME", PaymentMethod: "CASH", Description: "Seans", AppointmentID: strPtr("ghost"),
	})
	assert.ErrorIs(t, err, appointments.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"no amount", CreateRequest{Type: "INCOME", PaymentMethod: "CASH", Description: "x"}, ErrMissingFields},
		{"no description", CreateRequest{Amount: 10, Type: "INCOME", PaymentMethod: "CASH"}, ErrMissingFields},
		{"negative", CreateRequest{Amount: -10, Type: "INCOME", PaymentMethod: "CASH", Description: "x"}, ErrInvalidAmount},
		{"bad type", CreateRequest{Amount: 10, Type: "REFUND", PaymentMethod: "CASH", Description: "x"}, ErrInvalidType},
		{"bad method", CreateRequest{Amount: 10, Type: "INCOME", PaymentMethod: "CHEQUE", Description: "x"}, ErrInvalidPaymentMethod},
		{"bad date", CreateRequest{Amount: 10, Type: "INCOME", PaymentMethod: "CASH", Description: "x", TransactionDate: strPtr("soon")}, ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, admin, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.svc.Create(ctx, psych, CreateRequest{Amount: 10, Type: "INCOME", PaymentMethod: "CASH", Description: "x"})
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)
}

func TestListsAndIncome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, req := range []CreateRequest{
		{Amount: 100, Type: "INCOME", PaymentMethod: "CASH", Description: "a", ClientID: strPtr("c1"), TransactionDate: strPtr("2030-06-02T10:00:00Z")},
		{Amount: 200, Type: "INCOME", PaymentMethod: "CASH", Description: "b", TransactionDate: strPtr("2030-06-10T10:00:00Z")},
		{Amount: 50, Type: "EXPENSE", PaymentMethod: "CASH", Description: "c", TransactionDate: strPtr("2030-06-11T10:00:00Z")},
		{Amount: 999, Type: "INCOME", PaymentMethod: "CASH", Description: "d", TransactionDate: strPtr("2030-05-31T23:00:00Z")},
	} {
		_, err := f.svc.Create(ctx, admin, req)
		require.NoError(t, err)
	}

	all, err := f.svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "c", all[0].Description)

	own, err := f.svc.ListForClient(ctx, clientOne)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "a", own[0].Description)

	_, err = f.svc.ListForClient(ctx, authz.Actor{UserID: "u-ghost", Role: authz.RoleClient})
	assert.ErrorIs(t, err, directory.ErrClientNotFound)

	sum, err := f.repo.IncomeBetween(ctx, time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 300.0, sum)
}

func TestPostgresRepositoryIncomeBetween(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\)::float8 FROM transactions\s+WHERE type = 'INCOME' AND transaction_date >= \$1 AND transaction_date < \$2`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(4250.0))

	repo := NewPostgresRepositoryWithDB(mock)
	sum, err := repo.IncomeBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 4250.0, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryListForClient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM transactions WHERE client_id = \$1 ORDER BY transaction_date DESC`).
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "appointment_id", "client_id", "amount", "type", "payment_method", "description", "category", "transaction_date", "created_at"}).
			AddRow("t1", (*string)(nil), strPtr("c1"), 1500.0, "INCOME", "CASH", "Seans", (*string)(nil), at, at))

	repo := NewPostgresRepositoryWithDB(mock)
	rows, err := repo.List(context.Background(), Filter{ClientID: "c1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, PaymentCash, rows[0].PaymentMethod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerCreateStatusCodes(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, logging.Discard())

	post := func(actor authz.Actor, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
		req = req.WithContext(authz.WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		return rec
	}

	rec := post(admin, `{"amount":"250","type":"INCOME","paymentMethod":"CASH","description":"Seans"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = post(admin, `{"type":"INCOME"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required fields")

	rec = post(psych, `{"amount":1,"type":"INCOME","paymentMethod":"CASH","description":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
