package packages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var packageRowColumns = []string{"id", "name", "description", "total_sessions", "total_price", "discount_percent",
	"validity_days", "is_active", "created_at", "updated_at"}

func TestPostgresInsertWritesLinesInTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO packages`).
		WithArgs("pk1", "10 Seans", (*string)(nil), 10, 12000.0, 0.0, (*int)(nil), true).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO package_services`).
		WithArgs("pk1", "s1", 8, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO package_services`).
		WithArgs("pk1", "s2", 2, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	repo := NewPostgresRepositoryWithDB(mock)
	p, err := repo.Insert(context.Background(), &Package{
		ID:            "pk1",
		Name:          "10 Seans",
		TotalSessions: 10,
		TotalPrice:    12000,
		IsActive:      true,
		Services:      []PackageService{{ServiceID: "s1", Sessions: 8}, {ServiceID: "s2", Sessions: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, now, p.CreatedAt)
	require.Len(t, p.Services, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertRollsBackOnLineFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO packages`).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO package_services`).
		WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.Insert(context.Background(), &Package{
		ID:       "pk1",
		Name:     "x",
		Services: []PackageService{{ServiceID: "s9", Sessions: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert line 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAttachesLines(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM packages ORDER BY created_at DESC`).
		WillReturnRows(pgxmock.NewRows(packageRowColumns).
			AddRow("pk2", "Yeni", (*string)(nil), 4, 4000.0, 0.0, (*int)(nil), true, now, now).
			AddRow("pk1", "Eski", (*string)(nil), 10, 9000.0, 10.0, intPtr(90), false, now.Add(-time.Hour), now))
	mock.ExpectQuery(`SELECT package_id, service_id, sessions FROM package_services`).
		WithArgs([]string{"pk2", "pk1"}).
		WillReturnRows(pgxmock.NewRows([]string{"package_id", "service_id", "sessions"}).
			AddRow("pk1", "s1", 6).
			AddRow("pk1", "s2", 4).
			AddRow("pk2", "s1", 4))

	repo := NewPostgresRepositoryWithDB(mock)
	out, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "pk2", out[0].ID)
	assert.Len(t, out[0].Services, 1)
	assert.Len(t, out[1].Services, 2)
	require.NotNil(t, out[1].ValidityDays)
	assert.Equal(t, 90, *out[1].ValidityDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceMissingPackage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE packages SET`).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}))
	mock.ExpectRollback()

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.Replace(context.Background(), &Package{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteAndReferences(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM packages WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewPostgresRepositoryWithDB(mock)
	ctx := context.Background()
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), ErrNotFound)
	used, err := repo.ReferencesService(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}
