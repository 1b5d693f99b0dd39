package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assignmentRowColumns = []string{
	"id", "client_id", "personnel_id", "title", "description", "type", "due_date", "status",
	"completed_at", "notes", "client_feedback", "attachments", "submissions", "created_at", "updated_at",
}

func TestPostgresRepository_InsertEncodesFiles(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO assignments`).
		WithArgs("c1", "p1", "Okuma", (*string)(nil), "READING", (*time.Time)(nil), "PENDING",
			(*time.Time)(nil), (*string)(nil), (*string)(nil),
			[]byte(`[{"name":"a.pdf","path":"assignments/1-a.pdf"}]`), []byte(`[]`)).
		WillReturnRows(pgxmock.NewRows(assignmentRowColumns).AddRow(
			"a1", "c1", "p1", "Okuma", (*string)(nil), "READING", (*time.Time)(nil), "PENDING",
			(*time.Time)(nil), (*string)(nil), (*string)(nil),
			[]byte(`[{"name":"a.pdf","path":"assignments/1-a.pdf"}]`), []byte(`[]`), now, now))

	repo := NewPostgresRepositoryWithDB(mock)
	out, err := repo.Insert(context.Background(), &Assignment{
		ClientID: "c1", PersonnelID: "p1", Title: "Okuma", Type: TypeReading,
		Attachments: []File{{Name: "a.pdf", Path: "assignments/1-a.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", out.ID)
	assert.Equal(t, StatusPending, out.Status)
	require.Len(t, out.Attachments, 1)
	assert.Equal(t, "a.pdf", out.Attachments[0].Name)
	assert.Empty(t, out.Submissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresRepositoryWithDB(mock).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_MarkOverdueWithFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE assignments SET status = 'OVERDUE', updated_at = NOW\(\) WHERE client_id = \$1 AND due_date < \$2 AND status NOT IN \('COMPLETED', 'OVERDUE'\)`).
		WithArgs("c1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := NewPostgresRepositoryWithDB(mock).MarkOverdue(context.Background(), Filter{ClientID: "c1"}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListOrdering(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM assignments WHERE personnel_id = \$1 AND status = \$2\s+ORDER BY array_position`).
		WithArgs("p1", "PENDING").
		WillReturnRows(pgxmock.NewRows(assignmentRowColumns).AddRow(
			"a1", "c1", "p1", "Kitap", (*string)(nil), "BOOK", &now, "PENDING",
			(*time.Time)(nil), (*string)(nil), (*string)(nil), []byte(`[]`), []byte(`[]`), now, now))

	rows, err := NewPostgresRepositoryWithDB(mock).List(context.Background(), Filter{PersonnelID: "p1", Status: StatusPending})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, TypeBook, rows[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM assignments WHERE id = \$1`).WithArgs("a9").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = NewPostgresRepositoryWithDB(mock).Delete(context.Background(), "a9")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
