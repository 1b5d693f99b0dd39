package assignments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// assignmentsDB is the subset of pgxpool used by PostgresRepository.
type assignmentsDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores assignments in the assignments table.
type PostgresRepository struct {
	db assignmentsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("assignments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db assignmentsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const assignmentColumns = `id, client_id, personnel_id, title, description, type, due_date, status,
	completed_at, notes, client_feedback, attachments, submissions, created_at, updated_at`

func (r *PostgresRepository) Insert(ctx context.Context, a *Assignment) (*Assignment, error) {
	attachments, submissions, err := encodeFiles(a)
	if err != nil {
		return nil, err
	}
	status := a.Status
	if status == "" {
		status = StatusPending
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO assignments (client_id, personnel_id, title, description, type, due_date, status,
			completed_at, notes, client_feedback, attachments, submissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+assignmentColumns,
		a.ClientID, a.PersonnelID, a.Title, a.Description, string(a.Type), a.DueDate, string(status),
		a.CompletedAt, a.Notes, a.ClientFeedback, attachments, submissions,
	)
	out, err := scanAssignment(row)
	if err != nil {
		return nil, fmt.Errorf("assignments: insert: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Assignment, error) {
	out, err := scanAssignment(r.db.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("assignments: get: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *Assignment) (*Assignment, error) {
	attachments, submissions, err := encodeFiles(a)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		UPDATE assignments SET title = $2, description = $3, type = $4, due_date = $5, status = $6,
			completed_at = $7, notes = $8, client_feedback = $9, attachments = $10, submissions = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+assignmentColumns,
		a.ID, a.Title, a.Description, string(a.Type), a.DueDate, string(a.Status),
		a.CompletedAt, a.Notes, a.ClientFeedback, attachments, submissions,
	)
	out, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("assignments: update: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("assignments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*Assignment, error) {
	where, args := f.sql()
	rows, err := r.db.Query(ctx, `SELECT `+assignmentColumns+` FROM assignments`+where+`
		ORDER BY array_position(ARRAY['PENDING','IN_PROGRESS','COMPLETED','OVERDUE'], status),
			due_date ASC NULLS LAST, created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("assignments: list: %w", err)
	}
	defer rows.Close()

	var out []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("assignments: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assignments: list: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkOverdue(ctx context.Context, f Filter, now time.Time) (int64, error) {
	where, args := f.sql()
	args = append(args, now)
	cond := fmt.Sprintf(`due_date < $%d AND status NOT IN ('COMPLETED', 'OVERDUE')`, len(args))
	if where == "" {
		where = ` WHERE ` + cond
	} else {
		where += ` AND ` + cond
	}
	tag, err := r.db.Exec(ctx, `UPDATE assignments SET status = 'OVERDUE', updated_at = NOW()`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("assignments: mark overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (f Filter) sql() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if f.ClientID != "" {
		add("client_id", f.ClientID)
	}
	if f.PersonnelID != "" {
		add("personnel_id", f.PersonnelID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var (
		a                        Assignment
		typ, status              string
		attachments, submissions []byte
	)
	if err := row.Scan(&a.ID, &a.ClientID, &a.PersonnelID, &a.Title, &a.Description, &typ, &a.DueDate, &status,
		&a.CompletedAt, &a.Notes, &a.ClientFeedback, &attachments, &submissions, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Type = Type(typ)
	a.Status = Status(status)
	if err := decodeFiles(attachments, &a.Attachments); err != nil {
		return nil, err
	}
	if err := decodeFiles(submissions, &a.Submissions); err != nil {
		return nil, err
	}
	return &a, nil
}

func encodeFiles(a *Assignment) ([]byte, []byte, error) {
	attachments, err := json.Marshal(nonNil(a.Attachments))
	if err != nil {
		return nil, nil, fmt.Errorf("assignments: encode attachments: %w", err)
	}
	submissions, err := json.Marshal(nonNil(a.Submissions))
	if err != nil {
		return nil, nil, fmt.Errorf("assignments: encode submissions: %w", err)
	}
	return attachments, submissions, nil
}

func decodeFiles(raw []byte, dst *[]File) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode files: %w", err)
	}
	return nil
}

func nonNil(files []File) []File {
	if files == nil {
		return []File{}
	}
	return files
}
