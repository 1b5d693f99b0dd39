package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrReferenceMissing is returned when a foreign key no longer resolves at write time.
var ErrReferenceMissing = errors.New("referenced client, personnel or service not found")

// appointmentsDB is the subset of pgxpool used by PostgresRepository.
type appointmentsDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db appointmentsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db appointmentsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, client_id, personnel_id, service_id, appointment_date, duration, status,
	is_online, meet_link, price, notes, created_at, updated_at`

func conflictQuery(mode OverlapMode) string {
	q := `SELECT ` + selectColumns + ` FROM appointments
		WHERE personnel_id = $1 AND status <> 'CANCELLED'`
	if mode == OverlapInterval {
		q += ` AND appointment_date < $3 AND appointment_date + make_interval(mins => duration) > $2`
	} else {
		q += ` AND appointment_date >= $2 AND appointment_date < $3`
	}
	return q + ` ORDER BY appointment_date ASC LIMIT 1`
}

func (r *PostgresRepository) FindConflict(ctx context.Context, w Window) (*Appointment, error) {
	return findConflict(ctx, r.db, w)
}

func findConflict(ctx context.Context, q querier, w Window) (*Appointment, error) {
	appt, err := scanAppointment(q.QueryRow(ctx, conflictQuery(w.Mode), w.PersonnelID, w.Start, w.End))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: conflict query: %w", err)
	}
	return appt, nil
}

// Insert writes appt inside a transaction. When guard is set it first takes a
// transaction-scoped advisory lock on the practitioner so concurrent bookings
// for the same person serialize, then re-runs the conflict query.
func (r *PostgresRepository) Insert(ctx context.Context, appt *Appointment, guard Window) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if !guard.Empty() {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, guard.PersonnelID); err != nil {
			return nil, fmt.Errorf("appointments: lock practitioner: %w", err)
		}
		existing, err := findConflict(ctx, tx, guard)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrConflict
		}
	}

	id := appt.ID
	if id == "" {
		id = uuid.New().String()
	}
	stored := *appt
	stored.ID = id
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, client_id, personnel_id, service_id, appointment_date, duration, status, is_online, meet_link, price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, id, appt.ClientID, appt.PersonnelID, appt.ServiceID, appt.AppointmentDate, appt.Duration,
		string(appt.Status), appt.IsOnline, appt.MeetLink, appt.Price, appt.Notes,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, mapWriteError("insert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit insert: %w", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	appt, err := scanAppointment(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: select: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) Update(ctx context.Context, appt *Appointment) (*Appointment, error) {
	stored := *appt
	err := r.db.QueryRow(ctx, `
		UPDATE appointments SET
			client_id = $2, personnel_id = $3, service_id = $4, appointment_date = $5, duration = $6,
			status = $7, is_online = $8, meet_link = $9, price = $10, notes = $11, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, appt.ID, appt.ClientID, appt.PersonnelID, appt.ServiceID, appt.AppointmentDate, appt.Duration,
		string(appt.Status), appt.IsOnline, appt.MeetLink, appt.Price, appt.Notes,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapWriteError("update", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	if f.PersonnelID != "" {
		add("personnel_id = $%d", f.PersonnelID)
	}
	if f.ServiceID != "" {
		add("service_id = $%d", f.ServiceID)
	}
	if f.From != nil {
		add("appointment_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("appointment_date < $%d", *f.To)
	}

	query := `SELECT ` + selectColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Order == SortDescending {
		query += ` ORDER BY appointment_date DESC`
	} else {
		query += ` ORDER BY appointment_date ASC`
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		status string
	)
	if err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.PersonnelID,
		&a.ServiceID,
		&a.AppointmentDate,
		&a.Duration,
		&status,
		&a.IsOnline,
		&a.MeetLink,
		&a.Price,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return fmt.Errorf("appointments: %s: %w", op, ErrReferenceMissing)
		case "23P01":
			return ErrConflict
		}
	}
	return fmt.Errorf("appointments: %s: %w", op, err)
}
