package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// directoryDB is the subset of pgxpool used by PostgresRepository.
type directoryDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository reads and writes the directory tables.
type PostgresRepository struct {
	db directoryDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db directoryDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const clientColumns = `id, COALESCE(user_id::text, ''), first_name, last_name, phone, email, photo, is_active`

func (r *PostgresRepository) Client(ctx context.Context, id string) (*Client, error) {
	return r.scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

func (r *PostgresRepository) ClientByUserID(ctx context.Context, userID string) (*Client, error) {
	return r.scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE user_id = $1`, userID))
}

func (r *PostgresRepository) scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Phone, &c.Email, &c.Photo, &c.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("directory: select client: %w", err)
	}
	return &c, nil
}

const personnelColumns = `id, COALESCE(user_id::text, ''), first_name, last_name, phone, specialization, role, is_active`

func (r *PostgresRepository) Personnel(ctx context.Context, id string) (*Personnel, error) {
	return r.scanPersonnel(r.db.QueryRow(ctx, `SELECT `+personnelColumns+` FROM personnel WHERE id = $1`, id))
}

func (r *PostgresRepository) PersonnelByUserID(ctx context.Context, userID string) (*Personnel, error) {
	return r.scanPersonnel(r.db.QueryRow(ctx, `SELECT `+personnelColumns+` FROM personnel WHERE user_id = $1`, userID))
}

func (r *PostgresRepository) scanPersonnel(row pgx.Row) (*Personnel, error) {
	var p Personnel
	if err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Specialization, &p.Role, &p.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPersonnelNotFound
		}
		return nil, fmt.Errorf("directory: select personnel: %w", err)
	}
	return &p, nil
}

const serviceColumns = `id, name, description, duration, price, service_type, is_active`

func (r *PostgresRepository) Service(ctx context.Context, id string) (*Service, error) {
	var s Service
	err := r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Description, &s.Duration, &s.Price, &s.ServiceType, &s.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("directory: select service: %w", err)
	}
	return &s, nil
}

// ListServices returns active services ordered by name.
func (r *PostgresRepository) ListServices(ctx context.Context) ([]*Service, error) {
	rows, err := r.db.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE is_active ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("directory: list services: %w", err)
	}
	defer rows.Close()

	var out []*Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Duration, &s.Price, &s.ServiceType, &s.IsActive); err != nil {
			return nil, fmt.Errorf("directory: scan service: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list services: %w", err)
	}
	return out, nil
}

// ListPersonnel returns active psychologists and coordinators ordered by first name.
func (r *PostgresRepository) ListPersonnel(ctx context.Context) ([]*Personnel, error) {
	rows, err := r.db.Query(ctx, `SELECT `+personnelColumns+` FROM personnel
		WHERE is_active AND role IN ('PSYCHOLOGIST', 'COORDINATOR')
		ORDER BY first_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("directory: list personnel: %w", err)
	}
	defer rows.Close()

	var out []*Personnel
	for rows.Next() {
		var p Personnel
		if err := rows.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Specialization, &p.Role, &p.IsActive); err != nil {
			return nil, fmt.Errorf("directory: scan personnel: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list personnel: %w", err)
	}
	return out, nil
}

// CountActiveClients returns the number of active clients.
func (r *PostgresRepository) CountActiveClients(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("directory: count clients: %w", err)
	}
	return n, nil
}

// ListClients returns every client ordered by last then first name.
func (r *PostgresRepository) ListClients(ctx context.Context) ([]*Client, error) {
	rows, err := r.db.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY last_name ASC, first_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("directory: list clients: %w", err)
	}
	defer rows.Close()

	var out []*Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Phone, &c.Email, &c.Photo, &c.IsActive); err != nil {
			return nil, fmt.Errorf("directory: scan client: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list clients: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CreateClient(ctx context.Context, c *Client) (*Client, error) {
	stored := *c
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO clients (id, user_id, first_name, last_name, phone, email, photo, is_active)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
	`, stored.ID, stored.UserID, stored.FirstName, stored.LastName, stored.Phone, stored.Email, stored.Photo, stored.IsActive)
	if err != nil {
		return nil, mapWriteError("insert client", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) UpdateClient(ctx context.Context, c *Client) (*Client, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE clients SET user_id = NULLIF($2, ''), first_name = $3, last_name = $4, phone = $5,
			email = $6, photo = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.UserID, c.FirstName, c.LastName, c.Phone, c.Email, c.Photo, c.IsActive)
	if err != nil {
		return nil, mapWriteError("update client", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrClientNotFound
	}
	out := *c
	return &out, nil
}

func (r *PostgresRepository) DeleteClient(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete client", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (r *PostgresRepository) CreatePersonnel(ctx context.Context, p *Personnel) (*Personnel, error) {
	stored := *p
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO personnel (id, user_id, first_name, last_name, phone, specialization, role, is_active)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
	`, stored.ID, stored.UserID, stored.FirstName, stored.LastName, stored.Phone, stored.Specialization, stored.Role, stored.IsActive)
	if err != nil {
		return nil, mapWriteError("insert personnel", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) CreateService(ctx context.Context, s *Service) (*Service, error) {
	stored := *s
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO services (id, name, description, duration, price, service_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, stored.ID, stored.Name, stored.Description, stored.Duration, stored.Price, stored.ServiceType, stored.IsActive)
	if err != nil {
		return nil, mapWriteError("insert service", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) UpdateService(ctx context.Context, s *Service) (*Service, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE services SET name = $2, description = $3, duration = $4, price = $5,
			service_type = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.Name, s.Description, s.Duration, s.Price, s.ServiceType, s.IsActive)
	if err != nil {
		return nil, mapWriteError("update service", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrServiceNotFound
	}
	out := *s
	return &out, nil
}

func (r *PostgresRepository) DeleteService(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete service", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// clientEmailIndex is the case-insensitive unique index on clients.email.
const clientEmailIndex = "idx_clients_email_lower"

// mapWriteError turns unique and foreign key violations into domain errors.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName != clientEmailIndex {
				break
			}
			return fmt.Errorf("directory: %s: %w", op, ErrEmailTaken)
		case "23503":
			return fmt.Errorf("directory: %s: %w", op, ErrInUse)
		}
	}
	return fmt.Errorf("directory: %s: %w", op, err)
}
