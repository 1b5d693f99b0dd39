package packages

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// packagesDB is the subset of pgxpool used by PostgresRepository.
type packagesDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// lineWriter is satisfied by a transaction.
type lineWriter interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores packages in the packages and package_services tables.
type PostgresRepository struct {
	db packagesDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("packages: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db packagesDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const packageColumns = `id, name, description, total_sessions, total_price, discount_percent,
	validity_days, is_active, created_at, updated_at`

// Insert writes the package row and its lines in one transaction.
func (r *PostgresRepository) Insert(ctx context.Context, p *Package) (*Package, error) {
	stored := p.clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("packages: begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO packages
			(id, name, description, total_sessions, total_price, discount_percent, validity_days, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, stored.ID, stored.Name, stored.Description, stored.TotalSessions, stored.TotalPrice,
		stored.DiscountPercent, stored.ValidityDays, stored.IsActive,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("packages: insert: %w", err)
	}
	if err := insertLines(ctx, tx, stored.ID, stored.Services); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("packages: commit insert: %w", err)
	}
	return stored, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Package, error) {
	p, err := scanPackage(r.db.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("packages: select: %w", err)
	}
	lines, err := r.lines(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Services = lines[p.ID]
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Package, error) {
	rows, err := r.db.Query(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("packages: list: %w", err)
	}
	var (
		out []*Package
		ids []string
	)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("packages: scan: %w", err)
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("packages: list: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range out {
		p.Services = lines[p.ID]
	}
	return out, nil
}

// Replace updates the row and swaps the lines in one transaction.
func (r *PostgresRepository) Replace(ctx context.Context, p *Package) (*Package, error) {
	stored := p.clone()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("packages: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		UPDATE packages SET name = $2, description = $3, total_sessions = $4, total_price = $5,
			discount_percent = $6, validity_days = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, stored.ID, stored.Name, stored.Description, stored.TotalSessions, stored.TotalPrice,
		stored.DiscountPercent, stored.ValidityDays, stored.IsActive,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("packages: update: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM package_services WHERE package_id = $1`, stored.ID); err != nil {
		return nil, fmt.Errorf("packages: clear lines: %w", err)
	}
	if err := insertLines(ctx, tx, stored.ID, stored.Services); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("packages: commit update: %w", err)
	}
	return stored, nil
}

// Delete removes the package; its lines go with it via ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("packages: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ReferencesService(ctx context.Context, serviceID string) (bool, error) {
	var used bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM package_services WHERE service_id = $1)`, serviceID).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("packages: service references: %w", err)
	}
	return used, nil
}

func (r *PostgresRepository) lines(ctx context.Context, ids []string) (map[string][]PackageService, error) {
	rows, err := r.db.Query(ctx, `SELECT package_id, service_id, sessions FROM package_services
		WHERE package_id = ANY($1) ORDER BY package_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("packages: select lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]PackageService, len(ids))
	for rows.Next() {
		var (
			packageID string
			line      PackageService
		)
		if err := rows.Scan(&packageID, &line.ServiceID, &line.Sessions); err != nil {
			return nil, fmt.Errorf("packages: scan line: %w", err)
		}
		out[packageID] = append(out[packageID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("packages: select lines: %w", err)
	}
	return out, nil
}

func insertLines(ctx context.Context, tx lineWriter, packageID string, lines []PackageService) error {
	for i, line := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO package_services (package_id, service_id, sessions, position)
			VALUES ($1, $2, $3, $4)
		`, packageID, line.ServiceID, line.Sessions, i)
		if err != nil {
			return fmt.Errorf("packages: insert line %d: %w", i, err)
		}
	}
	return nil
}

func scanPackage(row pgx.Row) (*Package, error) {
	var p Package
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.TotalSessions, &p.TotalPrice, &p.DiscountPercent,
		&p.ValidityDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
