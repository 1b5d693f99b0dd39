package cashregister

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// cashDB is the subset of pgxpool used by PostgresRepository.
type cashDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores transactions in the relational database.
type PostgresRepository struct {
	db cashDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("cashregister: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db cashDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, tx *Transaction) (*Transaction, error) {
	stored := *tx
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO transactions
			(id, appointment_id, client_id, amount, type, payment_method, description, category, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, stored.ID, stored.AppointmentID, stored.ClientID, stored.Amount, string(stored.Type),
		string(stored.PaymentMethod), stored.Description, stored.Category, stored.TransactionDate,
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("cashregister: insert failed: %w", err)
	}
	return &stored, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*Transaction, error) {
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
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.From != nil {
		add("transaction_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("transaction_date < $%d", *f.To)
	}
	query := `SELECT id, appointment_id, client_id, amount, type, payment_method, description, category,
		transaction_date, created_at FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY transaction_date DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cashregister: list: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		var (
			t       Transaction
			typ     string
			payment string
		)
		if err := rows.Scan(&t.ID, &t.AppointmentID, &t.ClientID, &t.Amount, &typ, &payment,
			&t.Description, &t.Category, &t.TransactionDate, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("cashregister: scan: %w", err)
		}
		t.Type = Type(typ)
		t.PaymentMethod = PaymentMethod(payment)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cashregister: list: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) IncomeBetween(ctx context.Context, from, to time.Time) (float64, error) {
	var sum float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::float8 FROM transactions
		WHERE type = 'INCOME' AND transaction_date >= $1 AND transaction_date < $2`, from, to).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("cashregister: sum income: %w", err)
	}
	return sum, nil
}
