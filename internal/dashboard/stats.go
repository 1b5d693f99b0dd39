package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/counseling-clinic/internal/appointments"
)

// Stats is the dashboard summary.
type Stats struct {
	TotalAppointments   int64   `json:"totalAppointments"`
	TodayAppointments   int64   `json:"todayAppointments"`
	PendingAppointments int64   `json:"pendingAppointments"`
	TotalClients        int64   `json:"totalClients"`
	MonthlyRevenue      float64 `json:"monthlyRevenue"`
}

// Query describes what to count. Boundaries are absolute instants already
// resolved in the clinic time zone.
type Query struct {
	PersonnelID    string
	Now            time.Time
	DayStart       time.Time
	DayEnd         time.Time
	MonthStart     time.Time
	MonthEnd       time.Time
	IncludeClients bool
	IncludeRevenue bool
}

// Source computes Stats.
type Source interface {
	GetStats(ctx context.Context, q Query) (*Stats, error)
}

// statsDB defines the database interface needed by StatsRepository
type statsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StatsRepository queries dashboard metrics from the database.
type StatsRepository struct {
	db statsDB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	if pool == nil {
		panic("dashboard: pgx pool required for stats")
	}
	return &StatsRepository{db: pool}
}

// NewStatsRepositoryWithDB allows injecting a mock database for testing.
func NewStatsRepositoryWithDB(db statsDB) *StatsRepository {
	return &StatsRepository{db: db}
}

// An empty $1 disables the practitioner filter.
const scopeFilter = `($1 = '' OR personnel_id::text = $1)`

// GetStats retrieves aggregated counts, optionally for one practitioner.
func (r *StatsRepository) GetStats(ctx context.Context, q Query) (*Stats, error) {
	stats := &Stats{}

	totalQuery := `SELECT COUNT(*) FROM appointments WHERE ` + scopeFilter
	if err := r.db.QueryRow(ctx, totalQuery, q.PersonnelID).Scan(&stats.TotalAppointments); err != nil {
		return nil, fmt.Errorf("dashboard stats: count appointments: %w", err)
	}

	todayQuery := `SELECT COUNT(*) FROM appointments WHERE ` + scopeFilter +
		` AND appointment_date >= $2 AND appointment_date < $3`
	if err := r.db.QueryRow(ctx, todayQuery, q.PersonnelID, q.DayStart, q.DayEnd).Scan(&stats.TodayAppointments); err != nil {
		return nil, fmt.Errorf("dashboard stats: count today: %w", err)
	}

	pendingQuery := `SELECT COUNT(*) FROM appointments WHERE ` + scopeFilter +
		` AND status = 'SCHEDULED' AND appointment_date >= $2`
	if err := r.db.QueryRow(ctx, pendingQuery, q.PersonnelID, q.Now).Scan(&stats.PendingAppointments); err != nil {
		return nil, fmt.Errorf("dashboard stats: count pending: %w", err)
	}

	if q.IncludeClients {
		if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE is_active`).Scan(&stats.TotalClients); err != nil {
			return nil, fmt.Errorf("dashboard stats: count clients: %w", err)
		}
	}

	if q.IncludeRevenue {
		revenueQuery := `SELECT COALESCE(SUM(amount), 0)::float8 FROM transactions
			WHERE type = 'INCOME' AND transaction_date >= $1 AND transaction_date < $2`
		if err := r.db.QueryRow(ctx, revenueQuery, q.MonthStart, q.MonthEnd).Scan(&stats.MonthlyRevenue); err != nil {
			return nil, fmt.Errorf("dashboard stats: sum revenue: %w", err)
		}
	}

	return stats, nil
}

// ClientCounter counts active clients.
type ClientCounter interface {
	CountActiveClients(ctx context.Context) (int64, error)
}

// IncomeSource sums income over a period.
type IncomeSource interface {
	IncomeBetween(ctx context.Context, from, to time.Time) (float64, error)
}

// MemoryStats computes Stats from the in-process stores.
type MemoryStats struct {
	appointments appointments.Repository
	clients      ClientCounter
	income       IncomeSource
}

// NewMemoryStats wires the in-memory stores.
func NewMemoryStats(appts appointments.Repository, clients ClientCounter, income IncomeSource) *MemoryStats {
	return &MemoryStats{appointments: appts, clients: clients, income: income}
}

func (m *MemoryStats) GetStats(ctx context.Context, q Query) (*Stats, error) {
	rows, err := m.appointments.List(ctx, appointments.Filter{PersonnelID: q.PersonnelID})
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: list appointments: %w", err)
	}
	stats := &Stats{TotalAppointments: int64(len(rows))}
	for _, a := range rows {
		if !a.AppointmentDate.Before(q.DayStart) && a.AppointmentDate.Before(q.DayEnd) {
			stats.TodayAppointments++
		}
		if a.Status == appointments.StatusScheduled && !a.AppointmentDate.Before(q.Now) {
			stats.PendingAppointments++
		}
	}
	if q.IncludeClients && m.clients != nil {
		if stats.TotalClients, err = m.clients.CountActiveClients(ctx); err != nil {
			return nil, fmt.Errorf("dashboard stats: count clients: %w", err)
		}
	}
	if q.IncludeRevenue && m.income != nil {
		if stats.MonthlyRevenue, err = m.income.IncomeBetween(ctx, q.MonthStart, q.MonthEnd); err != nil {
			return nil, fmt.Errorf("dashboard stats: sum revenue: %w", err)
		}
	}
	return stats, nil
}
