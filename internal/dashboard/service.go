package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/internal/http/respond"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

var dashboardTracer = otel.Tracer("clinic.internal.dashboard")

// Service scopes dashboard stats to the caller's role.
type Service struct {
	source    Source
	directory directory.Repository
	location  *time.Location
	now       func() time.Time
}

// NewService creates a dashboard service.
func NewService(source Source, dir directory.Repository, loc *time.Location) *Service {
	if source == nil {
		panic("dashboard: stats source required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{source: source, directory: dir, location: loc, now: time.Now}
}

// Stats returns the summary for actor. Psychologists only see their own
// sessions, client totals need a manager and revenue needs an administrator.
func (s *Service) Stats(ctx context.Context, actor authz.Actor) (*Stats, error) {
	ctx, span := dashboardTracer.Start(ctx, "dashboard.stats")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.actor.role", string(actor.Role)))

	if err := authz.Authorize(actor, authz.ActionDashboardView); err != nil {
		return nil, err
	}

	q := s.periods()
	q.IncludeClients = actor.Can(authz.ActionClientCount)
	q.IncludeRevenue = actor.Can(authz.ActionRevenueView)

	if actor.Role == authz.RolePsychologist {
		personnelID := actor.PersonnelID
		if personnelID == "" && s.directory != nil {
			p, err := s.directory.PersonnelByUserID(ctx, actor.UserID)
			if errors.Is(err, directory.ErrPersonnelNotFound) {
				return &Stats{}, nil
			}
			if err != nil {
				return nil, err
			}
			personnelID = p.ID
		}
		if personnelID == "" {
			return &Stats{}, nil
		}
		q.PersonnelID = personnelID
	}

	stats, err := s.source.GetStats(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return stats, nil
}

// periods resolves today and this month in the clinic zone.
func (s *Service) periods() Query {
	now := s.now().In(s.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.location)
	return Query{
		Now:        now,
		DayStart:   dayStart,
		DayEnd:     dayStart.AddDate(0, 0, 1),
		MonthStart: monthStart,
		MonthEnd:   monthStart.AddDate(0, 1, 0),
	}
}

// StatsHandler provides the HTTP endpoint for dashboard statistics.
type StatsHandler struct {
	service *Service
	logger  *logging.Logger
}

// NewStatsHandler creates a new stats HTTP handler.
func NewStatsHandler(service *Service, logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{service: service, logger: logger}
}

// GetStats handles GET /dashboard/stats.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), actor)
	if err != nil {
		if respond.Authz(w, err) {
			return
		}
		h.logger.Error("failed to get dashboard stats", "user_id", actor.UserID, "error", err)
		respond.Internal(w)
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}
