package cashregister

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/counseling-clinic/internal/appointments"
	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

var cashTracer = otel.Tracer("clinic.internal.cashregister")

// AppointmentLookup resolves the appointment a payment is linked to.
type AppointmentLookup interface {
	Get(ctx context.Context, id string) (*appointments.Appointment, error)
}

// Service records and lists cash register entries.
type Service struct {
	repo         Repository
	directory    directory.Repository
	appointments AppointmentLookup
	location     *time.Location
	now          func() time.Time
	logger       *logging.Logger
}

// NewService constructs a cash register service.
func NewService(repo Repository, dir directory.Repository, appts AppointmentLookup, loc *time.Location, logger *logging.Logger) *Service {
	if repo == nil {
		panic("cashregister: repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:         repo,
		directory:    dir,
		appointments: appts,
		location:     loc,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// List returns every entry, newest first.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]*View, error) {
	ctx, span := cashTracer.Start(ctx, "cashregister.list")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionTransactionList); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, Filter{})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.views(ctx, rows), nil
}

// ListForClient returns the calling client's own entries.
func (s *Service) ListForClient(ctx context.Context, actor authz.Actor) ([]*View, error) {
	ctx, span := cashTracer.Start(ctx, "cashregister.list_own")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionTransactionListOwn); err != nil {
		return nil, err
	}
	clientID := actor.ClientID
	if clientID == "" {
		client, err := s.directory.ClientByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		clientID = client.ID
	}
	rows, err := s.repo.List(ctx, Filter{ClientID: clientID})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.views(ctx, rows), nil
}

// Create records a transaction. Category is kept only for expenses.
func (s *Service) Create(ctx context.Context, actor authz.Actor, req CreateRequest) (*View, error) {
	ctx, span := cashTracer.Start(ctx, "cashregister.create")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionTransactionCreate); err != nil {
		return nil, err
	}

	typ := Type(strings.ToUpper(strings.TrimSpace(req.Type)))
	method := PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	description := strings.TrimSpace(req.Description)
	if req.Amount == 0 || typ == "" || method == "" || description == "" {
		return nil, ErrMissingFields
	}
	if req.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	if !typ.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}
	if !method.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.PaymentMethod)
	}

	date := s.now()
	if req.TransactionDate != nil && strings.TrimSpace(*req.TransactionDate) != "" {
		parsed, err := appointments.ParseDate(*req.TransactionDate, s.location)
		if err != nil {
			if d, derr := time.ParseInLocation("2006-01-02", strings.TrimSpace(*req.TransactionDate), s.location); derr == nil {
				parsed, err = d, nil
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, *req.TransactionDate)
		}
		date = parsed
	}

	tx := &Transaction{
		Amount:          float64(req.Amount),
		Type:            typ,
		PaymentMethod:   method,
		Description:     description,
		TransactionDate: date,
		ClientID:        nonEmpty(req.ClientID),
		AppointmentID:   nonEmpty(req.AppointmentID),
	}
	if typ == TypeExpense {
		tx.Category = nonEmpty(req.Category)
	}

	if tx.AppointmentID != nil && s.appointments != nil {
		appt, err := s.appointments.Get(ctx, *tx.AppointmentID)
		if err != nil {
			return nil, err
		}
		if tx.ClientID == nil {
			clientID := appt.ClientID
			tx.ClientID = &clientID
		}
	}
	if tx.ClientID != nil && s.directory != nil {
		if _, err := s.directory.Client(ctx, *tx.ClientID); err != nil {
			return nil, err
		}
	}

	stored, err := s.repo.Insert(ctx, tx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("clinic.transaction_id", stored.ID),
		attribute.String("clinic.transaction_type", string(stored.Type)),
	)
	s.logger.Info("transaction recorded", "transaction_id", stored.ID, "type", stored.Type, "amount", stored.Amount)
	return s.view(ctx, stored), nil
}

func (s *Service) views(ctx context.Context, rows []*Transaction) []*View {
	out := make([]*View, 0, len(rows))
	for _, t := range rows {
		out = append(out, s.view(ctx, t))
	}
	return out
}

func (s *Service) view(ctx context.Context, t *Transaction) *View {
	v := &View{Transaction: *t}
	if t.ClientID == nil || s.directory == nil {
		return v
	}
	client, err := s.directory.Client(ctx, *t.ClientID)
	if err != nil {
		if !errors.Is(err, directory.ErrClientNotFound) {
			s.logger.Warn("failed to join client", "transaction_id", t.ID, "error", err)
		}
		return v
	}
	v.Client = &ClientName{FirstName: client.FirstName, LastName: client.LastName}
	return v
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
