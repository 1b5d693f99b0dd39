package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/internal/notify"
	"github.com/wolfman30/counseling-clinic/internal/observability/metrics"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

var appointmentsTracer = otel.Tracer("clinic.internal.appointments")

// RecentLimit caps the recent-appointments feed.
const RecentLimit = 10

// LinkGenerator produces meeting links for online sessions.
type LinkGenerator interface {
	Generate() string
}

// Options wires the collaborators of Service.
type Options struct {
	Directory       directory.Repository
	Meet            LinkGenerator
	Notify          *notify.Composer
	Metrics         *metrics.BookingMetrics
	Location        *time.Location
	DefaultDuration int
	OverlapMode     OverlapMode
	Logger          *logging.Logger
}

// Service books and maintains appointments.
type Service struct {
	repo            Repository
	directory       directory.Repository
	meet            LinkGenerator
	notify          *notify.Composer
	metrics         *metrics.BookingMetrics
	location        *time.Location
	defaultDuration int
	overlapMode     OverlapMode
	logger          *logging.Logger
}

// NewService constructs an appointments service.
func NewService(repo Repository, opts Options) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if opts.Directory == nil {
		panic("appointments: directory required")
	}
	if opts.Meet == nil {
		panic("appointments: meet generator required")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Notify == nil {
		opts.Notify = notify.NewComposer("", opts.Location)
	}
	if opts.DefaultDuration <= 0 || opts.DefaultDuration > MaxDurationMinutes {
		opts.DefaultDuration = DefaultDurationMinutes
	}
	if opts.OverlapMode == "" {
		opts.OverlapMode = OverlapStartInWindow
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Service{
		repo:            repo,
		directory:       opts.Directory,
		meet:            opts.Meet,
		notify:          opts.Notify,
		metrics:         opts.Metrics,
		location:        opts.Location,
		defaultDuration: opts.DefaultDuration,
		overlapMode:     opts.OverlapMode,
		logger:          opts.Logger,
	}
}

func (s *Service) startSpan(ctx context.Context, name string, actor authz.Actor) (context.Context, trace.Span) {
	ctx, span := appointmentsTracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("clinic.actor.user_id", actor.UserID),
		attribute.String("clinic.actor.role", string(actor.Role)),
	)
	return ctx, span
}

// Create books a new session.
func (s *Service) Create(ctx context.Context, actor authz.Actor, req CreateRequest) (*View, error) {
	ctx, span := s.startSpan(ctx, "appointments.create", actor)
	defer span.End()
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("create", time.Since(started).Seconds()) }()

	view, err := s.create(ctx, actor, req)
	s.metrics.ObserveBooking(bookingOutcome(err))
	if err != nil {
		span.RecordError(err)
		s.logOutcome("booking rejected", err, "user_id", actor.UserID, "personnel_id", req.PersonnelID)
		return nil, err
	}
	span.SetAttributes(attribute.String("clinic.appointment_id", view.ID))
	s.logger.Info("appointment booked",
		"appointment_id", view.ID,
		"personnel_id", view.PersonnelID,
		"client_id", view.ClientID,
		"online", view.IsOnline,
	)
	return view, nil
}

func (s *Service) create(ctx context.Context, actor authz.Actor, req CreateRequest) (*View, error) {
	if err := authz.Authorize(actor, authz.ActionAppointmentCreate); err != nil {
		return nil, err
	}

	if actor.Role == authz.RoleClient {
		clientID, err := s.resolveClientID(ctx, actor)
		if err != nil {
			return nil, err
		}
		req.ClientID = clientID
	}

	req.ClientID = strings.TrimSpace(req.ClientID)
	req.PersonnelID = strings.TrimSpace(req.PersonnelID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.ClientID == "" || req.PersonnelID == "" || req.ServiceID == "" || strings.TrimSpace(req.AppointmentDate) == "" {
		return nil, ErrMissingFields
	}

	start, err := ParseDate(req.AppointmentDate, s.location)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.AppointmentDate)
	}
	duration := s.defaultDuration
	if req.Duration != nil {
		switch {
		case *req.Duration < 0 || *req.Duration > MaxDurationMinutes:
			return nil, ErrInvalidDuration
		case *req.Duration > 0:
			duration = *req.Duration
		}
	}

	client, err := s.directory.Client(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("appointments: load client: %w", err)
	}
	practitioner, err := s.directory.Personnel(ctx, req.PersonnelID)
	if err != nil {
		return nil, fmt.Errorf("appointments: load personnel: %w", err)
	}
	service, err := s.directory.Service(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("appointments: load service: %w", err)
	}

	window := Window{
		PersonnelID: req.PersonnelID,
		Start:       start,
		End:         start.Add(time.Duration(duration) * time.Minute),
		Mode:        s.overlapMode,
	}
	existing, err := s.repo.FindConflict(ctx, window)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	appt := &Appointment{
		ClientID:        req.ClientID,
		PersonnelID:     req.PersonnelID,
		ServiceID:       req.ServiceID,
		AppointmentDate: start,
		Duration:        duration,
		Status:          StatusScheduled,
		IsOnline:        req.IsOnline != nil && *req.IsOnline,
		Price:           req.Price,
		Notes:           req.Notes,
	}
	if appt.IsOnline {
		link := s.meet.Generate()
		appt.MeetLink = &link
		s.metrics.ObserveMeetLink()
	}

	stored, err := s.repo.Insert(ctx, appt, window)
	if err != nil {
		return nil, err
	}

	view := newView(stored, client, practitioner, service)
	if stored.IsOnline && stored.MeetLink != nil && client.HasPhone() {
		msg := s.notify.ComposeBookingMessage(client.FullName(), stored.AppointmentDate, practitioner.FullName(), *stored.MeetLink)
		view.WhatsAppLink = s.notify.ComposeLink(*client.Phone, msg)
	}
	return view, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id string, patch UpdateRequest) (*View, error) {
	ctx, span := s.startSpan(ctx, "appointments.update", actor)
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id))

	if err := authz.Authorize(actor, authz.ActionAppointmentUpdate); err != nil {
		span.RecordError(err)
		return nil, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	next, err := s.applyPatch(ctx, current, patch)
	if err != nil {
		span.RecordError(err)
		s.logOutcome("appointment update rejected", err, "appointment_id", id)
		return nil, err
	}

	stored, err := s.repo.Update(ctx, next)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if stored.Status != current.Status {
		s.metrics.ObserveTransition(string(current.Status), string(stored.Status))
	}
	s.logger.Info("appointment updated", "appointment_id", id, "status", stored.Status, "online", stored.IsOnline)
	return s.view(ctx, stored), nil
}

// applyPatch merges patch into a copy of current and enforces the online and lifecycle rules.
// Changed client, personnel and service references must resolve in the directory.
func (s *Service) applyPatch(ctx context.Context, current *Appointment, patch UpdateRequest) (*Appointment, error) {
	next := *current

	if patch.ClientID != nil {
		id := strings.TrimSpace(*patch.ClientID)
		if id == "" {
			return nil, ErrMissingFields
		}
		if id != current.ClientID {
			if _, err := s.directory.Client(ctx, id); err != nil {
				return nil, fmt.Errorf("appointments: load client: %w", err)
			}
		}
		next.ClientID = id
	}
	if patch.PersonnelID != nil {
		id := strings.TrimSpace(*patch.PersonnelID)
		if id == "" {
			return nil, ErrMissingFields
		}
		if id != current.PersonnelID {
			if _, err := s.directory.Personnel(ctx, id); err != nil {
				return nil, fmt.Errorf("appointments: load personnel: %w", err)
			}
		}
		next.PersonnelID = id
	}
	if patch.ServiceID != nil {
		id := strings.TrimSpace(*patch.ServiceID)
		if id == "" {
			return nil, ErrMissingFields
		}
		if id != current.ServiceID {
			if _, err := s.directory.Service(ctx, id); err != nil {
				return nil, fmt.Errorf("appointments: load service: %w", err)
			}
		}
		next.ServiceID = id
	}
	if patch.AppointmentDate != nil {
		t, err := ParseDate(*patch.AppointmentDate, s.location)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, *patch.AppointmentDate)
		}
		next.AppointmentDate = t
	}
	if patch.Duration != nil {
		if *patch.Duration <= 0 || *patch.Duration > MaxDurationMinutes {
			return nil, ErrInvalidDuration
		}
		next.Duration = *patch.Duration
	}
	if patch.Status != nil {
		to := Status(strings.ToUpper(strings.TrimSpace(string(*patch.Status))))
		if !to.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
		}
		if !CanTransition(current.Status, to) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
		}
		next.Status = to
	}
	if patch.Notes != nil {
		next.Notes = patch.Notes
	}
	if patch.Price != nil {
		next.Price = patch.Price
	}
	if patch.MeetLink != nil {
		link := strings.TrimSpace(*patch.MeetLink)
		if link == "" {
			next.MeetLink = nil
		} else {
			next.MeetLink = &link
		}
	}
	if patch.IsOnline != nil {
		next.IsOnline = *patch.IsOnline
	}

	if !next.IsOnline {
		next.MeetLink = nil
	} else if next.MeetLink == nil {
		link := s.meet.Generate()
		next.MeetLink = &link
		s.metrics.ObserveMeetLink()
	}
	return &next, nil
}

// Delete hard-deletes an appointment.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id string) error {
	ctx, span := s.startSpan(ctx, "appointments.delete", actor)
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id))

	if err := authz.Authorize(actor, authz.ActionAppointmentDelete); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("appointment deleted", "appointment_id", id, "user_id", actor.UserID)
	return nil
}

// ListQuery narrows a list to a date range.
type ListQuery struct {
	From *time.Time
	To   *time.Time
}

// List returns the appointments visible to actor, earliest first.
func (s *Service) List(ctx context.Context, actor authz.Actor, q ListQuery) ([]*View, error) {
	ctx, span := s.startSpan(ctx, "appointments.list", actor)
	defer span.End()

	filter, ok, err := s.scope(ctx, actor, authz.ActionAppointmentList)
	if err != nil || !ok {
		return []*View{}, err
	}
	filter.From, filter.To = q.From, q.To
	filter.Order = SortAscending
	return s.list(ctx, filter)
}

// Recent returns the latest appointments visible to actor, newest first.
func (s *Service) Recent(ctx context.Context, actor authz.Actor) ([]*View, error) {
	ctx, span := s.startSpan(ctx, "appointments.recent", actor)
	defer span.End()

	filter, ok, err := s.scope(ctx, actor, authz.ActionAppointmentList)
	if err != nil || !ok {
		return []*View{}, err
	}
	filter.Order = SortDescending
	filter.Limit = RecentLimit
	return s.list(ctx, filter)
}

// ListForClient returns the calling client's own appointments, newest first.
func (s *Service) ListForClient(ctx context.Context, actor authz.Actor) ([]*View, error) {
	ctx, span := s.startSpan(ctx, "appointments.list_own", actor)
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionAppointmentListOwn); err != nil {
		return nil, err
	}
	clientID, err := s.resolveClientID(ctx, actor)
	if errors.Is(err, directory.ErrClientNotFound) {
		return []*View{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.list(ctx, Filter{ClientID: clientID, Order: SortDescending})
}

// Get returns one appointment. Clients and psychologists may only read their own.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id string) (*View, error) {
	ctx, span := s.startSpan(ctx, "appointments.get", actor)
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionAppointmentList); err != nil {
		return nil, err
	}
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case authz.RoleClient:
		clientID, err := s.resolveClientID(ctx, actor)
		if err != nil && !errors.Is(err, directory.ErrClientNotFound) {
			return nil, err
		}
		if clientID == "" || clientID != appt.ClientID {
			return nil, fmt.Errorf("%w: appointment belongs to another client", authz.ErrPermissionDenied)
		}
	case authz.RolePsychologist:
		personnelID, err := s.resolvePersonnelID(ctx, actor)
		if err != nil && !errors.Is(err, directory.ErrPersonnelNotFound) {
			return nil, err
		}
		if personnelID == "" || personnelID != appt.PersonnelID {
			return nil, fmt.Errorf("%w: appointment belongs to another practitioner", authz.ErrPermissionDenied)
		}
	}
	return s.view(ctx, appt), nil
}

// ExportAll returns every appointment for the CSV export, earliest first.
func (s *Service) ExportAll(ctx context.Context, actor authz.Actor, q ListQuery) ([]*View, error) {
	ctx, span := s.startSpan(ctx, "appointments.export", actor)
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionAppointmentExport); err != nil {
		return nil, err
	}
	return s.list(ctx, Filter{From: q.From, To: q.To, Order: SortAscending})
}

// Location is the clinic time zone used for parsing and rendering.
func (s *Service) Location() *time.Location {
	return s.location
}

// scope builds the role-based filter. ok is false when the actor maps to no
// directory entry and therefore sees nothing.
func (s *Service) scope(ctx context.Context, actor authz.Actor, action authz.Action) (Filter, bool, error) {
	if err := authz.Authorize(actor, action); err != nil {
		return Filter{}, false, err
	}
	switch actor.Role {
	case authz.RolePsychologist:
		personnelID, err := s.resolvePersonnelID(ctx, actor)
		if errors.Is(err, directory.ErrPersonnelNotFound) {
			return Filter{}, false, nil
		}
		if err != nil {
			return Filter{}, false, err
		}
		return Filter{PersonnelID: personnelID}, true, nil
	case authz.RoleClient:
		clientID, err := s.resolveClientID(ctx, actor)
		if errors.Is(err, directory.ErrClientNotFound) {
			return Filter{}, false, nil
		}
		if err != nil {
			return Filter{}, false, err
		}
		return Filter{ClientID: clientID}, true, nil
	}
	return Filter{}, true, nil
}

func (s *Service) list(ctx context.Context, f Filter) ([]*View, error) {
	rows, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*View, 0, len(rows))
	for _, appt := range rows {
		out = append(out, s.view(ctx, appt))
	}
	return out, nil
}

func (s *Service) resolveClientID(ctx context.Context, actor authz.Actor) (string, error) {
	if actor.ClientID != "" {
		return actor.ClientID, nil
	}
	client, err := s.directory.ClientByUserID(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	return client.ID, nil
}

func (s *Service) resolvePersonnelID(ctx context.Context, actor authz.Actor) (string, error) {
	if actor.PersonnelID != "" {
		return actor.PersonnelID, nil
	}
	p, err := s.directory.PersonnelByUserID(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// view joins directory data. Entries that no longer resolve are left out.
func (s *Service) view(ctx context.Context, appt *Appointment) *View {
	client, err := s.directory.Client(ctx, appt.ClientID)
	if err != nil && !directory.IsNotFound(err) {
		s.logger.Warn("failed to join client", "appointment_id", appt.ID, "error", err)
	}
	practitioner, err := s.directory.Personnel(ctx, appt.PersonnelID)
	if err != nil && !directory.IsNotFound(err) {
		s.logger.Warn("failed to join personnel", "appointment_id", appt.ID, "error", err)
	}
	service, err := s.directory.Service(ctx, appt.ServiceID)
	if err != nil && !directory.IsNotFound(err) {
		s.logger.Warn("failed to join service", "appointment_id", appt.ID, "error", err)
	}
	return newView(appt, client, practitioner, service)
}

func newView(appt *Appointment, client *directory.Client, practitioner *directory.Personnel, service *directory.Service) *View {
	v := &View{Appointment: *appt}
	if client != nil {
		v.Client = &ClientSummary{
			FirstName: client.FirstName,
			LastName:  client.LastName,
			Phone:     client.Phone,
			Email:     client.Email,
		}
	}
	if practitioner != nil {
		v.Personnel = &PersonnelSummary{FirstName: practitioner.FirstName, LastName: practitioner.LastName}
	}
	if service != nil {
		v.Service = &ServiceSummary{Name: service.Name}
	}
	return v
}

func (s *Service) logOutcome(msg string, err error, args ...any) {
	args = append(args, "error", err)
	switch {
	case IsValidation(err), errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound), directory.IsNotFound(err):
		s.logger.Info(msg, args...)
	case errors.Is(err, authz.ErrPermissionDenied), errors.Is(err, authz.ErrUnauthenticated):
		s.logger.Warn(msg, args...)
	default:
		s.logger.Error(msg, args...)
	}
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCreated
	case errors.Is(err, ErrConflict):
		return metrics.OutcomeConflict
	case IsValidation(err):
		return metrics.OutcomeInvalid
	case directory.IsNotFound(err), errors.Is(err, ErrReferenceMissing):
		return metrics.OutcomeNotFound
	case errors.Is(err, authz.ErrPermissionDenied), errors.Is(err, authz.ErrUnauthenticated):
		return metrics.OutcomeForbidden
	}
	return metrics.OutcomeError
}
