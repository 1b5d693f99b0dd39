package directory

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

var directoryTracer = otel.Tracer("clinic.internal.directory")

// ReferenceCheck reports whether records outside the directory still point at kind/id.
type ReferenceCheck func(ctx context.Context, kind Kind, id string) (bool, error)

// Manager applies the permission table and input rules to directory reads and writes.
type Manager struct {
	store  Store
	checks []ReferenceCheck
	logger *logging.Logger
}

// NewManager constructs a Manager. checks run before a client or service is deleted.
func NewManager(store Store, logger *logging.Logger, checks ...ReferenceCheck) *Manager {
	if store == nil {
		panic("directory: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{store: store, checks: checks, logger: logger}
}

// ListServices returns the active catalog.
func (m *Manager) ListServices(ctx context.Context, actor authz.Actor) ([]*Service, error) {
	if err := authz.Authorize(actor, authz.ActionServiceList); err != nil {
		return nil, err
	}
	return m.store.ListServices(ctx)
}

// ListPersonnel returns bookable staff.
func (m *Manager) ListPersonnel(ctx context.Context, actor authz.Actor) ([]*Personnel, error) {
	if err := authz.Authorize(actor, authz.ActionPersonnelList); err != nil {
		return nil, err
	}
	return m.store.ListPersonnel(ctx)
}

// ListClients returns every client, active or not.
func (m *Manager) ListClients(ctx context.Context, actor authz.Actor) ([]*Client, error) {
	if err := authz.Authorize(actor, authz.ActionClientList); err != nil {
		return nil, err
	}
	return m.store.ListClients(ctx)
}

// GetClient returns one client. A client may only read their own record.
func (m *Manager) GetClient(ctx context.Context, actor authz.Actor, id string) (*Client, error) {
	if err := authz.Authorize(actor, authz.ActionClientView); err != nil {
		return nil, err
	}
	c, err := m.store.Client(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if actor.Role == authz.RoleClient && actor.ClientID != c.ID && actor.UserID != c.UserID {
		return nil, fmt.Errorf("%w: record belongs to another client", authz.ErrPermissionDenied)
	}
	return c, nil
}

// CreateClient registers a client. First name, last name and email are required.
func (m *Manager) CreateClient(ctx context.Context, actor authz.Actor, in ClientInput) (*Client, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.create_client")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionClientManage); err != nil {
		return nil, err
	}
	c, err := clientFromInput(in, true)
	if err != nil {
		return nil, err
	}
	out, err := m.store.CreateClient(ctx, c)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("client.id", out.ID))
	m.logger.Info("client created", "client_id", out.ID, "actor", actor.UserID)
	return out, nil
}

// UpdateClient replaces a client's profile. A blank email keeps the one on file.
func (m *Manager) UpdateClient(ctx context.Context, actor authz.Actor, id string, in ClientInput) (*Client, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.update_client")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionClientManage); err != nil {
		return nil, err
	}
	current, err := m.store.Client(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	c, err := clientFromInput(in, false)
	if err != nil {
		return nil, err
	}
	c.ID = current.ID
	if c.Email == nil {
		c.Email = current.Email
	}
	if c.UserID == "" {
		c.UserID = current.UserID
	}
	if in.IsActive == nil {
		c.IsActive = current.IsActive
	}
	out, err := m.store.UpdateClient(ctx, c)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// DeleteClient removes a client that nothing references any more.
func (m *Manager) DeleteClient(ctx context.Context, actor authz.Actor, id string) error {
	ctx, span := directoryTracer.Start(ctx, "directory.delete_client")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionClientDelete); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if _, err := m.store.Client(ctx, id); err != nil {
		return err
	}
	if err := m.ensureUnreferenced(ctx, KindClient, id); err != nil {
		return err
	}
	if err := m.store.DeleteClient(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	m.logger.Info("client deleted", "client_id", id, "actor", actor.UserID)
	return nil
}

// CreatePersonnel adds a staff member.
func (m *Manager) CreatePersonnel(ctx context.Context, actor authz.Actor, in PersonnelInput) (*Personnel, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.create_personnel")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionPersonnelCreate); err != nil {
		return nil, err
	}
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" || last == "" || strings.TrimSpace(in.Role) == "" {
		return nil, ErrMissingFields
	}
	role, err := authz.ParseRole(in.Role)
	if err != nil || !role.IsStaff() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, in.Role)
	}
	p := &Personnel{
		UserID:         strings.TrimSpace(in.UserID),
		FirstName:      first,
		LastName:       last,
		Phone:          optional(in.Phone),
		Specialization: optional(in.Specialization),
		Role:           string(role),
		IsActive:       boolOr(in.IsActive, true),
	}
	out, err := m.store.CreatePersonnel(ctx, p)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	m.logger.Info("personnel created", "personnel_id", out.ID, "role", out.Role, "actor", actor.UserID)
	return out, nil
}

// CreateService adds a catalog entry.
func (m *Manager) CreateService(ctx context.Context, actor authz.Actor, in ServiceInput) (*Service, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.create_service")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionServiceManage); err != nil {
		return nil, err
	}
	s, err := serviceFromInput(in)
	if err != nil {
		return nil, err
	}
	s.IsActive = boolOr(in.IsActive, true)
	out, err := m.store.CreateService(ctx, s)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// UpdateService replaces a catalog entry. Omitted isActive keeps the current flag.
func (m *Manager) UpdateService(ctx context.Context, actor authz.Actor, id string, in ServiceInput) (*Service, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.update_service")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionServiceManage); err != nil {
		return nil, err
	}
	current, err := m.store.Service(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	s, err := serviceFromInput(in)
	if err != nil {
		return nil, err
	}
	s.ID = current.ID
	s.IsActive = boolOr(in.IsActive, current.IsActive)
	out, err := m.store.UpdateService(ctx, s)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// DeleteService removes a catalog entry no appointment or package uses.
func (m *Manager) DeleteService(ctx context.Context, actor authz.Actor, id string) error {
	ctx, span := directoryTracer.Start(ctx, "directory.delete_service")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionServiceManage); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if _, err := m.store.Service(ctx, id); err != nil {
		return err
	}
	if err := m.ensureUnreferenced(ctx, KindService, id); err != nil {
		return err
	}
	if err := m.store.DeleteService(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	m.logger.Info("service deleted", "service_id", id, "actor", actor.UserID)
	return nil
}

func (m *Manager) ensureUnreferenced(ctx context.Context, kind Kind, id string) error {
	for _, check := range m.checks {
		used, err := check(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("directory: reference check: %w", err)
		}
		if used {
			return ErrInUse
		}
	}
	return nil
}

func clientFromInput(in ClientInput, requireEmail bool) (*Client, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if first == "" || last == "" || (requireEmail && email == "") {
		return nil, ErrMissingFields
	}
	c := &Client{
		UserID:    strings.TrimSpace(in.UserID),
		FirstName: first,
		LastName:  last,
		Phone:     optional(in.Phone),
		Photo:     optional(in.Photo),
		IsActive:  boolOr(in.IsActive, true),
	}
	if email != "" {
		c.Email = &email
	}
	return c, nil
}

func serviceFromInput(in ServiceInput) (*Service, error) {
	name, typ := strings.TrimSpace(in.Name), strings.ToUpper(strings.TrimSpace(in.ServiceType))
	if name == "" || typ == "" {
		return nil, ErrMissingFields
	}
	if in.Duration <= 0 || in.Duration > MaxServiceMinutes {
		return nil, ErrInvalidDuration
	}
	if in.Price == nil || *in.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	price := *in.Price
	return &Service{
		Name:        name,
		Description: optional(in.Description),
		Duration:    in.Duration,
		Price:       &price,
		ServiceType: typ,
	}, nil
}
