package packages

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

var packagesTracer = otel.Tracer("clinic.internal.packages")

// Service creates and lists session packages.
type Service struct {
	repo      Repository
	directory directory.Repository
	logger    *logging.Logger
}

// NewService constructs a package service.
func NewService(repo Repository, dir directory.Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("packages: repository required")
	}
	if dir == nil {
		panic("packages: directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, directory: dir, logger: logger}
}

// List returns every package, newest first, with each line's service attached.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]*Package, error) {
	ctx, span := packagesTracer.Start(ctx, "packages.list")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionPackageList); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, p := range out {
		s.attachServices(ctx, p)
	}
	return out, nil
}

// Get returns one package.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id string) (*Package, error) {
	if err := authz.Authorize(actor, authz.ActionPackageList); err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	s.attachServices(ctx, p)
	return p, nil
}

// Create validates in and stores a new package.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in Input) (*Package, error) {
	ctx, span := packagesTracer.Start(ctx, "packages.create")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionPackageManage); err != nil {
		return nil, err
	}
	p, err := s.fromInput(ctx, in)
	if err != nil {
		return nil, err
	}
	p.IsActive = in.IsActive == nil || *in.IsActive
	out, err := s.repo.Insert(ctx, p)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("package.id", out.ID))
	s.logger.Info("package created", "package_id", out.ID, "services", len(out.Services), "actor", actor.UserID)
	s.attachServices(ctx, out)
	return out, nil
}

// Update replaces a package and its service lines. Omitted isActive keeps the current flag.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id string, in Input) (*Package, error) {
	ctx, span := packagesTracer.Start(ctx, "packages.update")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionPackageManage); err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	p, err := s.fromInput(ctx, in)
	if err != nil {
		return nil, err
	}
	p.ID = current.ID
	p.IsActive = current.IsActive
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	out, err := s.repo.Replace(ctx, p)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.attachServices(ctx, out)
	return out, nil
}

// Delete removes a package.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id string) error {
	ctx, span := packagesTracer.Start(ctx, "packages.delete")
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionPackageManage); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("package deleted", "package_id", id, "actor", actor.UserID)
	return nil
}

func (s *Service) fromInput(ctx context.Context, in Input) (*Package, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.TotalSessions == 0 || in.TotalPrice == 0 || len(in.Services) == 0 {
		return nil, ErrMissingFields
	}
	if in.TotalSessions < 0 {
		return nil, ErrInvalidSessions
	}
	if in.TotalPrice < 0 {
		return nil, ErrInvalidPrice
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		return nil, ErrInvalidDiscount
	}
	if in.ValidityDays != nil && *in.ValidityDays <= 0 {
		return nil, ErrInvalidValidity
	}

	seen := make(map[string]bool, len(in.Services))
	lines := make([]PackageService, 0, len(in.Services))
	for _, line := range in.Services {
		id := strings.TrimSpace(line.ServiceID)
		if id == "" {
			return nil, ErrMissingFields
		}
		if line.Sessions <= 0 {
			return nil, ErrInvalidSessions
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateService, id)
		}
		seen[id] = true
		if _, err := s.directory.Service(ctx, id); err != nil {
			return nil, fmt.Errorf("packages: load service: %w", err)
		}
		lines = append(lines, PackageService{ServiceID: id, Sessions: line.Sessions})
	}

	p := &Package{
		Name:            name,
		TotalSessions:   in.TotalSessions,
		TotalPrice:      in.TotalPrice,
		DiscountPercent: in.DiscountPercent,
		ValidityDays:    in.ValidityDays,
		Services:        lines,
	}
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != "" {
			p.Description = &d
		}
	}
	return p, nil
}

// attachServices fills each line's catalog entry. Missing services stay nil.
func (s *Service) attachServices(ctx context.Context, p *Package) {
	for i := range p.Services {
		svc, err := s.directory.Service(ctx, p.Services[i].ServiceID)
		if err != nil {
			if !directory.IsNotFound(err) {
				s.logger.Warn("package service lookup failed", "package_id", p.ID, "service_id", p.Services[i].ServiceID, "error", err)
			}
			continue
		}
		p.Services[i].Service = svc
	}
}
