package assignments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/counseling-clinic/internal/appointments"
	"github.com/wolfman30/counseling-clinic/internal/attachments"
	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

var assignmentsTracer = otel.Tracer("clinic.internal.assignments")

// FileStore keeps uploaded files. *attachments.Store satisfies it.
type FileStore interface {
	Upload(ctx context.Context, fileName, contentType string, body io.Reader) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service implements the homework workflow between practitioners and clients.
type Service struct {
	repo      Repository
	directory directory.Repository
	files     FileStore
	location  *time.Location
	now       func() time.Time
	logger    *logging.Logger
}

// NewService wires the assignment service. files may be nil when storage is not configured.
func NewService(repo Repository, dir directory.Repository, files FileStore, loc *time.Location, logger *logging.Logger) *Service {
	if repo == nil {
		panic("assignments: repository required")
	}
	if dir == nil {
		panic("assignments: directory required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, directory: dir, files: files, location: loc, now: time.Now, logger: logger}
}

func (s *Service) startSpan(ctx context.Context, name string, actor authz.Actor) (context.Context, trace.Span) {
	ctx, span := assignmentsTracer.Start(ctx, name)
	span.SetAttributes(attribute.String("clinic.actor.role", string(actor.Role)))
	return ctx, span
}

// List returns assignments visible to actor after flagging overdue ones.
// Clients and psychologists are pinned to their own records; managers may filter.
func (s *Service) List(ctx context.Context, actor authz.Actor, f Filter) ([]*View, error) {
	ctx, span := s.startSpan(ctx, "assignments.list", actor)
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionAssignmentList); err != nil {
		return nil, err
	}
	switch actor.Role {
	case authz.RoleClient:
		clientID, err := s.clientID(ctx, actor)
		if err != nil {
			return nil, err
		}
		f.ClientID, f.PersonnelID = clientID, ""
	case authz.RolePsychologist:
		personnelID, err := s.personnelID(ctx, actor)
		if err != nil {
			return nil, err
		}
		f.ClientID, f.PersonnelID = "", personnelID
	}

	if n, err := s.repo.MarkOverdue(ctx, f, s.now()); err != nil {
		return nil, err
	} else if n > 0 {
		s.logger.Info("assignments marked overdue", "count", n)
	}

	rows, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	views := make([]*View, 0, len(rows))
	for _, a := range rows {
		views = append(views, s.view(ctx, a))
	}
	return views, nil
}

// Create hands out a new assignment. Psychologists always assign as themselves.
func (s *Service) Create(ctx context.Context, actor authz.Actor, req CreateRequest, uploads []Upload) (*View, error) {
	ctx, span := s.startSpan(ctx, "assignments.create", actor)
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionAssignmentCreate); err != nil {
		return nil, err
	}
	if actor.Role == authz.RolePsychologist {
		personnelID, err := s.personnelID(ctx, actor)
		if err != nil {
			return nil, err
		}
		req.PersonnelID = personnelID
	}

	req.ClientID = strings.TrimSpace(req.ClientID)
	req.PersonnelID = strings.TrimSpace(req.PersonnelID)
	req.Title = strings.TrimSpace(req.Title)
	if req.ClientID == "" || req.PersonnelID == "" || req.Title == "" || strings.TrimSpace(req.Type) == "" {
		return nil, ErrMissingFields
	}
	typ, ok := ParseType(req.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}
	due, err := s.parseDue(req.DueDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.Client(ctx, req.ClientID); err != nil {
		return nil, err
	}
	if _, err := s.directory.Personnel(ctx, req.PersonnelID); err != nil {
		return nil, err
	}

	files, err := s.store(ctx, uploads)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Insert(ctx, &Assignment{
		ClientID:    req.ClientID,
		PersonnelID: req.PersonnelID,
		Title:       req.Title,
		Description: req.Description,
		Type:        typ,
		DueDate:     due,
		Status:      StatusPending,
		Attachments: files,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("assignment created", "assignment_id", created.ID, "client_id", created.ClientID, "personnel_id", created.PersonnelID)
	return s.view(ctx, created), nil
}

// Update applies patch and stores uploads. Clients may only touch their own
// progress fields and their uploads become submissions; staff uploads become
// attachments.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id string, patch UpdateRequest, uploads []Upload) (*View, error) {
	ctx, span := s.startSpan(ctx, "assignments.update", actor)
	defer span.End()

	action := authz.ActionAssignmentUpdate
	if len(uploads) > 0 {
		action = authz.ActionAssignmentUpload
	}
	if err := authz.Authorize(actor, action); err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, actor, a); err != nil {
		return nil, err
	}
	isClient := actor.Role == authz.RoleClient
	if isClient && patch.touchesStaffFields() {
		return nil, fmt.Errorf("%w: clients may only report progress", authz.ErrPermissionDenied)
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, ErrMissingFields
		}
		a.Title = title
	}
	if patch.Description != nil {
		a.Description = patch.Description
	}
	if patch.Type != nil {
		typ, ok := ParseType(*patch.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidType, *patch.Type)
		}
		a.Type = typ
	}
	if patch.DueDate != nil {
		due, err := s.parseDue(patch.DueDate)
		if err != nil {
			return nil, err
		}
		a.DueDate = due
	}
	if patch.Status != nil {
		status, ok := ParseStatus(*patch.Status)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
		}
		if status == StatusCompleted && a.Status != StatusCompleted {
			now := s.now().UTC()
			a.CompletedAt = &now
		} else if status != StatusCompleted {
			a.CompletedAt = nil
		}
		a.Status = status
	}
	if patch.Notes != nil {
		a.Notes = patch.Notes
	}
	if patch.ClientFeedback != nil {
		a.ClientFeedback = patch.ClientFeedback
	}

	files, err := s.store(ctx, uploads)
	if err != nil {
		return nil, err
	}
	if isClient {
		a.Submissions = append(a.Submissions, files...)
	} else {
		a.Attachments = append(a.Attachments, files...)
	}

	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, updated), nil
}

// Delete removes an assignment and, best effort, its stored files.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id string) error {
	ctx, span := s.startSpan(ctx, "assignments.delete", actor)
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionAssignmentDelete); err != nil {
		return err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkOwner(ctx, actor, a); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.files != nil {
		for _, f := range append(a.Attachments, a.Submissions...) {
			if err := s.files.Delete(ctx, f.Path); err != nil {
				s.logger.Warn("failed to delete assignment file", "assignment_id", id, "s3_key", f.Path, "error", err)
			}
		}
	}
	return nil
}

// DownloadURL returns a short-lived link to a stored file.
func (s *Service) DownloadURL(ctx context.Context, actor authz.Actor, key string) (string, error) {
	ctx, span := s.startSpan(ctx, "assignments.download", actor)
	defer span.End()

	if err := authz.Authorize(actor, authz.ActionAssignmentDownload); err != nil {
		return "", err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrMissingPath
	}
	if s.files == nil {
		return "", attachments.ErrDisabled
	}
	return s.files.URL(ctx, key)
}

// checkOwner lets administrators through and pins everyone else to their own assignments.
func (s *Service) checkOwner(ctx context.Context, actor authz.Actor, a *Assignment) error {
	switch actor.Role {
	case authz.RoleAdministrator:
		return nil
	case authz.RolePsychologist:
		personnelID, err := s.personnelID(ctx, actor)
		if err != nil && !errors.Is(err, directory.ErrPersonnelNotFound) {
			return err
		}
		if personnelID != "" && personnelID == a.PersonnelID {
			return nil
		}
	case authz.RoleClient:
		clientID, err := s.clientID(ctx, actor)
		if err != nil && !errors.Is(err, directory.ErrClientNotFound) {
			return err
		}
		if clientID != "" && clientID == a.ClientID {
			return nil
		}
	}
	return fmt.Errorf("%w: assignment belongs to someone else", authz.ErrPermissionDenied)
}

func (s *Service) store(ctx context.Context, uploads []Upload) ([]File, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.files == nil {
		return nil, attachments.ErrDisabled
	}
	out := make([]File, 0, len(uploads))
	for _, u := range uploads {
		key, err := s.files.Upload(ctx, u.Name, u.ContentType, u.Body)
		if err != nil {
			return nil, err
		}
		out = append(out, File{Name: u.Name, Path: key})
	}
	return out, nil
}

func (s *Service) parseDue(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := appointments.ParseDate(*raw, s.location)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02", strings.TrimSpace(*raw), s.location)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, *raw)
	}
	t = t.UTC()
	return &t, nil
}

func (s *Service) clientID(ctx context.Context, actor authz.Actor) (string, error) {
	if actor.ClientID != "" {
		return actor.ClientID, nil
	}
	c, err := s.directory.ClientByUserID(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *Service) personnelID(ctx context.Context, actor authz.Actor) (string, error) {
	if actor.PersonnelID != "" {
		return actor.PersonnelID, nil
	}
	p, err := s.directory.PersonnelByUserID(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (s *Service) view(ctx context.Context, a *Assignment) *View {
	v := &View{Assignment: *a}
	if v.Attachments == nil {
		v.Attachments = []File{}
	}
	if v.Submissions == nil {
		v.Submissions = []File{}
	}
	if c, err := s.directory.Client(ctx, a.ClientID); err == nil {
		v.Client = &Person{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName}
	} else if !directory.IsNotFound(err) {
		s.logger.Warn("client lookup failed", "client_id", a.ClientID, "error", err)
	}
	if p, err := s.directory.Personnel(ctx, a.PersonnelID); err == nil {
		v.Personnel = &Person{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName}
	} else if !directory.IsNotFound(err) {
		s.logger.Warn("personnel lookup failed", "personnel_id", a.PersonnelID, "error", err)
	}
	return v
}
