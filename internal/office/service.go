package office

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Invalidator drops cached reports after organisation names change.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service manages departments, sections, and units.
type Service struct {
	repo        Repository
	audit       shared.Auditor
	logger      *slog.Logger
	validate    *validator.Validate
	invalidator Invalidator
}

// Option customises a Service.
type Option func(*Service)

// WithInvalidator registers a hook run after every successful write.
func WithInvalidator(i Invalidator) Option {
	return func(s *Service) { s.invalidator = i }
}

// NewService wires a Service.
func NewService(repo Repository, audit shared.Auditor, logger *slog.Logger, opts ...Option) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, audit: audit, logger: logger, validate: validator.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

func (s *Service) GetDepartment(ctx context.Context, id int64) (Department, error) {
	return s.repo.GetDepartment(ctx, id)
}

// SaveDepartment creates the department when ID is zero and updates it otherwise.
func (s *Service) SaveDepartment(ctx context.Context, d Department) (Department, error) {
	d.Name, d.ShortName = strings.TrimSpace(d.Name), strings.TrimSpace(d.ShortName)
	if err := s.validate.Struct(d); err != nil {
		return Department{}, err
	}
	var (
		saved  Department
		err    error
		action = shared.AuditCreate
	)
	if d.ID == 0 {
		saved, err = s.repo.CreateDepartment(ctx, d)
	} else {
		action = shared.AuditUpdate
		saved, err = s.repo.UpdateDepartment(ctx, d)
	}
	if err != nil {
		return Department{}, err
	}
	s.record(ctx, action, "department", saved.ID, saved.Name)
	s.invalidate(ctx)
	return saved, nil
}

// DeleteDepartment removes the department and its sections.
func (s *Service) DeleteDepartment(ctx context.Context, id int64) error {
	if err := s.repo.DeleteDepartment(ctx, id); err != nil {
		return err
	}
	s.record(ctx, shared.AuditDelete, "department", id, "")
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListSections(ctx context.Context, departmentID int64) ([]Section, error) {
	return s.repo.ListSections(ctx, departmentID)
}

func (s *Service) GetSection(ctx context.Context, id int64) (Section, error) {
	return s.repo.GetSection(ctx, id)
}

// SaveSection creates or updates a section under an existing department.
func (s *Service) SaveSection(ctx context.Context, sec Section) (Section, error) {
	sec.Name, sec.ShortName = strings.TrimSpace(sec.Name), strings.TrimSpace(sec.ShortName)
	if err := s.validate.Struct(sec); err != nil {
		return Section{}, err
	}
	if _, err := s.repo.GetDepartment(ctx, sec.DepartmentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Section{}, ErrDepartmentMissing
		}
		return Section{}, err
	}
	var (
		saved  Section
		err    error
		action = shared.AuditCreate
	)
	if sec.ID == 0 {
		saved, err = s.repo.CreateSection(ctx, sec)
	} else {
		action = shared.AuditUpdate
		saved, err = s.repo.UpdateSection(ctx, sec)
	}
	if err != nil {
		return Section{}, err
	}
	s.record(ctx, action, "section", saved.ID, saved.Name)
	s.invalidate(ctx)
	return saved, nil
}

func (s *Service) DeleteSection(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSection(ctx, id); err != nil {
		return err
	}
	s.record(ctx, shared.AuditDelete, "section", id, "")
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListUnits(ctx context.Context) ([]Unit, error) {
	return s.repo.ListUnits(ctx)
}

func (s *Service) GetUnit(ctx context.Context, id int64) (Unit, error) {
	return s.repo.GetUnit(ctx, id)
}

// SaveUnit creates the unit when ID is zero and updates it otherwise.
func (s *Service) SaveUnit(ctx context.Context, u Unit) (Unit, error) {
	u.Name, u.ShortName = strings.TrimSpace(u.Name), strings.TrimSpace(u.ShortName)
	if err := s.validate.Struct(u); err != nil {
		return Unit{}, err
	}
	var (
		saved  Unit
		err    error
		action = shared.AuditCreate
	)
	if u.ID == 0 {
		saved, err = s.repo.CreateUnit(ctx, u)
	} else {
		action = shared.AuditUpdate
		saved, err = s.repo.UpdateUnit(ctx, u)
	}
	if err != nil {
		return Unit{}, err
	}
	s.record(ctx, action, "unit", saved.ID, saved.Name)
	s.invalidate(ctx)
	return saved, nil
}

func (s *Service) DeleteUnit(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUnit(ctx, id); err != nil {
		return err
	}
	s.record(ctx, shared.AuditDelete, "unit", id, "")
	s.invalidate(ctx)
	return nil
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, name string) {
	actor, _ := shared.ActorIDFromContext(ctx)
	meta := map[string]any{}
	if name != "" {
		meta["name"] = name
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   entity,
		EntityID: shared.EntityID(id),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit office", slog.String("entity", entity), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "office invalidate reports", slog.Any("error", err))
	}
}
