package activities

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-office/internal/scope"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Invalidator drops cached reports after an activity changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service applies scope and visibility rules to activities.
type Service struct {
	repo        Repository
	audit       shared.Auditor
	logger      *slog.Logger
	validate    *validator.Validate
	now         func() time.Time
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
	s := &Service{repo: repo, audit: audit, logger: logger, validate: validator.New(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the activities visible to p.
func (s *Service) List(ctx context.Context, p scope.Principal, filter ListFilter) ([]Activity, shared.Pagination, error) {
	vis := VisibilityFor(p)
	items, total, err := s.repo.List(ctx, vis, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range items {
		items[i].Scope = classifyStored(items[i])
	}
	page := shared.PageParams{Page: filter.Page, PerPage: filter.PerPage}
	return items, shared.NewPagination(page.Page, page.Limit(), total), nil
}

// Get loads an activity visible to p. Invisible activities report ErrNotFound.
func (s *Service) Get(ctx context.Context, p scope.Principal, id int64) (Activity, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if !VisibilityFor(p).Allows(a) {
		return Activity{}, ErrNotFound
	}
	a.Scope = classifyStored(a)
	return a, nil
}

// Create resolves the effective scope for p, classifies it and stores the activity.
func (s *Service) Create(ctx context.Context, p scope.Principal, in Input) (Activity, error) {
	a, err := s.prepare(p, in)
	if err != nil {
		return Activity{}, err
	}
	if actor, ok := shared.ActorIDFromContext(ctx); ok {
		a.CreatedBy = &actor
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Activity{}, err
	}
	created.Scope = a.Scope
	s.record(ctx, shared.AuditCreate, created)
	s.invalidate(ctx)
	return created, nil
}

// Update rewrites an activity visible to p.
func (s *Service) Update(ctx context.Context, p scope.Principal, id int64, in Input) (Activity, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return Activity{}, err
	}
	a, err := s.prepare(p, in)
	if err != nil {
		return Activity{}, err
	}
	a.ID = id
	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return Activity{}, err
	}
	updated.Scope = a.Scope
	s.record(ctx, shared.AuditUpdate, updated)
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes an activity visible to p.
func (s *Service) Delete(ctx context.Context, p scope.Principal, id int64) error {
	a, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, shared.AuditDelete, a)
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "activities invalidate reports", slog.Any("error", err))
	}
}

func (s *Service) prepare(p scope.Principal, in Input) (Activity, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Activity{}, err
	}
	classified, _, err := scope.ResolveActivity(p, in.ActivityFields)
	if err != nil {
		return Activity{}, err
	}
	performed := s.now()
	if in.DatePerformed != "" {
		parsed, err := time.Parse(DateLayout, in.DatePerformed)
		if err != nil {
			return Activity{}, err
		}
		performed = parsed
	}
	a := Activity{
		Name:            in.Name,
		Description:     strings.TrimSpace(in.Description),
		FinancialYearID: in.FinancialYearID,
		DatePerformed:   time.Date(performed.Year(), performed.Month(), performed.Day(), 0, 0, 0, 0, time.UTC),
	}
	a.applyScope(classified)
	return a, nil
}

func (s *Service) record(ctx context.Context, action string, a Activity) {
	actor, _ := shared.ActorIDFromContext(ctx)
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "activity",
		EntityID: shared.EntityID(a.ID),
		Meta: map[string]any{
			"name":              a.Name,
			"scope":             string(a.Scope.Kind),
			"financial_year_id": a.FinancialYearID,
		},
	})
	if err != nil {
		s.logger.Warn("audit activity", slog.String("action", action), slog.Any("error", err))
	}
}

func classifyStored(a Activity) scope.Scope {
	sc, err := scope.ClassifyActivity(scope.ActivityFields{UnitID: a.UnitID, SectionID: a.SectionID})
	if err != nil {
		return scope.Scope{}
	}
	return sc
}
