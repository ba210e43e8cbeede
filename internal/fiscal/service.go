package fiscal

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Invalidator drops cached reports after a financial year changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service applies the financial year rules around persistence.
type Service struct {
	repo        Repository
	audit       shared.Auditor
	logger      *slog.Logger
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
	s := &Service{repo: repo, audit: audit, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all financial years, newest first.
func (s *Service) List(ctx context.Context) ([]FinancialYear, error) {
	return s.repo.List(ctx)
}

// Get loads a single financial year.
func (s *Service) Get(ctx context.Context, id int64) (FinancialYear, error) {
	if id <= 0 {
		return FinancialYear{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new financial year.
func (s *Service) Create(ctx context.Context, start, end string) (FinancialYear, error) {
	fy, err := parseRange(start, end)
	if err != nil {
		return FinancialYear{}, err
	}
	created, err := s.repo.Create(ctx, fy)
	if err != nil {
		return FinancialYear{}, err
	}
	s.record(ctx, shared.AuditCreate, created)
	s.invalidate(ctx)
	return created, nil
}

// Update validates and rewrites an existing financial year.
func (s *Service) Update(ctx context.Context, id int64, start, end string) (FinancialYear, error) {
	fy, err := parseRange(start, end)
	if err != nil {
		return FinancialYear{}, err
	}
	fy.ID = id
	updated, err := s.repo.Update(ctx, fy)
	if err != nil {
		return FinancialYear{}, err
	}
	s.record(ctx, shared.AuditUpdate, updated)
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a financial year. Referenced years are refused.
func (s *Service) Delete(ctx context.Context, id int64) error {
	fy, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, shared.AuditDelete, fy)
	s.invalidate(ctx)
	return nil
}

func (s *Service) record(ctx context.Context, action string, fy FinancialYear) {
	actor, _ := shared.ActorIDFromContext(ctx)
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "financial_year",
		EntityID: shared.EntityID(fy.ID),
		Meta:     map[string]any{"label": fy.Label()},
	})
	if err != nil {
		s.logger.Warn("audit financial year", slog.String("action", action), slog.Any("error", err))
	}
}

func parseRange(start, end string) (FinancialYear, error) {
	var fy FinancialYear
	if start != "" {
		parsed, err := ParseDate(start)
		if err != nil {
			return fy, errStartRequired.WithField("start_date", "Start date must be a valid date (YYYY-MM-DD).")
		}
		fy.StartDate = parsed
	}
	if end != "" {
		parsed, err := ParseDate(end)
		if err != nil {
			return fy, errEndRequired.WithField("end_date", "End date must be a valid date (YYYY-MM-DD).")
		}
		fy.EndDate = parsed
	}
	if err := ValidateRange(fy.StartDate, fy.EndDate); err != nil {
		return FinancialYear{}, err
	}
	return fy, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "fiscal invalidate reports", slog.Any("error", err))
	}
}
