package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// RejectionRecorder counts rejected ledger writes by reason.
type RejectionRecorder interface {
	LedgerRejected(reason string)
}

// Invalidator is told when ledger data changes so cached reports can be dropped.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ExpenditureInput is a requested expenditure write.
type ExpenditureInput struct {
	FinancialYearID int64
	ActivityID      int64
	Type            BudgetType
	Date            time.Time
	Amount          decimal.Decimal
	Description     string
}

// BudgetInput is a requested budget write.
type BudgetInput struct {
	FinancialYearID int64
	ActivityID      int64
	Type            BudgetType
	Amount          decimal.Decimal
}

// Service enforces the budget versus expenditure rules.
type Service struct {
	repo        Repository
	audit       shared.Auditor
	logger      *slog.Logger
	rejections  RejectionRecorder
	invalidator Invalidator
}

// Option customises a Service.
type Option func(*Service)

// WithRejectionRecorder counts rejections, typically into Prometheus.
func WithRejectionRecorder(r RejectionRecorder) Option {
	return func(s *Service) { s.rejections = r }
}

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

// RecordExpenditure creates an expenditure, or rewrites the one identified by
// excludingID, after checking the triple's budget. The budget row stays locked
// until the write commits.
func (s *Service) RecordExpenditure(ctx context.Context, in ExpenditureInput, excludingID int64) (Expenditure, error) {
	if err := validateExpenditure(in); err != nil {
		return Expenditure{}, err
	}
	e := Expenditure{
		ID:              excludingID,
		FinancialYearID: in.FinancialYearID,
		ActivityID:      in.ActivityID,
		Type:            in.Type,
		Date:            in.Date,
		Amount:          in.Amount,
		Description:     strings.TrimSpace(in.Description),
	}
	var saved Expenditure
	err := s.repo.InTx(ctx, func(tx Tx) error {
		if excludingID > 0 {
			if _, err := tx.LockExpenditure(ctx, excludingID); err != nil {
				return err
			}
		}
		budget, err := tx.LockBudget(ctx, e.Triple())
		if err != nil {
			return err
		}
		existing := decimal.Zero
		if budget != nil {
			existing, err = tx.SumExpenditures(ctx, e.Triple(), excludingID)
			if err != nil {
				return err
			}
		}
		if err := CheckExpenditure(budget, existing, e.Amount); err != nil {
			return err
		}
		if excludingID > 0 {
			saved, err = tx.UpdateExpenditure(ctx, e)
		} else {
			saved, err = tx.InsertExpenditure(ctx, e)
		}
		return err
	})
	if err != nil {
		s.reject(ctx, err, e.Triple())
		return Expenditure{}, err
	}
	action := shared.AuditCreate
	if excludingID > 0 {
		action = shared.AuditUpdate
	}
	s.record(ctx, action, "expenditure", saved.ID, map[string]any{
		"triple": saved.Triple().String(),
		"amount": saved.Amount.StringFixed(amountScale),
	})
	s.invalidate(ctx)
	return saved, nil
}

// UpsertBudget creates a budget when id is zero, otherwise rewrites budget id.
// Another budget already holding the triple is a DuplicateBudget rejection.
func (s *Service) UpsertBudget(ctx context.Context, in BudgetInput, id int64) (Budget, error) {
	if err := validateBudget(in); err != nil {
		return Budget{}, err
	}
	b := Budget{ID: id, FinancialYearID: in.FinancialYearID, ActivityID: in.ActivityID, Type: in.Type, Amount: in.Amount}
	var saved Budget
	err := s.repo.InTx(ctx, func(tx Tx) error {
		if id > 0 {
			if _, err := tx.LockBudgetByID(ctx, id); err != nil {
				return err
			}
		}
		holder, err := tx.LockBudget(ctx, b.Triple())
		if err != nil {
			return err
		}
		if holder != nil && holder.ID != id {
			return ErrDuplicateBudget
		}
		if id > 0 {
			saved, err = tx.UpdateBudget(ctx, b)
		} else {
			saved, err = tx.InsertBudget(ctx, b)
		}
		return err
	})
	if err != nil {
		s.reject(ctx, err, b.Triple())
		return Budget{}, err
	}
	action := shared.AuditCreate
	if id > 0 {
		action = shared.AuditUpdate
	}
	s.record(ctx, action, "budget", saved.ID, map[string]any{
		"triple": saved.Triple().String(),
		"amount": saved.Amount.StringFixed(amountScale),
	})
	s.invalidate(ctx)
	return saved, nil
}

// DeleteBudget removes a budget. Expenditures of the triple are kept.
func (s *Service) DeleteBudget(ctx context.Context, id int64) error {
	b, err := s.repo.DeleteBudget(ctx, id)
	if err != nil {
		return err
	}
	s.record(ctx, shared.AuditDelete, "budget", id, map[string]any{"triple": b.Triple().String()})
	s.invalidate(ctx)
	return nil
}

// DeleteExpenditure removes an expenditure.
func (s *Service) DeleteExpenditure(ctx context.Context, id int64) error {
	e, err := s.repo.DeleteExpenditure(ctx, id)
	if err != nil {
		return err
	}
	s.record(ctx, shared.AuditDelete, "expenditure", id, map[string]any{"triple": e.Triple().String()})
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListBudgets(ctx context.Context, f Filter) ([]Budget, error) {
	return s.repo.ListBudgets(ctx, f)
}

func (s *Service) GetBudget(ctx context.Context, id int64) (Budget, error) {
	return s.repo.GetBudget(ctx, id)
}

func (s *Service) ListExpenditures(ctx context.Context, f Filter) ([]Expenditure, error) {
	return s.repo.ListExpenditures(ctx, f)
}

func (s *Service) GetExpenditure(ctx context.Context, id int64) (Expenditure, error) {
	return s.repo.GetExpenditure(ctx, id)
}

// Summary folds the activity's budgets and expenditures in one financial year.
func (s *Service) Summary(ctx context.Context, activityID, fyID int64) (Summary, error) {
	f := Filter{FinancialYearID: fyID, ActivityID: activityID}
	budgets, err := s.repo.ListBudgets(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	expenditures, err := s.repo.ListExpenditures(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(fyID, activityID, budgets, expenditures), nil
}

func validateExpenditure(in ExpenditureInput) error {
	if !in.Type.Valid() {
		return ErrInvalidBudgetType
	}
	if in.FinancialYearID <= 0 || in.ActivityID <= 0 {
		return ErrReferenceMissing
	}
	if in.Date.IsZero() {
		return ErrInvalidAmount.WithField("expenditure_date", "Expenditure date is required.")
	}
	return ValidateAmount("amount", in.Amount)
}

func validateBudget(in BudgetInput) error {
	if !in.Type.Valid() {
		return ErrInvalidBudgetType
	}
	if in.FinancialYearID <= 0 || in.ActivityID <= 0 {
		return ErrReferenceMissing
	}
	return ValidateAmount("amount", in.Amount)
}

func (s *Service) reject(ctx context.Context, err error, t Triple) {
	reason := ""
	switch {
	case errors.Is(err, ErrBudgetExceeded):
		reason = "budget_exceeded"
	case errors.Is(err, ErrNoBudgetDefined):
		reason = "no_budget"
	case errors.Is(err, ErrDuplicateBudget):
		reason = "duplicate_budget"
	default:
		return
	}
	if s.rejections != nil {
		s.rejections.LedgerRejected(reason)
	}
	s.logger.WarnContext(ctx, "ledger write rejected", slog.String("reason", reason), slog.String("triple", t.String()))
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("ledger invalidate reports", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	actor, _ := shared.ActorIDFromContext(ctx)
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   entity,
		EntityID: shared.EntityID(id),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit ledger", slog.String("entity", entity), slog.Any("error", err))
	}
}
