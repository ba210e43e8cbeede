package servicedesk

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Invalidator is told when narrative data changes so cached reports can be dropped.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service applies the service desk rules around persistence.
type Service struct {
	repo        Repository
	logger      *slog.Logger
	validate    *validator.Validate
	invalidator Invalidator
	now         func() time.Time
}

// NewService wires a Service. invalidator may be nil.
func NewService(repo Repository, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, validate: validator.New(), invalidator: invalidator, now: time.Now}
}

func (s *Service) ListSystems(ctx context.Context) ([]SupportedSystem, error) {
	return s.repo.ListSystems(ctx)
}

func (s *Service) SaveSystem(ctx context.Context, sys SupportedSystem) (SupportedSystem, error) {
	sys.Name = strings.TrimSpace(sys.Name)
	if err := s.validate.Struct(sys); err != nil {
		return SupportedSystem{}, err
	}
	return s.repo.SaveSystem(ctx, sys)
}

func (s *Service) DeleteSystem(ctx context.Context, id int64) error {
	return s.repo.DeleteSystem(ctx, id)
}

func (s *Service) ListServices(ctx context.Context, activityID int64) ([]SupportService, error) {
	return s.repo.ListServices(ctx, activityID)
}

func (s *Service) GetService(ctx context.Context, id int64) (SupportService, error) {
	return s.repo.GetService(ctx, id)
}

// SaveService stores a support service. A system-related service must name its system.
func (s *Service) SaveService(ctx context.Context, svc SupportService) (SupportService, error) {
	svc.Name = strings.TrimSpace(svc.Name)
	if err := s.validate.Struct(svc); err != nil {
		return SupportService{}, err
	}
	if !svc.IsRelatedToSystem {
		svc.SupportedSystemID = nil
	} else if svc.SupportedSystemID == nil || *svc.SupportedSystemID <= 0 {
		return SupportService{}, ErrSystemRequired
	}
	saved, err := s.repo.SaveService(ctx, svc)
	if err != nil {
		return SupportService{}, err
	}
	s.invalidate(ctx)
	return saved, nil
}

func (s *Service) DeleteService(ctx context.Context, id int64) error {
	if err := s.repo.DeleteService(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ListSubServices lists the sub-services of one service, for form filtering.
func (s *Service) ListSubServices(ctx context.Context, serviceID int64) ([]SubService, error) {
	if _, err := s.repo.GetService(ctx, serviceID); err != nil {
		return nil, err
	}
	return s.repo.ListSubServices(ctx, serviceID)
}

func (s *Service) SaveSubService(ctx context.Context, sub SubService) (SubService, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	if err := s.validate.Struct(sub); err != nil {
		return SubService{}, err
	}
	return s.repo.SaveSubService(ctx, sub)
}

func (s *Service) DeleteSubService(ctx context.Context, id int64) error {
	return s.repo.DeleteSubService(ctx, id)
}

func (s *Service) ListReporters(ctx context.Context) ([]ExternalReporter, error) {
	return s.repo.ListReporters(ctx)
}

func (s *Service) SaveReporter(ctx context.Context, r ExternalReporter) (ExternalReporter, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if err := s.validate.Struct(r); err != nil {
		return ExternalReporter{}, err
	}
	return s.repo.SaveReporter(ctx, r)
}

func (s *Service) DeleteReporter(ctx context.Context, id int64) error {
	return s.repo.DeleteReporter(ctx, id)
}

func (s *Service) ListTickets(ctx context.Context, f TicketFilter) ([]SupportTicket, shared.Pagination, error) {
	items, total, err := s.repo.ListTickets(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.PageParams{Page: f.Page, PerPage: f.PerPage}
	return items, shared.NewPagination(page.Page, page.Limit(), total), nil
}

func (s *Service) GetTicket(ctx context.Context, id int64) (SupportTicket, error) {
	return s.repo.GetTicket(ctx, id)
}

// SaveTicket validates and stores a ticket. New tickets default to open and
// are stamped with the submission time.
func (s *Service) SaveTicket(ctx context.Context, t SupportTicket) (SupportTicket, error) {
	t.Description = strings.TrimSpace(t.Description)
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if err := s.validate.Struct(t); err != nil {
		return SupportTicket{}, err
	}
	if err := validateReporter(t); err != nil {
		return SupportTicket{}, err
	}
	if t.UserType == UserInternal {
		t.ExternalReporterID = nil
	} else {
		t.InternalUserID = nil
	}
	if err := s.checkSubService(ctx, t); err != nil {
		return SupportTicket{}, err
	}
	if t.ID == 0 {
		if t.SubmittedAt.IsZero() {
			t.SubmittedAt = s.now().UTC()
		}
	} else {
		prev, err := s.repo.GetTicket(ctx, t.ID)
		if err != nil {
			return SupportTicket{}, err
		}
		t.SubmittedAt = prev.SubmittedAt
		t.ResolvedAt, t.ResolvedByID = prev.ResolvedAt, prev.ResolvedByID
	}
	s.stampResolution(ctx, &t)
	saved, err := s.repo.SaveTicket(ctx, t)
	if err != nil {
		return SupportTicket{}, err
	}
	s.invalidate(ctx)
	return saved, nil
}

// Transition moves a ticket to status, stamping or clearing its resolution.
func (s *Service) Transition(ctx context.Context, id int64, status Status) (SupportTicket, error) {
	if !status.Valid() {
		return SupportTicket{}, ErrInvalidStatus
	}
	t, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return SupportTicket{}, err
	}
	t.Status = status
	s.stampResolution(ctx, &t)
	saved, err := s.repo.SaveTicket(ctx, t)
	if err != nil {
		return SupportTicket{}, err
	}
	s.invalidate(ctx)
	return saved, nil
}

func (s *Service) DeleteTicket(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTicket(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListStatisticTypes(ctx context.Context, activityID int64) ([]StatisticType, error) {
	return s.repo.ListStatisticTypes(ctx, activityID)
}

func (s *Service) SaveStatisticType(ctx context.Context, t StatisticType) (StatisticType, error) {
	t.Name = strings.TrimSpace(t.Name)
	if err := s.validate.Struct(t); err != nil {
		return StatisticType{}, err
	}
	saved, err := s.repo.SaveStatisticType(ctx, t)
	if err != nil {
		return StatisticType{}, err
	}
	s.invalidate(ctx)
	return saved, nil
}

func (s *Service) DeleteStatisticType(ctx context.Context, id int64) error {
	if err := s.repo.DeleteStatisticType(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListStatisticsRecords(ctx context.Context, typeID int64) ([]StatisticsRecord, error) {
	return s.repo.ListStatisticsRecords(ctx, typeID)
}

func (s *Service) GetStatisticsRecord(ctx context.Context, id int64) (StatisticsRecord, error) {
	return s.repo.GetStatisticsRecord(ctx, id)
}

// SaveStatisticsRecord stores a record whose window must not end before it starts.
func (s *Service) SaveStatisticsRecord(ctx context.Context, r StatisticsRecord) (StatisticsRecord, error) {
	r.Title = strings.TrimSpace(r.Title)
	if err := s.validate.Struct(r); err != nil {
		return StatisticsRecord{}, err
	}
	if err := ValidateRecordRange(r.StartDate, r.EndDate); err != nil {
		return StatisticsRecord{}, err
	}
	saved, err := s.repo.SaveStatisticsRecord(ctx, r)
	if err != nil {
		return StatisticsRecord{}, err
	}
	s.invalidate(ctx)
	return saved, nil
}

func (s *Service) DeleteStatisticsRecord(ctx context.Context, id int64) error {
	if err := s.repo.DeleteStatisticsRecord(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) checkSubService(ctx context.Context, t SupportTicket) error {
	if t.SubServiceID == nil {
		return nil
	}
	sub, err := s.repo.GetSubService(ctx, *t.SubServiceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrSubServiceMismatch
		}
		return err
	}
	if sub.ServiceID != t.ServiceID {
		return ErrSubServiceMismatch
	}
	return nil
}

// stampResolution records who resolved a ticket and when. Reopened tickets lose the stamp.
func (s *Service) stampResolution(ctx context.Context, t *SupportTicket) {
	if !t.Status.Terminal() {
		t.ResolvedAt, t.ResolvedByID = nil, nil
		return
	}
	if t.ResolvedAt != nil {
		return
	}
	now := s.now().UTC()
	t.ResolvedAt = &now
	if actor, ok := shared.ActorIDFromContext(ctx); ok {
		t.ResolvedByID = &actor
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("servicedesk invalidate reports", slog.Any("error", err))
	}
}
