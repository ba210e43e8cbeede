package activityreport

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-office/internal/fiscal"
	"github.com/odyssey-erp/odyssey-office/internal/ledger"
	"github.com/odyssey-erp/odyssey-office/internal/office"
	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
	"github.com/odyssey-erp/odyssey-office/internal/servicedesk"
)

// PGSource reads report inputs from PostgreSQL. Reference data and ledger
// rows come through their owning repositories.
type PGSource struct {
	db     db.DBTX
	office office.Repository
	fiscal fiscal.Repository
	ledger ledger.Repository
}

// NewSource constructs a PGSource over pool.
func NewSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{
		db:     pool,
		office: office.NewRepository(pool),
		fiscal: fiscal.NewRepository(pool),
		ledger: ledger.NewRepository(pool),
	}
}

func (s *PGSource) Scope(ctx context.Context, grouping Grouping, id int64) (ScopeInfo, error) {
	if grouping == GroupBySection {
		sec, err := s.office.GetSection(ctx, id)
		if errors.Is(err, office.ErrNotFound) {
			return ScopeInfo{}, ErrReferenceMissing.WithField("section", "The selected section does not exist.")
		}
		if err != nil {
			return ScopeInfo{}, err
		}
		return ScopeInfo{ID: sec.ID, Name: sec.Name, DepartmentID: sec.DepartmentID}, nil
	}
	unit, err := s.office.GetUnit(ctx, id)
	if errors.Is(err, office.ErrNotFound) {
		return ScopeInfo{}, ErrReferenceMissing.WithField("unit", "The selected unit does not exist.")
	}
	if err != nil {
		return ScopeInfo{}, err
	}
	return ScopeInfo{ID: unit.ID, Name: unit.Name}, nil
}

func (s *PGSource) FinancialYear(ctx context.Context, id int64) (fiscal.FinancialYear, error) {
	fy, err := s.fiscal.Get(ctx, id)
	if errors.Is(err, fiscal.ErrNotFound) {
		return fiscal.FinancialYear{}, ErrReferenceMissing.WithField("financial_year", "The selected financial year does not exist.")
	}
	return fy, err
}

const (
	activitiesByUnit = `SELECT a.id, a.name, u.name
FROM activities a JOIN units u ON u.id = a.unit_id
WHERE a.unit_id = $1 AND a.financial_year_id = $2
ORDER BY a.date_performed, a.id`
	activitiesBySection = `SELECT a.id, a.name, s.name
FROM activities a JOIN sections s ON s.id = a.section_id
WHERE a.section_id = $1 AND a.financial_year_id = $2
ORDER BY a.date_performed, a.id`
)

func (s *PGSource) Activities(ctx context.Context, grouping Grouping, scopeID, financialYearID int64) ([]ActivityRef, error) {
	query, label := activitiesByUnit, "Unit"
	if grouping == GroupBySection {
		query, label = activitiesBySection, "Section"
	}
	rows, err := s.db.Query(ctx, query, scopeID, financialYearID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ActivityRef, error) {
		var (
			ref   ActivityRef
			owner string
		)
		if err := row.Scan(&ref.ID, &ref.Name, &owner); err != nil {
			return ActivityRef{}, err
		}
		ref.DisplayName = ref.Name + " (" + label + ": " + owner + ")"
		return ref, nil
	})
}

func (s *PGSource) Services(ctx context.Context, activityID int64) ([]servicedesk.SupportService, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, description, activity_id, is_related_to_system, supported_system_id
FROM support_services WHERE activity_id = $1 ORDER BY name, id`, activityID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (servicedesk.SupportService, error) {
		var svc servicedesk.SupportService
		err := row.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.ActivityID, &svc.IsRelatedToSystem, &svc.SupportedSystemID)
		return svc, err
	})
}

func (s *PGSource) Tickets(ctx context.Context, serviceID int64, from, to time.Time) ([]servicedesk.SupportTicket, error) {
	rows, err := s.db.Query(ctx, `SELECT id, service_id, description, status, submitted_at
FROM support_tickets
WHERE service_id = $1 AND submitted_at >= $2 AND submitted_at < $3
ORDER BY submitted_at, id`, serviceID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (servicedesk.SupportTicket, error) {
		var t servicedesk.SupportTicket
		err := row.Scan(&t.ID, &t.ServiceID, &t.Description, &t.Status, &t.SubmittedAt)
		return t, err
	})
}

func (s *PGSource) StatisticsRecords(ctx context.Context, activityID int64, from, to time.Time) ([]servicedesk.StatisticsRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT r.id, r.statistic_type_id, r.title, r.description, r.start_date, r.end_date
FROM statistics_records r JOIN statistic_types t ON t.id = r.statistic_type_id
WHERE t.activity_id = $1 AND r.start_date >= $2 AND r.end_date <= $3
ORDER BY r.start_date, r.id`, activityID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (servicedesk.StatisticsRecord, error) {
		var rec servicedesk.StatisticsRecord
		err := row.Scan(&rec.ID, &rec.StatisticTypeID, &rec.Title, &rec.Description, &rec.StartDate, &rec.EndDate)
		return rec, err
	})
}

func (s *PGSource) Budgets(ctx context.Context, financialYearID, activityID int64) ([]ledger.Budget, error) {
	return s.ledger.ListBudgets(ctx, ledger.Filter{FinancialYearID: financialYearID, ActivityID: activityID})
}

func (s *PGSource) Expenditures(ctx context.Context, financialYearID, activityID int64) ([]ledger.Expenditure, error) {
	return s.ledger.ListExpenditures(ctx, ledger.Filter{FinancialYearID: financialYearID, ActivityID: activityID})
}

func (s *PGSource) Choices(ctx context.Context) (Choices, error) {
	var (
		c   Choices
		err error
	)
	if c.Units, err = s.office.ListUnits(ctx); err != nil {
		return Choices{}, err
	}
	if c.Sections, err = s.office.ListSections(ctx, 0); err != nil {
		return Choices{}, err
	}
	if c.FinancialYears, err = s.fiscal.List(ctx); err != nil {
		return Choices{}, err
	}
	return c, nil
}
