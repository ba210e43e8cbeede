package activityreport

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-office/internal/fiscal"
	"github.com/odyssey-erp/odyssey-office/internal/ledger"
	"github.com/odyssey-erp/odyssey-office/internal/servicedesk"
)

type stubSource struct {
	mu           sync.Mutex
	scopes       map[Grouping]map[int64]ScopeInfo
	years        map[int64]fiscal.FinancialYear
	activities   []ActivityRef
	services     map[int64][]servicedesk.SupportService
	tickets      map[int64][]servicedesk.SupportTicket
	records      map[int64][]servicedesk.StatisticsRecord
	budgets      map[int64][]ledger.Budget
	expenditures map[int64][]ledger.Expenditure
	choices      Choices
	builds       int
}

func newStubSource() *stubSource {
	fy := fiscal.ForStartYear(2024)
	fy.ID = 1
	return &stubSource{
		scopes: map[Grouping]map[int64]ScopeInfo{
			GroupByUnit:    {5: {ID: 5, Name: "ICT Unit"}},
			GroupBySection: {7: {ID: 7, Name: "Records Section", DepartmentID: 3}},
		},
		years:        map[int64]fiscal.FinancialYear{1: fy},
		services:     map[int64][]servicedesk.SupportService{},
		tickets:      map[int64][]servicedesk.SupportTicket{},
		records:      map[int64][]servicedesk.StatisticsRecord{},
		budgets:      map[int64][]ledger.Budget{},
		expenditures: map[int64][]ledger.Expenditure{},
	}
}

func (s *stubSource) Scope(_ context.Context, g Grouping, id int64) (ScopeInfo, error) {
	info, ok := s.scopes[g][id]
	if !ok {
		return ScopeInfo{}, ErrReferenceMissing
	}
	return info, nil
}

func (s *stubSource) FinancialYear(_ context.Context, id int64) (fiscal.FinancialYear, error) {
	fy, ok := s.years[id]
	if !ok {
		return fiscal.FinancialYear{}, ErrReferenceMissing
	}
	return fy, nil
}

func (s *stubSource) Activities(context.Context, Grouping, int64, int64) ([]ActivityRef, error) {
	s.mu.Lock()
	s.builds++
	s.mu.Unlock()
	return s.activities, nil
}

func (s *stubSource) Services(_ context.Context, activityID int64) ([]servicedesk.SupportService, error) {
	return s.services[activityID], nil
}

// Tickets applies the half-open window like the SQL does.
func (s *stubSource) Tickets(_ context.Context, serviceID int64, from, to time.Time) ([]servicedesk.SupportTicket, error) {
	var out []servicedesk.SupportTicket
	for _, t := range s.tickets[serviceID] {
		if !t.SubmittedAt.Before(from) && t.SubmittedAt.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubSource) StatisticsRecords(_ context.Context, activityID int64, from, to time.Time) ([]servicedesk.StatisticsRecord, error) {
	var out []servicedesk.StatisticsRecord
	for _, r := range s.records[activityID] {
		if !r.StartDate.Before(from) && !r.EndDate.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubSource) Budgets(_ context.Context, _ int64, activityID int64) ([]ledger.Budget, error) {
	return s.budgets[activityID], nil
}

func (s *stubSource) Expenditures(_ context.Context, _ int64, activityID int64) ([]ledger.Expenditure, error) {
	return s.expenditures[activityID], nil
}

func (s *stubSource) Choices(context.Context) (Choices, error) {
	return s.choices, nil
}

func (s *stubSource) buildCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builds
}

func day(m time.Month, d int) time.Time {
	year := 2024
	if m < time.July {
		year = 2025
	}
	return time.Date(year, m, d, 0, 0, 0, 0, time.UTC)
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func unitRequest() Request {
	return Request{Grouping: GroupByUnit, UnitID: 5, FinancialYearID: 1, StartDate: day(time.August, 1), EndDate: day(time.August, 31)}
}

