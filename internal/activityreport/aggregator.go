package activityreport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-office/internal/fiscal"
	"github.com/odyssey-erp/odyssey-office/internal/ledger"
	"github.com/odyssey-erp/odyssey-office/internal/servicedesk"
)

// Source is the read side the aggregator draws from.
type Source interface {
	Scope(ctx context.Context, grouping Grouping, id int64) (ScopeInfo, error)
	FinancialYear(ctx context.Context, id int64) (fiscal.FinancialYear, error)
	Activities(ctx context.Context, grouping Grouping, scopeID, financialYearID int64) ([]ActivityRef, error)
	Services(ctx context.Context, activityID int64) ([]servicedesk.SupportService, error)
	Tickets(ctx context.Context, serviceID int64, from, to time.Time) ([]servicedesk.SupportTicket, error)
	StatisticsRecords(ctx context.Context, activityID int64, from, to time.Time) ([]servicedesk.StatisticsRecord, error)
	Budgets(ctx context.Context, financialYearID, activityID int64) ([]ledger.Budget, error)
	Expenditures(ctx context.Context, financialYearID, activityID int64) ([]ledger.Expenditure, error)
	Choices(ctx context.Context) (Choices, error)
}

// producer yields the narrative blocks of one activity.
type producer func(ctx context.Context, activityID int64, req Request) ([]NarrativeBlock, error)

const defaultWorkers = 4

// Aggregator builds reports from a Source.
type Aggregator struct {
	source    Source
	workers   int
	now       func() time.Time
	producers []producer
}

// NewAggregator constructs an Aggregator reading activities with up to workers
// concurrent per-activity loads.
func NewAggregator(source Source, workers int) *Aggregator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	a := &Aggregator{source: source, workers: workers, now: time.Now}
	a.producers = []producer{a.ticketNarrative, a.statisticsNarrative}
	return a
}

// Build validates req and assembles the report. Activities keep the order the
// source returns them in.
func (a *Aggregator) Build(ctx context.Context, req Request) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, err
	}
	info, err := a.source.Scope(ctx, req.Grouping, req.ScopeID())
	if err != nil {
		return Report{}, fmt.Errorf("load %s: %w", req.Grouping, err)
	}
	fy, err := a.source.FinancialYear(ctx, req.FinancialYearID)
	if err != nil {
		return Report{}, fmt.Errorf("load financial year: %w", err)
	}
	refs, err := a.source.Activities(ctx, req.Grouping, req.ScopeID(), req.FinancialYearID)
	if err != nil {
		return Report{}, fmt.Errorf("list activities: %w", err)
	}

	rows := make([]ActivityRow, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, ref := range refs {
		g.Go(func() error {
			row, err := a.buildRow(gctx, ref, req)
			if err != nil {
				return fmt.Errorf("activity %d: %w", ref.ID, err)
			}
			row.SN = i + 1
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	return Report{
		ID:          uuid.NewString(),
		Params:      Params{Request: req, Scope: info, FinancialYearLabel: fy.Label()},
		GeneratedAt: a.now().UTC(),
		Activities:  rows,
		Totals:      sumTotals(rows),
	}, nil
}

func (a *Aggregator) buildRow(ctx context.Context, ref ActivityRef, req Request) (ActivityRow, error) {
	row := ActivityRow{Activity: ref, Narrative: []NarrativeBlock{}, Types: []TypeLine{}}
	for _, produce := range a.producers {
		blocks, err := produce(ctx, ref.ID, req)
		if err != nil {
			return ActivityRow{}, err
		}
		if len(blocks) > 0 {
			row.Narrative = blocks
			break
		}
	}

	budgets, err := a.source.Budgets(ctx, req.FinancialYearID, ref.ID)
	if err != nil {
		return ActivityRow{}, fmt.Errorf("budgets: %w", err)
	}
	spent, err := a.source.Expenditures(ctx, req.FinancialYearID, ref.ID)
	if err != nil {
		return ActivityRow{}, fmt.Errorf("expenditures: %w", err)
	}
	summary := ledger.Summarize(req.FinancialYearID, ref.ID, budgets, spent)
	for _, ts := range summary.Types {
		if !ts.HasBudget {
			continue
		}
		row.Types = append(row.Types, TypeLine{
			Type:        ts.Type,
			Label:       ts.Label,
			Budget:      ts.Budget,
			Expenditure: ts.Expenditure,
			Balance:     ts.Balance,
		})
	}
	row.TotalBudget = summary.TotalBudget
	row.TotalExpenditure = summary.TotalExpenditure
	row.Balance = summary.Balance
	return row, nil
}

// ticketNarrative emits one block per service with tickets submitted in the window.
func (a *Aggregator) ticketNarrative(ctx context.Context, activityID int64, req Request) ([]NarrativeBlock, error) {
	services, err := a.source.Services(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("services: %w", err)
	}
	from, to := req.Window()
	var blocks []NarrativeBlock
	for _, svc := range services {
		tickets, err := a.source.Tickets(ctx, svc.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("tickets of service %d: %w", svc.ID, err)
		}
		if len(tickets) == 0 {
			continue
		}
		lines := make([]string, 0, len(tickets))
		for _, t := range tickets {
			lines = append(lines, fmt.Sprintf("- %s (Status: %s)", t.Description, t.Status.Display()))
		}
		blocks = append(blocks, NarrativeBlock{Title: svc.Name, Lines: lines})
	}
	return blocks, nil
}

// statisticsNarrative folds the activity's statistics records whose window
// lies inside the report range into a single block.
func (a *Aggregator) statisticsNarrative(ctx context.Context, activityID int64, req Request) ([]NarrativeBlock, error) {
	records, err := a.source.StatisticsRecords(ctx, activityID, fiscal.DateOnly(req.StartDate), fiscal.DateOnly(req.EndDate))
	if err != nil {
		return nil, fmt.Errorf("statistics records: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, fmt.Sprintf("- %s: %s", rec.Title, rec.Description))
	}
	return []NarrativeBlock{{Title: StatisticsBlockTitle, Lines: lines}}, nil
}
