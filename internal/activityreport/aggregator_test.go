package activityreport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-office/internal/ledger"
	"github.com/odyssey-erp/odyssey-office/internal/servicedesk"
)

func TestBuildTicketNarrative(t *testing.T) {
	src := newStubSource()
	src.activities = []ActivityRef{{ID: 1, Name: "Helpdesk", DisplayName: "Helpdesk (Unit: ICT Unit)"}}
	src.services[1] = []servicedesk.SupportService{{ID: 10, Name: "Email"}, {ID: 11, Name: "Printing"}}
	src.tickets[10] = []servicedesk.SupportTicket{
		{ID: 1, ServiceID: 10, Description: "Mailbox full", Status: servicedesk.StatusResolved, SubmittedAt: day(time.August, 2)},
		{ID: 2, ServiceID: 10, Description: "Last day", Status: servicedesk.StatusInProgress, SubmittedAt: day(time.August, 31).Add(23 * time.Hour)},
		{ID: 3, ServiceID: 10, Description: "Too late", Status: servicedesk.StatusOpen, SubmittedAt: day(time.September, 1)},
	}
	src.tickets[11] = []servicedesk.SupportTicket{
		{ID: 4, ServiceID: 11, Description: "Before window", Status: servicedesk.StatusOpen, SubmittedAt: day(time.July, 31)},
	}

	rep, err := NewAggregator(src, 2).Build(context.Background(), unitRequest())
	require.NoError(t, err)
	require.Len(t, rep.Activities, 1)
	blocks := rep.Activities[0].Narrative
	require.Len(t, blocks, 1, "services without tickets in the window are skipped")
	assert.Equal(t, "Email", blocks[0].Title)
	assert.Equal(t, "- Mailbox full (Status: Resolved)\n- Last day (Status: In Progress)", blocks[0].Text())
}

func TestBuildStatisticsOnlyWithoutTickets(t *testing.T) {
	src := newStubSource()
	src.activities = []ActivityRef{{ID: 1, Name: "Both"}, {ID: 2, Name: "Stats only"}}
	src.services[1] = []servicedesk.SupportService{{ID: 10, Name: "Email"}}
	src.tickets[10] = []servicedesk.SupportTicket{{Description: "Reset", Status: servicedesk.StatusClosed, SubmittedAt: day(time.August, 5)}}
	stats := []servicedesk.StatisticsRecord{
		{Title: "Visitors", Description: "120 visitors", StartDate: day(time.August, 1), EndDate: day(time.August, 15)},
		{Title: "Outside", Description: "ends after range", StartDate: day(time.August, 20), EndDate: day(time.September, 2)},
	}
	src.records[1] = stats
	src.records[2] = stats

	rep, err := NewAggregator(src, 0).Build(context.Background(), unitRequest())
	require.NoError(t, err)
	require.Len(t, rep.Activities, 2)

	assert.Equal(t, "Email", rep.Activities[0].Narrative[0].Title)
	require.Len(t, rep.Activities[0].Narrative, 1)

	require.Len(t, rep.Activities[1].Narrative, 1)
	assert.Equal(t, StatisticsBlockTitle, rep.Activities[1].Narrative[0].Title)
	assert.Equal(t, []string{"- Visitors: 120 visitors"}, rep.Activities[1].Narrative[0].Lines)
}

func TestBuildFinancialRollup(t *testing.T) {
	src := newStubSource()
	src.activities = []ActivityRef{{ID: 1, Name: "Training"}}
	src.budgets[1] = []ledger.Budget{
		{Type: ledger.OwnSource, Amount: amount("1000.00")},
		{Type: ledger.DevelopmentBudget, Amount: amount("500.50")},
	}
	src.expenditures[1] = []ledger.Expenditure{
		{Type: ledger.OwnSource, Amount: amount("250.25")},
		{Type: ledger.OwnSource, Amount: amount("100.00")},
		{Type: ledger.Other, Amount: amount("40.00")},
	}

	rep, err := NewAggregator(src, 1).Build(context.Background(), unitRequest())
	require.NoError(t, err)
	row := rep.Activities[0]
	assert.Empty(t, row.Narrative)
	require.Len(t, row.Types, 2, "spend without a budget has no line of its own")
	assert.Equal(t, ledger.OwnSource, row.Types[0].Type)
	assert.True(t, row.Types[0].Expenditure.Equal(amount("350.25")))
	assert.True(t, row.Types[0].Balance.Equal(amount("649.75")))
	assert.True(t, row.Types[1].Expenditure.IsZero())
	assert.True(t, row.Types[1].Balance.Equal(amount("500.50")))
	assert.True(t, row.TotalBudget.Equal(amount("1500.50")))
	assert.True(t, row.TotalExpenditure.Equal(amount("390.25")))
	assert.True(t, row.Balance.Equal(amount("1110.25")))
}

func TestGrandTotalsEqualActivitySums(t *testing.T) {
	src := newStubSource()
	for i := int64(1); i <= 12; i++ {
		src.activities = append(src.activities, ActivityRef{ID: i, Name: fmt.Sprintf("Activity %d", i)})
		src.budgets[i] = []ledger.Budget{{Type: ledger.OwnSource, Amount: amount(fmt.Sprintf("%d.10", i*100))}}
		src.expenditures[i] = []ledger.Expenditure{{Type: ledger.OwnSource, Amount: amount(fmt.Sprintf("%d.05", i*10))}}
	}

	rep, err := NewAggregator(src, 3).Build(context.Background(), unitRequest())
	require.NoError(t, err)
	require.Len(t, rep.Activities, 12)

	var budget, spent, balance = amount("0"), amount("0"), amount("0")
	for i, row := range rep.Activities {
		assert.Equal(t, i+1, row.SN)
		assert.Equal(t, int64(i+1), row.Activity.ID, "activities keep source order")
		budget = budget.Add(row.TotalBudget)
		spent = spent.Add(row.TotalExpenditure)
		balance = balance.Add(row.Balance)
	}
	assert.True(t, rep.Totals.Budget.Equal(budget))
	assert.True(t, rep.Totals.Expenditure.Equal(spent))
	assert.True(t, rep.Totals.Balance.Equal(balance))
	assert.True(t, rep.Totals.Budget.Equal(amount("7801.20")))
}

func TestBuildEchoesParams(t *testing.T) {
	src := newStubSource()
	agg := NewAggregator(src, 1)
	agg.now = func() time.Time { return time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC) }

	req := Request{Grouping: GroupBySection, SectionID: 7, FinancialYearID: 1, StartDate: day(time.July, 1), EndDate: day(time.June, 30)}
	rep, err := agg.Build(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, req, rep.Params.Request)
	assert.Equal(t, "Records Section", rep.Params.Scope.Name)
	assert.Equal(t, "2024/2025", rep.Params.FinancialYearLabel)
	assert.Equal(t, time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC), rep.GeneratedAt)
	assert.Equal(t, "Records Section Activities Implementation Report from 2024-07-01 to 2025-06-30 in Financial Year: 2024/2025", rep.Heading())
	assert.Empty(t, rep.Activities)
	assert.True(t, rep.Totals.Budget.IsZero())
}

func TestBuildRejectsReversedRange(t *testing.T) {
	src := newStubSource()
	req := unitRequest()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate

	_, err := NewAggregator(src, 1).Build(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidReportRange)
	assert.Equal(t, 0, src.buildCount())
}
