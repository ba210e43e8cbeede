package ledger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectionCounter struct {
	mu      sync.Mutex
	reasons map[string]int
}

func (c *rejectionCounter) LedgerRejected(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reasons == nil {
		c.reasons = map[string]int{}
	}
	c.reasons[reason]++
}

type invalidationCounter struct{ calls int }

func (c *invalidationCounter) Invalidate(context.Context) error {
	c.calls++
	return nil
}

var spentOn = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expenditure(amt string) ExpenditureInput {
	return ExpenditureInput{FinancialYearID: 1, ActivityID: 7, Type: OwnSource, Date: spentOn, Amount: amount(amt)}
}

func seedBudget(t *testing.T, svc *Service, amt string) Budget {
	t.Helper()
	b, err := svc.UpsertBudget(context.Background(), BudgetInput{FinancialYearID: 1, ActivityID: 7, Type: OwnSource, Amount: amount(amt)}, 0)
	require.NoError(t, err)
	return b
}

func TestRecordExpenditureWithoutBudget(t *testing.T) {
	counter := &rejectionCounter{}
	svc := NewService(newMemRepo(), nil, nil, WithRejectionRecorder(counter))

	for _, amt := range []string{"0", "0.01", "999999"} {
		_, err := svc.RecordExpenditure(context.Background(), expenditure(amt), 0)
		assert.ErrorIs(t, err, ErrNoBudgetDefined, amt)
	}
	assert.Equal(t, 3, counter.reasons["no_budget"])
}

func TestRejectionsLogAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := NewService(newMemRepo(), nil, logger)
	seedBudget(t, svc, "10")

	_, err := svc.RecordExpenditure(context.Background(), expenditure("25"), 0)
	require.ErrorIs(t, err, ErrBudgetExceeded)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="ledger write rejected"`)
	assert.Contains(t, out, "reason=budget_exceeded")
}

func TestRecordExpenditureExceedingBudgetReportsTotals(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	ctx := context.Background()
	seedBudget(t, svc, "1000")

	_, err := svc.RecordExpenditure(ctx, expenditure("600"), 0)
	require.NoError(t, err)
	_, err = svc.RecordExpenditure(ctx, expenditure("400"), 0)
	require.NoError(t, err)

	_, err = svc.RecordExpenditure(ctx, expenditure("0.01"), 0)
	require.ErrorIs(t, err, ErrBudgetExceeded)
	var exceeded *BudgetExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.True(t, exceeded.Total.Equal(amount("1000.01")), exceeded.Total.String())
	assert.True(t, exceeded.Budget.Equal(amount("1000")), exceeded.Budget.String())
	assert.Equal(t, "Total expenditure (1000.01) exceeds the budget (1000.00).", err.Error())
}

func TestRecordExpenditureEditExcludesOwnPriorValue(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	ctx := context.Background()
	seedBudget(t, svc, "1000")

	_, err := svc.RecordExpenditure(ctx, expenditure("600"), 0)
	require.NoError(t, err)
	second, err := svc.RecordExpenditure(ctx, expenditure("400"), 0)
	require.NoError(t, err)

	edited, err := svc.RecordExpenditure(ctx, expenditure("399.99"), second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, edited.ID)

	_, err = svc.RecordExpenditure(ctx, expenditure("400"), second.ID)
	require.NoError(t, err)

	_, err = svc.RecordExpenditure(ctx, expenditure("400.01"), second.ID)
	assert.ErrorIs(t, err, ErrBudgetExceeded)

	summary, err := svc.Summary(ctx, 7, 1)
	require.NoError(t, err)
	assert.True(t, summary.TotalExpenditure.Equal(amount("1000")))
	assert.True(t, summary.Balance.IsZero())
}

func TestRecordExpenditureEditOfUnknownRecord(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	seedBudget(t, svc, "10")

	_, err := svc.RecordExpenditure(context.Background(), expenditure("1"), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordExpenditureValidatesAmount(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	seedBudget(t, svc, "10")

	cases := map[string]string{
		"negative":        "-1",
		"three decimals":  "1.005",
		"fourteen digits": "10000000000000",
	}
	for name, amt := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.RecordExpenditure(context.Background(), expenditure(amt), 0)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestUpsertBudgetRejectsDuplicateTriple(t *testing.T) {
	counter := &rejectionCounter{}
	svc := NewService(newMemRepo(), nil, nil, WithRejectionRecorder(counter))
	ctx := context.Background()
	first := seedBudget(t, svc, "1000")

	_, err := svc.UpsertBudget(ctx, BudgetInput{FinancialYearID: 1, ActivityID: 7, Type: OwnSource, Amount: amount("5")}, 0)
	assert.ErrorIs(t, err, ErrDuplicateBudget)

	other, err := svc.UpsertBudget(ctx, BudgetInput{FinancialYearID: 1, ActivityID: 7, Type: Other, Amount: amount("5")}, 0)
	require.NoError(t, err)

	_, err = svc.UpsertBudget(ctx, BudgetInput{FinancialYearID: 1, ActivityID: 7, Type: OwnSource, Amount: amount("5")}, other.ID)
	assert.ErrorIs(t, err, ErrDuplicateBudget)

	updated, err := svc.UpsertBudget(ctx, BudgetInput{FinancialYearID: 1, ActivityID: 7, Type: OwnSource, Amount: amount("1500")}, first.ID)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(amount("1500")))
	assert.Equal(t, 2, counter.reasons["duplicate_budget"])
}

func TestConcurrentExpendituresNeverOverspend(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	seedBudget(t, svc, "100")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RecordExpenditure(context.Background(), expenditure("10"), 0); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	summary, err := svc.Summary(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, summary.TotalExpenditure.Equal(amount("100")))
}

func TestWritesInvalidateReports(t *testing.T) {
	inv := &invalidationCounter{}
	svc := NewService(newMemRepo(), nil, nil, WithInvalidator(inv))
	b := seedBudget(t, svc, "50")

	e, err := svc.RecordExpenditure(context.Background(), expenditure("5"), 0)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteExpenditure(context.Background(), e.ID))
	require.NoError(t, svc.DeleteBudget(context.Background(), b.ID))

	_, err = svc.RecordExpenditure(context.Background(), expenditure("5"), 0)
	require.Error(t, err)
	assert.Equal(t, 4, inv.calls)
}
