package activityreport

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-office/internal/ledger"
	"github.com/odyssey-erp/odyssey-office/internal/office"
	"github.com/odyssey-erp/odyssey-office/internal/scope"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

type stubPrincipal struct {
	caps map[string]bool
	own  scope.Scope
}

func (p stubPrincipal) Has(c string) bool      { return p.caps[c] }
func (p stubPrincipal) OwnScope() scope.Scope { return p.own }

func viewAll() stubPrincipal {
	return stubPrincipal{caps: map[string]bool{shared.PermActivitiesViewAll: true}}
}

type recorder struct {
	mu     sync.Mutex
	builds int
	cache  map[string]int
}

func (r *recorder) ReportBuilt(string, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds++
}

func (r *recorder) ReportCache(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		r.cache = map[string]int{}
	}
	r.cache[result]++
}

func newTestService(t *testing.T, src Source) (*Service, *Cache, *recorder) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	rec := &recorder{}
	return NewService(NewAggregator(src, 2), cache, rec, nil), cache, rec
}

func TestGenerateCachesUntilInvalidated(t *testing.T) {
	src := newStubSource()
	src.activities = []ActivityRef{{ID: 1, Name: "Helpdesk"}}
	src.budgets[1] = []ledger.Budget{{Type: ledger.OwnSource, Amount: amount("10.00")}}
	svc, cache, rec := newTestService(t, src)
	ctx := context.Background()

	first, err := svc.Generate(ctx, viewAll(), unitRequest())
	require.NoError(t, err)
	second, err := svc.Generate(ctx, viewAll(), unitRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, src.buildCount())
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Totals.Budget.Equal(amount("10.00")))
	assert.Equal(t, 1, rec.cache["hit"])
	assert.Equal(t, 1, rec.cache["miss"])
	assert.Equal(t, 1, rec.builds)

	require.NoError(t, cache.Invalidate(ctx))
	third, err := svc.Generate(ctx, viewAll(), unitRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, src.buildCount())
	assert.NotEqual(t, first.ID, third.ID)
}

func TestGenerateWithoutCache(t *testing.T) {
	src := newStubSource()
	svc := NewService(NewAggregator(src, 1), nil, nil, nil)

	_, err := svc.Generate(context.Background(), viewAll(), unitRequest())
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), viewAll(), unitRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, src.buildCount())
}

func TestGenerateInvalidRangeSkipsSource(t *testing.T) {
	src := newStubSource()
	svc, _, _ := newTestService(t, src)
	req := unitRequest()
	req.EndDate = req.StartDate.AddDate(0, 0, -1)

	_, err := svc.Generate(context.Background(), viewAll(), req)
	assert.ErrorIs(t, err, ErrInvalidReportRange)
	assert.Equal(t, 0, src.buildCount())
}

func TestGenerateVisibility(t *testing.T) {
	sectionReq := Request{Grouping: GroupBySection, SectionID: 7, FinancialYearID: 1, StartDate: day(time.August, 1), EndDate: day(time.August, 2)}
	cases := []struct {
		name    string
		p       scope.Principal
		req     Request
		allowed bool
	}{
		{name: "view all", p: viewAll(), req: unitRequest(), allowed: true},
		{name: "own unit", p: stubPrincipal{caps: map[string]bool{shared.PermActivitiesViewUnit: true}, own: scope.UnitScope(5)}, req: unitRequest(), allowed: true},
		{name: "other unit", p: stubPrincipal{caps: map[string]bool{shared.PermActivitiesViewUnit: true}, own: scope.UnitScope(6)}, req: unitRequest()},
		{name: "department covers section", p: stubPrincipal{caps: map[string]bool{shared.PermActivitiesViewDepartment: true}, own: scope.AccountSectionScope(3, 9)}, req: sectionReq, allowed: true},
		{name: "own section", p: stubPrincipal{caps: map[string]bool{shared.PermActivitiesViewSection: true}, own: scope.AccountSectionScope(4, 7)}, req: sectionReq, allowed: true},
		{name: "section capability on unit report", p: stubPrincipal{caps: map[string]bool{shared.PermActivitiesViewSection: true}, own: scope.AccountSectionScope(4, 7)}, req: unitRequest()},
		{name: "no capability", p: stubPrincipal{own: scope.UnitScope(5)}, req: unitRequest()},
		{name: "anonymous", p: nil, req: unitRequest()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(NewAggregator(newStubSource(), 1), nil, nil, nil)
			_, err := svc.Generate(context.Background(), tc.p, tc.req)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrScopeNotVisible)
		})
	}
}

func TestChoicesFollowVisibility(t *testing.T) {
	src := newStubSource()
	src.choices = Choices{
		Units:    []office.Unit{{ID: 5, Name: "ICT"}, {ID: 6, Name: "Legal"}},
		Sections: []office.Section{{ID: 7, DepartmentID: 3, Name: "Records"}, {ID: 8, DepartmentID: 4, Name: "Payroll"}},
	}
	svc := NewService(NewAggregator(src, 1), nil, nil, nil)
	p := stubPrincipal{
		caps: map[string]bool{shared.PermActivitiesViewDepartment: true, shared.PermActivitiesViewUnit: true},
		own:  scope.Scope{Kind: scope.ScopedToSectionAndDepartment, DepartmentID: 3, SectionID: 7, UnitID: 5},
	}

	c, err := svc.Choices(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, c.Units, 1)
	assert.Equal(t, int64(5), c.Units[0].ID)
	require.Len(t, c.Sections, 1)
	assert.Equal(t, int64(7), c.Sections[0].ID)
}
