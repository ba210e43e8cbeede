package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// memRepo serializes every transaction on one mutex, mirroring the row lock
// the PostgreSQL repository takes on the budget.
type memRepo struct {
	mu           sync.Mutex
	budgets      map[int64]Budget
	expenditures map[int64]Expenditure
	seq          int64
}

func newMemRepo() *memRepo {
	return &memRepo{budgets: map[int64]Budget{}, expenditures: map[int64]Expenditure{}}
}

func (m *memRepo) InTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{repo: m, budgets: map[int64]Budget{}, expenditures: map[int64]Expenditure{}}
	for k, v := range m.budgets {
		tx.budgets[k] = v
	}
	for k, v := range m.expenditures {
		tx.expenditures[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.budgets, m.expenditures = tx.budgets, tx.expenditures
	return nil
}

func (m *memRepo) ListBudgets(_ context.Context, f Filter) ([]Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Budget
	for _, b := range m.budgets {
		if matches(f, b.Triple()) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetBudget(_ context.Context, id int64) (Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok {
		return Budget{}, ErrNotFound
	}
	return b, nil
}

func (m *memRepo) DeleteBudget(_ context.Context, id int64) (Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok {
		return Budget{}, ErrNotFound
	}
	delete(m.budgets, id)
	return b, nil
}

func (m *memRepo) ListExpenditures(_ context.Context, f Filter) ([]Expenditure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Expenditure
	for _, e := range m.expenditures {
		if matches(f, e.Triple()) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetExpenditure(_ context.Context, id int64) (Expenditure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenditures[id]
	if !ok {
		return Expenditure{}, ErrNotFound
	}
	return e, nil
}

func (m *memRepo) DeleteExpenditure(_ context.Context, id int64) (Expenditure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenditures[id]
	if !ok {
		return Expenditure{}, ErrNotFound
	}
	delete(m.expenditures, id)
	return e, nil
}

func matches(f Filter, t Triple) bool {
	return (f.FinancialYearID == 0 || f.FinancialYearID == t.FinancialYearID) &&
		(f.ActivityID == 0 || f.ActivityID == t.ActivityID) &&
		(f.Type == "" || f.Type == t.Type)
}

type memTx struct {
	repo         *memRepo
	budgets      map[int64]Budget
	expenditures map[int64]Expenditure
}

func (t *memTx) LockBudget(_ context.Context, key Triple) (*Budget, error) {
	for _, b := range t.budgets {
		if b.Triple() == key {
			found := b
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memTx) LockBudgetByID(_ context.Context, id int64) (Budget, error) {
	b, ok := t.budgets[id]
	if !ok {
		return Budget{}, ErrNotFound
	}
	return b, nil
}

func (t *memTx) SumExpenditures(_ context.Context, key Triple, excludingID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range t.expenditures {
		if e.Triple() == key && e.ID != excludingID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (t *memTx) LockExpenditure(_ context.Context, id int64) (Expenditure, error) {
	e, ok := t.expenditures[id]
	if !ok {
		return Expenditure{}, ErrNotFound
	}
	return e, nil
}

func (t *memTx) InsertExpenditure(_ context.Context, e Expenditure) (Expenditure, error) {
	t.repo.seq++
	e.ID = t.repo.seq
	t.expenditures[e.ID] = e
	return e, nil
}

func (t *memTx) UpdateExpenditure(_ context.Context, e Expenditure) (Expenditure, error) {
	if _, ok := t.expenditures[e.ID]; !ok {
		return Expenditure{}, ErrNotFound
	}
	t.expenditures[e.ID] = e
	return e, nil
}

func (t *memTx) InsertBudget(_ context.Context, b Budget) (Budget, error) {
	t.repo.seq++
	b.ID = t.repo.seq
	t.budgets[b.ID] = b
	return b, nil
}

func (t *memTx) UpdateBudget(_ context.Context, b Budget) (Budget, error) {
	if _, ok := t.budgets[b.ID]; !ok {
		return Budget{}, ErrNotFound
	}
	t.budgets[b.ID] = b
	return b, nil
}
