package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
)

// Tx is the ledger view available inside a write transaction.
type Tx interface {
	// LockBudget takes a row lock on the triple's budget. It returns nil when none exists.
	LockBudget(ctx context.Context, t Triple) (*Budget, error)
	LockBudgetByID(ctx context.Context, id int64) (Budget, error)
	SumExpenditures(ctx context.Context, t Triple, excludingID int64) (decimal.Decimal, error)
	LockExpenditure(ctx context.Context, id int64) (Expenditure, error)
	InsertExpenditure(ctx context.Context, e Expenditure) (Expenditure, error)
	UpdateExpenditure(ctx context.Context, e Expenditure) (Expenditure, error)
	InsertBudget(ctx context.Context, b Budget) (Budget, error)
	UpdateBudget(ctx context.Context, b Budget) (Budget, error)
}

// Repository persists budgets and expenditures.
type Repository interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	ListBudgets(ctx context.Context, f Filter) ([]Budget, error)
	GetBudget(ctx context.Context, id int64) (Budget, error)
	DeleteBudget(ctx context.Context, id int64) (Budget, error)
	ListExpenditures(ctx context.Context, f Filter) ([]Expenditure, error)
	GetExpenditure(ctx context.Context, id int64) (Expenditure, error)
	DeleteExpenditure(ctx context.Context, id int64) (Expenditure, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// InTx runs fn in a READ COMMITTED transaction. Writers serialize on the
// budget row lock taken by LockBudget, so SumExpenditures always sees every
// committed expenditure of the triple.
func (r *PGRepository) InTx(ctx context.Context, fn func(Tx) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&pgTx{q: tx})
	})
}

const (
	budgetColumns      = `id, financial_year_id, activity_id, budget_type, amount::text, created_at, updated_at`
	expenditureColumns = `id, financial_year_id, activity_id, budget_type, expenditure_date, amount::text, description, created_at, updated_at`
)

func scanBudget(row pgx.Row) (Budget, error) {
	var (
		b      Budget
		amount string
	)
	if err := row.Scan(&b.ID, &b.FinancialYearID, &b.ActivityID, &b.Type, &amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Budget{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Budget{}, fmt.Errorf("ledger: parse budget amount: %w", err)
	}
	b.Amount = parsed
	return b, nil
}

func scanExpenditure(row pgx.Row) (Expenditure, error) {
	var (
		e      Expenditure
		amount string
	)
	if err := row.Scan(&e.ID, &e.FinancialYearID, &e.ActivityID, &e.Type, &e.Date, &amount, &e.Description, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Expenditure{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Expenditure{}, fmt.Errorf("ledger: parse expenditure amount: %w", err)
	}
	e.Amount = parsed
	return e, nil
}

func filterClause(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.FinancialYearID > 0 {
		args = append(args, f.FinancialYearID)
		where = append(where, fmt.Sprintf("financial_year_id = $%d", len(args)))
	}
	if f.ActivityID > 0 {
		args = append(args, f.ActivityID)
		where = append(where, fmt.Sprintf("activity_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("budget_type = $%d", len(args)))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (r *PGRepository) ListBudgets(ctx context.Context, f Filter) ([]Budget, error) {
	clause, args := filterClause(f)
	rows, err := r.pool.Query(ctx, `SELECT `+budgetColumns+` FROM budgets`+clause+` ORDER BY financial_year_id DESC, activity_id, budget_type`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetBudget(ctx context.Context, id int64) (Budget, error) {
	b, err := scanBudget(r.pool.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id))
	return b, notFound(err)
}

func (r *PGRepository) DeleteBudget(ctx context.Context, id int64) (Budget, error) {
	b, err := scanBudget(r.pool.QueryRow(ctx, `DELETE FROM budgets WHERE id = $1 RETURNING `+budgetColumns, id))
	return b, notFound(err)
}

func (r *PGRepository) ListExpenditures(ctx context.Context, f Filter) ([]Expenditure, error) {
	clause, args := filterClause(f)
	rows, err := r.pool.Query(ctx, `SELECT `+expenditureColumns+` FROM expenditures`+clause+` ORDER BY expenditure_date DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expenditure
	for rows.Next() {
		e, err := scanExpenditure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetExpenditure(ctx context.Context, id int64) (Expenditure, error) {
	e, err := scanExpenditure(r.pool.QueryRow(ctx, `SELECT `+expenditureColumns+` FROM expenditures WHERE id = $1`, id))
	return e, notFound(err)
}

func (r *PGRepository) DeleteExpenditure(ctx context.Context, id int64) (Expenditure, error) {
	e, err := scanExpenditure(r.pool.QueryRow(ctx, `DELETE FROM expenditures WHERE id = $1 RETURNING `+expenditureColumns, id))
	return e, notFound(err)
}

type pgTx struct {
	q db.DBTX
}

func (t *pgTx) LockBudget(ctx context.Context, key Triple) (*Budget, error) {
	b, err := scanBudget(t.q.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets
WHERE financial_year_id = $1 AND activity_id = $2 AND budget_type = $3 FOR UPDATE`,
		key.FinancialYearID, key.ActivityID, string(key.Type)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *pgTx) LockBudgetByID(ctx context.Context, id int64) (Budget, error) {
	b, err := scanBudget(t.q.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1 FOR UPDATE`, id))
	return b, notFound(err)
}

func (t *pgTx) SumExpenditures(ctx context.Context, key Triple, excludingID int64) (decimal.Decimal, error) {
	var total string
	err := t.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM expenditures
WHERE financial_year_id = $1 AND activity_id = $2 AND budget_type = $3 AND id <> $4`,
		key.FinancialYearID, key.ActivityID, string(key.Type), excludingID).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(total)
}

func (t *pgTx) LockExpenditure(ctx context.Context, id int64) (Expenditure, error) {
	e, err := scanExpenditure(t.q.QueryRow(ctx, `SELECT `+expenditureColumns+` FROM expenditures WHERE id = $1 FOR UPDATE`, id))
	return e, notFound(err)
}

func (t *pgTx) InsertExpenditure(ctx context.Context, e Expenditure) (Expenditure, error) {
	saved, err := scanExpenditure(t.q.QueryRow(ctx, `INSERT INTO expenditures (financial_year_id, activity_id, budget_type, expenditure_date, amount, description)
VALUES ($1, $2, $3, $4, $5::numeric, $6) RETURNING `+expenditureColumns,
		e.FinancialYearID, e.ActivityID, string(e.Type), e.Date, e.Amount.StringFixed(amountScale), e.Description))
	return saved, mapWriteError(err)
}

func (t *pgTx) UpdateExpenditure(ctx context.Context, e Expenditure) (Expenditure, error) {
	saved, err := scanExpenditure(t.q.QueryRow(ctx, `UPDATE expenditures SET financial_year_id = $2, activity_id = $3, budget_type = $4,
    expenditure_date = $5, amount = $6::numeric, description = $7, updated_at = $8
WHERE id = $1 RETURNING `+expenditureColumns,
		e.ID, e.FinancialYearID, e.ActivityID, string(e.Type), e.Date, e.Amount.StringFixed(amountScale), e.Description, time.Now().UTC()))
	return saved, mapWriteError(notFound(err))
}

func (t *pgTx) InsertBudget(ctx context.Context, b Budget) (Budget, error) {
	saved, err := scanBudget(t.q.QueryRow(ctx, `INSERT INTO budgets (financial_year_id, activity_id, budget_type, amount)
VALUES ($1, $2, $3, $4::numeric) RETURNING `+budgetColumns,
		b.FinancialYearID, b.ActivityID, string(b.Type), b.Amount.StringFixed(amountScale)))
	return saved, mapWriteError(err)
}

func (t *pgTx) UpdateBudget(ctx context.Context, b Budget) (Budget, error) {
	saved, err := scanBudget(t.q.QueryRow(ctx, `UPDATE budgets SET financial_year_id = $2, activity_id = $3, budget_type = $4,
    amount = $5::numeric, updated_at = $6
WHERE id = $1 RETURNING `+budgetColumns,
		b.ID, b.FinancialYearID, b.ActivityID, string(b.Type), b.Amount.StringFixed(amountScale), time.Now().UTC()))
	return saved, mapWriteError(notFound(err))
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "uq_budgets_triple"):
		return ErrDuplicateBudget
	case db.IsForeignKeyViolation(err):
		return ErrReferenceMissing
	case db.IsCheckViolation(err, ""):
		return ErrInvalidAmount
	}
	return err
}

var (
	_ Repository = (*PGRepository)(nil)
	_ Tx         = (*pgTx)(nil)
)
