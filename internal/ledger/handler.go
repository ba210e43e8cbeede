package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-office/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-office/internal/rbac"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Handler exposes budgets and expenditures over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLedgerView, shared.PermLedgerEdit))
		r.Get("/budget-types", h.budgetTypes)
		r.Get("/budgets", h.listBudgets)
		r.Get("/budgets/{id}", h.getBudget)
		r.Get("/expenditures", h.listExpenditures)
		r.Get("/expenditures/{id}", h.getExpenditure)
		r.Get("/summary", h.summary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLedgerEdit))
		r.Post("/budgets", h.saveBudget)
		r.Put("/budgets/{id}", h.saveBudget)
		r.Delete("/budgets/{id}", h.deleteBudget)
		r.Post("/expenditures", h.saveExpenditure)
		r.Put("/expenditures/{id}", h.saveExpenditure)
		r.Delete("/expenditures/{id}", h.deleteExpenditure)
	})
}

type budgetRequest struct {
	FinancialYearID int64           `json:"financial_year_id" validate:"required,gt=0"`
	ActivityID      int64           `json:"activity_id" validate:"required,gt=0"`
	BudgetType      string          `json:"budget_type" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
}

type expenditureRequest struct {
	FinancialYearID int64           `json:"financial_year_id" validate:"required,gt=0"`
	ActivityID      int64           `json:"activity_id" validate:"required,gt=0"`
	BudgetType      string          `json:"budget_type" validate:"required"`
	Date            string          `json:"expenditure_date" validate:"required,datetime=2006-01-02"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description" validate:"max=2000"`
}

type budgetResponse struct {
	ID              int64  `json:"id"`
	FinancialYearID int64  `json:"financial_year_id"`
	ActivityID      int64  `json:"activity_id"`
	BudgetType      string `json:"budget_type"`
	BudgetTypeLabel string `json:"budget_type_label"`
	Amount          string `json:"amount"`
}

type expenditureResponse struct {
	ID              int64  `json:"id"`
	FinancialYearID int64  `json:"financial_year_id"`
	ActivityID      int64  `json:"activity_id"`
	BudgetType      string `json:"budget_type"`
	BudgetTypeLabel string `json:"budget_type_label"`
	Date            string `json:"expenditure_date"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
}

func toBudgetResponse(b Budget) budgetResponse {
	return budgetResponse{
		ID:              b.ID,
		FinancialYearID: b.FinancialYearID,
		ActivityID:      b.ActivityID,
		BudgetType:      string(b.Type),
		BudgetTypeLabel: b.Type.Label(),
		Amount:          b.Amount.StringFixed(amountScale),
	}
}

func toExpenditureResponse(e Expenditure) expenditureResponse {
	return expenditureResponse{
		ID:              e.ID,
		FinancialYearID: e.FinancialYearID,
		ActivityID:      e.ActivityID,
		BudgetType:      string(e.Type),
		BudgetTypeLabel: e.Type.Label(),
		Date:            e.Date.Format("2006-01-02"),
		Amount:          e.Amount.StringFixed(amountScale),
		Description:     e.Description,
	}
}

func filterFromQuery(r *http.Request) (Filter, error) {
	var f Filter
	f.FinancialYearID, _ = httpx.QueryInt64(r, "financial_year_id")
	f.ActivityID, _ = httpx.QueryInt64(r, "activity_id")
	if raw := r.URL.Query().Get("budget_type"); raw != "" {
		t, err := ParseBudgetType(raw)
		if err != nil {
			return Filter{}, err
		}
		f.Type = t
	}
	return f, nil
}

func (h *Handler) budgetTypes(w http.ResponseWriter, r *http.Request) {
	type option struct {
		Code  string `json:"code"`
		Label string `json:"label"`
	}
	out := make([]option, 0, len(BudgetTypes()))
	for _, t := range BudgetTypes() {
		out = append(out, option{Code: string(t), Label: t.Label()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"budget_types": out})
}

func (h *Handler) listBudgets(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	items, err := h.service.ListBudgets(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]budgetResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toBudgetResponse(b))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"budgets": out})
}

func (h *Handler) getBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.service.GetBudget(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBudgetResponse(b))
}

func (h *Handler) saveBudget(w http.ResponseWriter, r *http.Request) {
	var id int64
	if chi.URLParam(r, "id") != "" {
		var ok bool
		if id, ok = httpx.PathID(w, r, "id"); !ok {
			return
		}
	}
	var req budgetRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	t, err := ParseBudgetType(req.BudgetType)
	if err != nil {
		h.respondError(w, err)
		return
	}
	b, err := h.service.UpsertBudget(r.Context(), BudgetInput{
		FinancialYearID: req.FinancialYearID,
		ActivityID:      req.ActivityID,
		Type:            t,
		Amount:          req.Amount,
	}, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	status := http.StatusCreated
	if id > 0 {
		status = http.StatusOK
	}
	httpx.JSON(w, status, toBudgetResponse(b))
}

func (h *Handler) deleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteBudget(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listExpenditures(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	items, err := h.service.ListExpenditures(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]expenditureResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenditureResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"expenditures": out})
}

func (h *Handler) getExpenditure(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.service.GetExpenditure(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toExpenditureResponse(e))
}

func (h *Handler) saveExpenditure(w http.ResponseWriter, r *http.Request) {
	var id int64
	if chi.URLParam(r, "id") != "" {
		var ok bool
		if id, ok = httpx.PathID(w, r, "id"); !ok {
			return
		}
	}
	var req expenditureRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	t, err := ParseBudgetType(req.BudgetType)
	if err != nil {
		h.respondError(w, err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.respondError(w, err)
		return
	}
	e, err := h.service.RecordExpenditure(r.Context(), ExpenditureInput{
		FinancialYearID: req.FinancialYearID,
		ActivityID:      req.ActivityID,
		Type:            t,
		Date:            date,
		Amount:          req.Amount,
		Description:     req.Description,
	}, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	status := http.StatusCreated
	if id > 0 {
		status = http.StatusOK
	}
	httpx.JSON(w, status, toExpenditureResponse(e))
}

func (h *Handler) deleteExpenditure(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteExpenditure(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type typeSummaryResponse struct {
	BudgetType  string `json:"budget_type"`
	Label       string `json:"label"`
	Budget      string `json:"budget"`
	Expenditure string `json:"expenditure"`
	Balance     string `json:"balance"`
	HasBudget   bool   `json:"has_budget"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	activityID, ok := httpx.QueryInt64(r, "activity_id")
	fyID, ok2 := httpx.QueryInt64(r, "financial_year_id")
	if !ok || !ok2 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "activity_id and financial_year_id are required")
		return
	}
	s, err := h.service.Summary(r.Context(), activityID, fyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	types := make([]typeSummaryResponse, 0, len(s.Types))
	for _, t := range s.Types {
		types = append(types, typeSummaryResponse{
			BudgetType:  string(t.Type),
			Label:       t.Label,
			Budget:      t.Budget.StringFixed(amountScale),
			Expenditure: t.Expenditure.StringFixed(amountScale),
			Balance:     t.Balance.StringFixed(amountScale),
			HasBudget:   t.HasBudget,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"activity_id":       s.ActivityID,
		"financial_year_id": s.FinancialYearID,
		"types":             types,
		"total_budget":      s.TotalBudget.StringFixed(amountScale),
		"total_expenditure": s.TotalExpenditure.StringFixed(amountScale),
		"balance":           s.Balance.StringFixed(amountScale),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &verrs):
		httpx.RespondError(w, err)
	default:
		if _, ok := shared.ViolationCode(err); !ok {
			h.logger.Error("ledger handler", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
