package fiscal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-office/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-office/internal/rbac"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Handler exposes financial years over JSON.
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

// MountRoutes registers financial year routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth())
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermFiscalEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type yearRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type yearResponse struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func toResponse(fy FinancialYear) yearResponse {
	return yearResponse{
		ID:        fy.ID,
		Label:     fy.Label(),
		StartDate: fy.StartDate.Format(DateLayout),
		EndDate:   fy.EndDate.Format(DateLayout),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]yearResponse, 0, len(years))
	for _, fy := range years {
		out = append(out, toResponse(fy))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"financial_years": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	fy, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(fy))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req yearRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	fy, err := h.service.Create(r.Context(), req.StartDate, req.EndDate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(fy))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	var req yearRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	fy, err := h.service.Update(r.Context(), id, req.StartDate, req.EndDate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(fy))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrFinancialYearInUse), errors.Is(err, ErrDuplicateFinancialYear):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		if _, ok := shared.ViolationCode(err); !ok {
			h.logger.Error("financial year handler", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
