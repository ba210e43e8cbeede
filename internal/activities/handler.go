package activities

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

// Handler exposes activities over JSON.
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

// MountRoutes registers activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.ActivityViewScopes()...))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermActivitiesEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type activityResponse struct {
	Activity
	DisplayName   string `json:"display_name"`
	DatePerformed string `json:"date_performed"`
}

func toResponse(a Activity) activityResponse {
	return activityResponse{Activity: a, DisplayName: a.DisplayName(), DatePerformed: a.DatePerformed.Format(DateLayout)}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageParamsFromQuery(r.URL.Query())
	filter := ListFilter{Search: r.URL.Query().Get("q"), Page: page.Page, PerPage: page.PerPage}
	filter.FinancialYearID, _ = httpx.QueryInt64(r, "financial_year_id")
	filter.UnitID, _ = httpx.QueryInt64(r, "unit_id")
	filter.SectionID, _ = httpx.QueryInt64(r, "section_id")

	items, pagination, err := h.service.List(r.Context(), rbac.PrincipalFromContext(r.Context()), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]activityResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activities": out, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.service.Get(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	a, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	var in Input
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	a, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrReferenceMissing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &verrs):
		httpx.RespondError(w, err)
	default:
		if _, ok := shared.ViolationCode(err); !ok {
			h.logger.Error("activities handler", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
