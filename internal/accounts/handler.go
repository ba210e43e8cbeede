package accounts

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

// Handler exposes account administration over JSON.
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

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAccountsView, shared.PermAccountsEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAccountsEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/deactivate", h.deactivate)
		r.Post("/{id}/activate", h.activate)
		r.Put("/{id}/password", h.setPassword)
		r.Post("/{id}/roles", h.assignRoles)
		r.Delete("/{id}/roles/{roleID}", h.revokeRole)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, page, err := h.service.List(r.Context(), shared.PageParamsFromQuery(r.URL.Query()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": items, "pagination": page})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	a, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
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
	a, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.SetActive(r.Context(), id, active); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (h *Handler) setPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	var req passwordRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	if err := h.service.SetPassword(r.Context(), id, req.Password); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type rolesRequest struct {
	RoleIDs []int64 `json:"role_ids" validate:"required,min=1,dive,gt=0"`
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	var req rolesRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	if err := h.service.AssignRoles(r.Context(), id, req.RoleIDs); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := httpx.PathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.RevokeRole(r.Context(), id, roleID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, rbac.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.As(err, &verrs):
		httpx.RespondError(w, err)
	default:
		if _, ok := shared.ViolationCode(err); !ok {
			h.logger.Error("accounts handler", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
