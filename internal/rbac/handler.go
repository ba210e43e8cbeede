package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-office/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Handler exposes role management and the current principal.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAuth()).Get("/me", h.me)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView, shared.PermRolesEdit))
		r.Get("/", h.listRoles)
		r.Get("/permissions", h.listPermissions)
		r.Get("/{id}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesEdit))
		r.Post("/", h.createRole)
		r.Put("/{id}", h.updateRole)
		r.Delete("/{id}", h.deleteRole)
		r.Put("/{id}/permissions", h.setPermissions)
		r.Put("/{id}/accounts/{accountID}", h.assign)
		r.Delete("/{id}/accounts/{accountID}", h.unassign)
	})
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
}

type grantRequest struct {
	Permissions []string `json:"permissions" validate:"dive,required"`
}

type principalResponse struct {
	AccountID   int64    `json:"account_id"`
	Email       string   `json:"email"`
	Superuser   bool     `json:"superuser"`
	Permissions []string `json:"permissions"`
	Scope       any      `json:"scope"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, principalResponse{
		AccountID:   p.AccountID,
		Email:       p.Email,
		Superuser:   p.Superuser,
		Permissions: p.Permissions(),
		Scope:       p.OwnScope(),
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	role, perms, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "permissions": perms})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	var req grantRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), id, req.Permissions); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	roleID, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := httpx.PathID(w, r, "accountID")
	if !ok {
		return
	}
	if err := h.service.AssignRole(r.Context(), accountID, roleID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	roleID, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := httpx.PathID(w, r, "accountID")
	if !ok {
		return
	}
	if err := h.service.RemoveRole(r.Context(), accountID, roleID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateRole):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrUnknownPermission), errors.Is(err, ErrInvalidRole):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("rbac handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
