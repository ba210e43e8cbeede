package office

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

// Handler exposes the hierarchy over JSON.
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

// MountRoutes registers /departments, /sections and /units below r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth())
		r.Get("/departments", h.listDepartments)
		r.Get("/departments/{id}", h.getDepartment)
		r.Get("/departments/{id}/sections", h.listDepartmentSections)
		r.Get("/sections", h.listSections)
		r.Get("/sections/{id}", h.getSection)
		r.Get("/units", h.listUnits)
		r.Get("/units/{id}", h.getUnit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOfficeEdit))
		r.Post("/departments", h.saveDepartment)
		r.Put("/departments/{id}", h.saveDepartment)
		r.Delete("/departments/{id}", h.deleteDepartment)
		r.Post("/sections", h.saveSection)
		r.Put("/sections/{id}", h.saveSection)
		r.Delete("/sections/{id}", h.deleteSection)
		r.Post("/units", h.saveUnit)
		r.Put("/units/{id}", h.saveUnit)
		r.Delete("/units/{id}", h.deleteUnit)
	})
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListDepartments(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"departments": items})
}

func (h *Handler) getDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.service.GetDepartment(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) saveDepartment(w http.ResponseWriter, r *http.Request) {
	var d Department
	if !httpx.Bind(w, r, h.validator, &d) {
		return
	}
	d.ID = 0
	status := http.StatusCreated
	if chi.URLParam(r, "id") != "" {
		id, ok := httpx.PathID(w, r, "id")
		if !ok {
			return
		}
		d.ID, status = id, http.StatusOK
	}
	saved, err := h.service.SaveDepartment(r.Context(), d)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, status, saved)
}

func (h *Handler) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteDepartment(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listDepartmentSections(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	h.writeSections(w, r, id)
}

func (h *Handler) listSections(w http.ResponseWriter, r *http.Request) {
	departmentID, _ := httpx.QueryInt64(r, "department_id")
	h.writeSections(w, r, departmentID)
}

func (h *Handler) writeSections(w http.ResponseWriter, r *http.Request, departmentID int64) {
	items, err := h.service.ListSections(r.Context(), departmentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sections": items})
}

func (h *Handler) getSection(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.service.GetSection(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) saveSection(w http.ResponseWriter, r *http.Request) {
	var s Section
	if !httpx.Bind(w, r, h.validator, &s) {
		return
	}
	s.ID = 0
	status := http.StatusCreated
	if chi.URLParam(r, "id") != "" {
		id, ok := httpx.PathID(w, r, "id")
		if !ok {
			return
		}
		s.ID, status = id, http.StatusOK
	}
	saved, err := h.service.SaveSection(r.Context(), s)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, status, saved)
}

func (h *Handler) deleteSection(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteSection(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListUnits(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"units": items})
}

func (h *Handler) getUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.service.GetUnit(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) saveUnit(w http.ResponseWriter, r *http.Request) {
	var u Unit
	if !httpx.Bind(w, r, h.validator, &u) {
		return
	}
	u.ID = 0
	status := http.StatusCreated
	if chi.URLParam(r, "id") != "" {
		id, ok := httpx.PathID(w, r, "id")
		if !ok {
			return
		}
		u.ID, status = id, http.StatusOK
	}
	saved, err := h.service.SaveUnit(r.Context(), u)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, status, saved)
}

func (h *Handler) deleteUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteUnit(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDepartmentMissing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			h.logger.Error("office handler", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
