package servicedesk

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-office/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-office/internal/rbac"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler exposes the service desk over JSON.
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

// MountRoutes registers service desk routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermServiceDeskView, shared.PermServiceDeskEdit))
		r.Get("/systems", h.listSystems)
		r.Get("/services", h.listServices)
		r.Get("/services/{id}", h.getService)
		r.Get("/services/{id}/sub-services", h.listSubServices)
		r.Get("/reporters", h.listReporters)
		r.Get("/tickets", h.listTickets)
		r.Get("/tickets/{id}", h.getTicket)
		r.Get("/statistic-types", h.listStatisticTypes)
		r.Get("/statistics", h.listStatisticsRecords)
		r.Get("/statistics/{id}", h.getStatisticsRecord)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermServiceDeskEdit))
		r.Post("/systems", h.saveSystem)
		r.Put("/systems/{id}", h.saveSystem)
		r.Delete("/systems/{id}", h.deleteWith(h.service.DeleteSystem))
		r.Post("/services", h.saveService)
		r.Put("/services/{id}", h.saveService)
		r.Delete("/services/{id}", h.deleteWith(h.service.DeleteService))
		r.Post("/sub-services", h.saveSubService)
		r.Put("/sub-services/{id}", h.saveSubService)
		r.Delete("/sub-services/{id}", h.deleteWith(h.service.DeleteSubService))
		r.Post("/reporters", h.saveReporter)
		r.Put("/reporters/{id}", h.saveReporter)
		r.Delete("/reporters/{id}", h.deleteWith(h.service.DeleteReporter))
		r.Post("/tickets", h.saveTicket)
		r.Put("/tickets/{id}", h.saveTicket)
		r.Post("/tickets/{id}/status", h.transitionTicket)
		r.Delete("/tickets/{id}", h.deleteWith(h.service.DeleteTicket))
		r.Post("/statistic-types", h.saveStatisticType)
		r.Put("/statistic-types/{id}", h.saveStatisticType)
		r.Delete("/statistic-types/{id}", h.deleteWith(h.service.DeleteStatisticType))
		r.Post("/statistics", h.saveStatisticsRecord)
		r.Put("/statistics/{id}", h.saveStatisticsRecord)
		r.Delete("/statistics/{id}", h.deleteWith(h.service.DeleteStatisticsRecord))
	})
}

// optionalID reads {id} for PUT routes. POST routes yield zero.
func optionalID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if chi.URLParam(r, "id") == "" {
		return 0, true
	}
	return httpx.PathID(w, r, "id")
}

func savedStatus(id int64) int {
	if id == 0 {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (h *Handler) listSystems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListSystems(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"systems": items})
}

func (h *Handler) saveSystem(w http.ResponseWriter, r *http.Request) {
	id, ok := optionalID(w, r)
	if !ok {
		return
	}
	var in SupportedSystem
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	in.ID = id
	saved, err := h.service.SaveSystem(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, savedStatus(id), saved)
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	activityID, _ := httpx.QueryInt64(r, "activity_id")
	items, err := h.service.ListServices(r.Context(), activityID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"services": items})
}

func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	svc, err := h.service.GetService(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

func (h *Handler) saveService(w http.ResponseWriter, r *http.Request) {
	id, ok := optionalID(w, r)
	if !ok {
		return
	}
	var in SupportService
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	in.ID = id
	saved, err := h.service.SaveService(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, savedStatus(id), saved)
}

func (h *Handler) listSubServices(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.service.ListSubServices(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sub_services": items})
}

func (h *Handler) saveSubService(w http.ResponseWriter, r *http.Request) {
	id, ok := optionalID(w, r)
	if !ok {
		return
	}
	var in SubService
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	in.ID = id
	saved, err := h.service.SaveSubService(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, savedStatus(id), saved)
}

func (h *Handler) listReporters(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListReporters(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reporters": items})
}

func (h *Handler) saveReporter(w http.ResponseWriter, r *http.Request) {
	id, ok := optionalID(w, r)
	if !ok {
		return
	}
	var in ExternalReporter
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	in.ID = id
	saved, err := h.service.SaveReporter(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, savedStatus(id), saved)
}

type ticketResponse struct {
	SupportTicket
	StatusDisplay string `json:"status_display"`
}

func (h *Handler) listTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.PageParamsFromQuery(q)
	f := TicketFilter{Status: Status(q.Get("status")), Page: page.Page, PerPage: page.PerPage}
	f.ServiceID, _ = httpx.QueryInt64(r, "service_id")
	if from, err := time.Parse(dateLayout, q.Get("from")); err == nil {
		f.From = from
	}
	if to, err := time.Parse(dateLayout, q.Get("to")); err == nil {
		f.To = to.AddDate(0, 0, 1)
	}
	items, pagination, err := h.service.ListTickets(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]ticketResponse, 0, len(items))
	for _, t := range items {
		out = append(out, ticketResponse{SupportTicket: t, StatusDisplay: t.Status.Display()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tickets": out, "pagination": pagination})
}

func (h *Handler) getTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.service.GetTicket(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticketResponse{SupportTicket: t, StatusDisplay: t.Status.Display()})
}

func (h *Handler) saveTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := optionalID(w, r)
	if !ok {
		return
	}
	var in SupportTicket
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	in.ID = id
	saved, err := h.service.SaveTicket(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, savedStatus(id), ticketResponse{SupportTicket: saved, StatusDisplay: saved.Status.Display()})
}

type transitionRequest struct {
	Status Status `json:"status" validate:"required"`
}

func (h *Handler) transitionTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	t, err := h.service.Transition(r.Context(), id, req.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticketResponse{SupportTicket: t, StatusDisplay: t.Status.Display()})
}

func (h *Handler) listStatisticTypes(w http.ResponseWriter, r *http.Request) {
	activityID, _ := httpx.QueryInt64(r, "activity_id")
	items, err := h.service.ListStatisticTypes(r.Context(), activityID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"statistic_types": items})
}

func (h *Handler) saveStatisticType(w http.ResponseWriter, r *http.Request) {
	id, ok := optionalID(w, r)
	if !ok {
		return
	}
	var in StatisticType
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	in.ID = id
	saved, err := h.service.SaveStatisticType(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, savedStatus(id), saved)
}

type recordRequest struct {
	StatisticTypeID int64  `json:"statistic_type_id" validate:"required,gt=0"`
	Title           string `json:"title" validate:"required,max=255"`
	Description     string `json:"description"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type recordResponse struct {
	ID              int64  `json:"id"`
	StatisticTypeID int64  `json:"statistic_type_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
}

func toRecordResponse(rec StatisticsRecord) recordResponse {
	return recordResponse{
		ID:              rec.ID,
		StatisticTypeID: rec.StatisticTypeID,
		Title:           rec.Title,
		Description:     rec.Description,
		StartDate:       rec.StartDate.Format(dateLayout),
		EndDate:         rec.EndDate.Format(dateLayout),
	}
}

func (h *Handler) listStatisticsRecords(w http.ResponseWriter, r *http.Request) {
	typeID, _ := httpx.QueryInt64(r, "statistic_type_id")
	items, err := h.service.ListStatisticsRecords(r.Context(), typeID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]recordResponse, 0, len(items))
	for _, rec := range items {
		out = append(out, toRecordResponse(rec))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"statistics": out})
}

func (h *Handler) getStatisticsRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.service.GetStatisticsRecord(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) saveStatisticsRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := optionalID(w, r)
	if !ok {
		return
	}
	var req recordRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)
	saved, err := h.service.SaveStatisticsRecord(r.Context(), StatisticsRecord{
		ID:              id,
		StatisticTypeID: req.StatisticTypeID,
		Title:           req.Title,
		Description:     req.Description,
		StartDate:       start,
		EndDate:         end,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, savedStatus(id), toRecordResponse(saved))
}

func (h *Handler) deleteWith(del func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.PathID(w, r, "id")
		if !ok {
			return
		}
		if err := del(r.Context(), id); err != nil {
			h.respondError(w, err)
			return
		}
		httpx.NoContent(w)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &verrs):
		httpx.RespondError(w, err)
	default:
		if _, ok := shared.ViolationCode(err); !ok {
			h.logger.Error("servicedesk handler", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
