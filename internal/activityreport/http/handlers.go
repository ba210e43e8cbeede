package reporthttp

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
	"github.com/odyssey-erp/odyssey-office/internal/activityreport/export"
	"github.com/odyssey-erp/odyssey-office/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-office/internal/rbac"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
	"github.com/odyssey-erp/odyssey-office/internal/view"
)

// Handler serves the report form, the JSON payload and its renderings.
type Handler struct {
	logger    *slog.Logger
	service   *activityreport.Service
	rbac      rbac.Middleware
	templates *view.Engine
	csrf      *shared.CSRFManager
	pdf       export.HTMLRenderer
	now       func() time.Time
}

// NewHandler constructs a Handler. templates, csrf and pdf may be nil; the
// form page and PDF download are then unavailable.
func NewHandler(logger *slog.Logger, service *activityreport.Service, rbac rbac.Middleware, templates *view.Engine, csrf *shared.CSRFManager, pdf export.HTMLRenderer) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, templates: templates, csrf: csrf, pdf: pdf, now: time.Now}
}

type formView struct {
	Choices activityreport.Choices
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil {
		http.NotFound(w, r)
		return
	}
	choices, err := h.service.Choices(r.Context(), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	var (
		token string
		flash *shared.FlashMessage
	)
	if sess != nil {
		if h.csrf != nil {
			token, _ = h.csrf.EnsureToken(r.Context(), sess)
		}
		flash = sess.PopFlash()
	}
	data := view.TemplateData{
		Title:       "Activity Report",
		CSRFToken:   token,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        formView{Choices: choices},
	}
	if err := h.templates.Render(w, "pages/report_form.html", data); err != nil {
		h.logger.Error("render report form", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) choices(w http.ResponseWriter, r *http.Request) {
	choices, err := h.service.Choices(r.Context(), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, choices)
}

// generate parses the request and builds the report, writing any error response.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) (activityreport.Report, bool) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid form body")
		return activityreport.Report{}, false
	}
	req, err := activityreport.ParseRequest(r.Form)
	if err != nil {
		h.respondError(w, err)
		return activityreport.Report{}, false
	}
	rep, err := h.service.Generate(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return activityreport.Report{}, false
	}
	return rep, true
}

func (h *Handler) json(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.generate(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) html(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.generate(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteHTML(&buf, rep); err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) csv(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.generate(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rep); err != nil {
		h.respondError(w, err)
		return
	}
	h.attachment(w, "text/csv; charset=utf-8", "csv", buf.Bytes())
}

func (h *Handler) docx(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.generate(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteDOCX(&buf, rep); err != nil {
		h.respondError(w, err)
		return
	}
	h.attachment(w, export.DOCXContentType, "docx", buf.Bytes())
}

func (h *Handler) xlsx(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.generate(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rep); err != nil {
		h.respondError(w, err)
		return
	}
	h.attachment(w, export.XLSXContentType, "xlsx", buf.Bytes())
}

func (h *Handler) pdfDownload(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "PDF rendering is not configured")
		return
	}
	rep, ok := h.generate(w, r)
	if !ok {
		return
	}
	data, err := export.RenderPDF(r.Context(), h.pdf, rep)
	if err != nil {
		h.logger.Error("render report pdf", slog.String("report_id", rep.ID), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "PDF rendering failed")
		return
	}
	h.attachment(w, "application/pdf", "pdf", data)
}

func (h *Handler) attachment(w http.ResponseWriter, contentType, ext string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(h.now(), ext)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, activityreport.ErrScopeNotVisible):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", activityreport.ErrScopeNotVisible.Message)
	default:
		if _, ok := shared.ViolationCode(err); !ok {
			h.logger.Error("activity report handler", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
