package reporthttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// MountRoutes registers report endpoints. Downloads are rate limited per user.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsView, shared.PermReportsExport))
		r.Get("/", h.form)
		r.Get("/choices", h.choices)
		r.Get("/activities", h.json)
		r.Post("/activities", h.json)
		r.Get("/activities.html", h.html)
		r.Post("/activities.html", h.html)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsExport))
		r.Use(limiter)
		r.Get("/activities.csv", h.csv)
		r.Post("/activities.csv", h.csv)
		r.Get("/activities.docx", h.docx)
		r.Post("/activities.docx", h.docx)
		r.Get("/activities.xlsx", h.xlsx)
		r.Post("/activities.xlsx", h.xlsx)
		r.Get("/activities.pdf", h.pdfDownload)
		r.Post("/activities.pdf", h.pdfDownload)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user, nil
		}
	}
	return httprate.KeyByIP(r)
}
