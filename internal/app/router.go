package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-office/internal/accounts"
	"github.com/odyssey-erp/odyssey-office/internal/activities"
	reporthttp "github.com/odyssey-erp/odyssey-office/internal/activityreport/http"
	"github.com/odyssey-erp/odyssey-office/internal/auth"
	"github.com/odyssey-erp/odyssey-office/internal/fiscal"
	"github.com/odyssey-erp/odyssey-office/internal/ledger"
	"github.com/odyssey-erp/odyssey-office/internal/observability"
	"github.com/odyssey-erp/odyssey-office/internal/office"
	"github.com/odyssey-erp/odyssey-office/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-office/internal/rbac"
	"github.com/odyssey-erp/odyssey-office/internal/servicedesk"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
	"github.com/odyssey-erp/odyssey-office/internal/view"
	"github.com/odyssey-erp/odyssey-office/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	OfficeHandler      *office.Handler
	FiscalHandler      *fiscal.Handler
	AccountsHandler    *accounts.Handler
	RolesHandler       *rbac.Handler
	ActivitiesHandler  *activities.Handler
	LedgerHandler      *ledger.Handler
	ServiceDeskHandler *servicedesk.Handler
	ReportHandler      *reporthttp.Handler
}

// NewRouter constructs the chi.Router with office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.RBACMiddleware.Attach)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}

		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		data := view.TemplateData{
			Title:       "Home",
			CSRFToken:   csrfToken,
			Flash:       sess.PopFlash(),
			CurrentPath: r.URL.Path,
			Data: map[string]any{
				"AppEnv": params.Config.AppEnv,
			},
		}
		if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
			params.Logger.Error("render home", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
			token, err := params.CSRFManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
			if err != nil {
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
		})
		params.AuthHandler.MountRoutes(r)
	})

	if params.OfficeHandler != nil {
		r.Route("/office", params.OfficeHandler.MountRoutes)
	}
	if params.FiscalHandler != nil {
		r.Route("/fiscal-years", params.FiscalHandler.MountRoutes)
	}
	if params.AccountsHandler != nil {
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
	}
	if params.RolesHandler != nil {
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.ActivitiesHandler != nil {
		r.Route("/activities", params.ActivitiesHandler.MountRoutes)
	}
	if params.LedgerHandler != nil {
		r.Route("/ledger", params.LedgerHandler.MountRoutes)
	}
	if params.ServiceDeskHandler != nil {
		r.Route("/servicedesk", params.ServiceDeskHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/reports", params.ReportHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
