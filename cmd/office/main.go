package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odyssey-erp/odyssey-office/internal/accounts"
	"github.com/odyssey-erp/odyssey-office/internal/activities"
	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
	reporthttp "github.com/odyssey-erp/odyssey-office/internal/activityreport/http"
	"github.com/odyssey-erp/odyssey-office/internal/app"
	"github.com/odyssey-erp/odyssey-office/internal/auth"
	"github.com/odyssey-erp/odyssey-office/internal/fiscal"
	"github.com/odyssey-erp/odyssey-office/internal/ledger"
	"github.com/odyssey-erp/odyssey-office/internal/observability"
	"github.com/odyssey-erp/odyssey-office/internal/office"
	"github.com/odyssey-erp/odyssey-office/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
	"github.com/odyssey-erp/odyssey-office/internal/rbac"
	"github.com/odyssey-erp/odyssey-office/internal/servicedesk"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
	"github.com/odyssey-erp/odyssey-office/internal/view"
	"github.com/odyssey-erp/odyssey-office/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.MigrateOnStart {
		if err := migrateUp(cfg.PGDSN); err != nil {
			logger.Error("migrate on start", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.Open(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "office_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	rbacService := rbac.NewService(rbac.NewRepository(dbpool))
	if err := rbacService.SyncCapabilities(ctx, shared.Capabilities()); err != nil {
		logger.Error("sync capabilities", slog.Any("error", err))
		os.Exit(1)
	}
	rbacMiddleware := rbac.Middleware{Loader: rbacService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool), auth.WithLogger(logger))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	reportCache := activityreport.NewCache(redisClient, cfg.ReportCacheTTL)

	officeService := office.NewService(office.NewRepository(dbpool), auditLogger, logger,
		office.WithInvalidator(reportCache))
	fiscalService := fiscal.NewService(fiscal.NewRepository(dbpool), auditLogger, logger,
		fiscal.WithInvalidator(reportCache))
	accountsService := accounts.NewService(accounts.NewRepository(dbpool), rbacService, auditLogger, logger)
	activitiesService := activities.NewService(activities.NewRepository(dbpool), auditLogger, logger,
		activities.WithInvalidator(reportCache))
	ledgerService := ledger.NewService(ledger.NewRepository(dbpool), auditLogger, logger,
		ledger.WithRejectionRecorder(metrics),
		ledger.WithInvalidator(reportCache),
	)
	serviceDeskService := servicedesk.NewService(servicedesk.NewRepository(dbpool), reportCache, logger)

	aggregator := activityreport.NewAggregator(activityreport.NewSource(dbpool), cfg.ReportWorkers)
	reportService := activityreport.NewService(aggregator, reportCache, metrics, logger)
	pdfClient := report.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg unavailable, pdf downloads will fail", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Templates:          templates,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		OfficeHandler:      office.NewHandler(logger, officeService, rbacMiddleware),
		FiscalHandler:      fiscal.NewHandler(logger, fiscalService, rbacMiddleware),
		AccountsHandler:    accounts.NewHandler(logger, accountsService, rbacMiddleware),
		RolesHandler:       rbac.NewHandler(logger, rbacService, rbacMiddleware),
		ActivitiesHandler:  activities.NewHandler(logger, activitiesService, rbacMiddleware),
		LedgerHandler:      ledger.NewHandler(logger, ledgerService, rbacMiddleware),
		ServiceDeskHandler: servicedesk.NewHandler(logger, serviceDeskService, rbacMiddleware),
		ReportHandler:      reporthttp.NewHandler(logger, reportService, rbacMiddleware, templates, csrfManager, pdfClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func migrateUp(dsn string) error {
	m, err := db.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
