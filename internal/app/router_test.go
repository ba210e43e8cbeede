package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-office/internal/auth"
	"github.com/odyssey-erp/odyssey-office/internal/rbac"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
	"github.com/odyssey-erp/odyssey-office/internal/view"
)

type sessionStore struct{}

func (sessionStore) FindByEmail(context.Context, string) (*auth.Account, error) {
	return nil, shared.ErrNotFound
}

func (sessionStore) CreateSession(context.Context, string, int64, time.Time, string, string) error {
	return nil
}

func (sessionStore) DeleteSession(context.Context, string) error { return nil }

func (sessionStore) RecordLogin(context.Context, int64, time.Time) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	templates, err := view.NewEngine()
	require.NoError(t, err)
	sessions := shared.NewSessionManager(client, "office_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	return NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{AppEnv: "test", RateLimitPerMinute: 1000},
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		RBACMiddleware: rbac.Middleware{Logger: logger},
		AuthHandler:    auth.NewHandler(logger, auth.NewService(sessionStore{}), templates, sessions, csrf),
	})
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHomeRedirectsAnonymousToLogin(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestUnsafeMethodWithoutCSRFTokenIsForbidden(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFEndpointIssuesSessionBoundToken(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	token := body["csrf_token"]
	require.NotEmpty(t, token)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set(shared.CSRFHeader, token)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestUnwiredModuleIsNotMounted(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/choices", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestStaticAssetsServedWithType(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css"))
	assert.NotEmpty(t, rec.Header().Get("Cache-Control"))
}

func TestExportMimeTypesRegistered(t *testing.T) {
	for ext := range staticTypes {
		assert.NotEmpty(t, mime.TypeByExtension(ext), ext)
	}
}
