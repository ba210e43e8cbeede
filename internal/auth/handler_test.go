package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-office/internal/auth"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
	"github.com/odyssey-erp/odyssey-office/internal/view"
	_ "github.com/odyssey-erp/odyssey-office/testing"
)

type stubRepo struct {
	account   *auth.Account
	sessions  map[string]int64
	lastLogin map[int64]time.Time
	findErr   error
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.account == nil || !strings.EqualFold(s.account.Email, email) {
		return nil, shared.ErrNotFound
	}
	return s.account, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, accountID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = map[string]int64{}
	}
	s.sessions[id] = accountID
	return nil
}

func (s *stubRepo) RecordLogin(ctx context.Context, accountID int64, at time.Time) error {
	if s.lastLogin == nil {
		s.lastLogin = map[int64]time.Time{}
	}
	s.lastLogin[accountID] = at
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	handler := auth.NewHandler(nil, auth.NewService(repo), templates, sessionManager, csrfManager)
	return handler, sessionManager
}

func activeAccount(t *testing.T, password string) *auth.Account {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.Account{ID: 1, Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}
}

func postLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, email, password string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, sess
}

func TestLoginPage(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
	if sess.Get(shared.CSRFSessionKey) == "" {
		t.Fatalf("csrf token not set")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{account: activeAccount(t, "correctpass")})

	res, sess := postLogin(t, handler, sessionManager, "user@test.local", "wrongpass")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Invalid email or password") {
		t.Fatalf("expected error message in response")
	}
	if sess.User() != "" {
		t.Fatalf("failed login must not bind a user")
	}
}

func TestLoginInactiveAccountRejected(t *testing.T) {
	account := activeAccount(t, "correctpass")
	account.IsActive = false
	handler, sessionManager := newAuthHandler(t, &stubRepo{account: account})

	res, _ := postLogin(t, handler, sessionManager, "user@test.local", "correctpass")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLoginRepositoryFailureIsServerError(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{findErr: errors.New("connection refused")})

	res, sess := postLogin(t, handler, sessionManager, "user@test.local", "correctpass")
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("failed login must not bind a user")
	}
}

func TestLoginSuccessRenewsSession(t *testing.T) {
	repo := &stubRepo{account: activeAccount(t, "correctpass")}
	handler, sessionManager := newAuthHandler(t, repo)

	res, sess := postLogin(t, handler, sessionManager, "USER@test.local", "correctpass")
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if sess.User() != "1" {
		t.Fatalf("expected account bound to session, got %q", sess.User())
	}
	if repo.sessions[sess.ID] != 1 {
		t.Fatalf("expected session %s registered", sess.ID)
	}
	var cookie *http.Cookie
	for _, c := range res.Result().Cookies() {
		if c.Name == sessionManager.CookieName() {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != sess.ID {
		t.Fatalf("expected renewed session cookie")
	}
}
