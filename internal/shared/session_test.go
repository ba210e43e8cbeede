package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "office_session", time.Hour, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("42")
	sess.AddFlash(FlashMessage{Kind: "success", Message: "saved"})

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "42", loaded.User())
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "saved", flash.Message)
	assert.Nil(t, loaded.PopFlash())
}

func TestSessionUnknownCookieGetsFreshID(t *testing.T) {
	sm, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "attacker-chosen"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
}

func TestSessionRenewDropsPreviousKey(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	oldID := sess.ID
	require.True(t, mr.Exists(sessionKeyPrefix+oldID))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: oldID})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	sm.Renew(loaded)
	loaded.SetUser("7")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))

	assert.False(t, mr.Exists(sessionKeyPrefix+oldID))
	assert.True(t, mr.Exists(sessionKeyPrefix+loaded.ID))
	assert.NotEqual(t, oldID, loaded.ID)
}

func TestActorIDFromContext(t *testing.T) {
	sm, _ := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	ctx := ContextWithSession(context.Background(), sess)
	_, ok := ActorIDFromContext(ctx)
	assert.False(t, ok)

	sess.SetUser("12")
	id, ok := ActorIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}

func TestCSRFTokenLifecycle(t *testing.T) {
	sm, _ := newTestManager(t)
	csrf := NewCSRFManager("secret")
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, token+"x"), ErrCSRFTokenMismatch)
}
