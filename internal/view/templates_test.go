package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLoginPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/login.html", TemplateData{
		Title:     "Sign in",
		CSRFToken: "tok-123",
		Flash:     &shared.FlashMessage{Kind: "error", Message: "Invalid credentials"},
		Data: struct {
			Form   struct{ Email string }
			Errors map[string]string
		}{
			Form:   struct{ Email string }{Email: "<b>alice</b>@example.com"},
			Errors: map[string]string{"general": "Invalid email or password"},
		},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, `name="csrf_token" value="tok-123"`)
	assert.Contains(t, body, "Invalid credentials")
	assert.Contains(t, body, "Invalid email or password")
	assert.Contains(t, body, "&lt;b&gt;alice&lt;/b&gt;@example.com")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestRenderHomeWithoutData(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, "pages/home.html", TemplateData{Title: "Home", CurrentPath: "/"}))
	assert.Contains(t, rec.Body.String(), `href="/reports/"`)
}

func TestRenderNilEngine(t *testing.T) {
	var engine *Engine
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/home.html", TemplateData{}))
}

func TestRenderUnknownTemplateWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/missing.html", TemplateData{})
	require.Error(t, err)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}
