package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/disi/commandes/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCookieConfig() config.CookieConfig {
	return config.CookieConfig{
		Name:        "access_token",
		RefreshName: "refresh_token",
		Path:        "/",
		SameSite:    "lax",
	}
}

func TestSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, sameSite("Strict"))
	assert.Equal(t, http.SameSiteNoneMode, sameSite("none"))
	assert.Equal(t, http.SameSiteLaxMode, sameSite("lax"))
	assert.Equal(t, http.SameSiteLaxMode, sameSite(""))
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	h := NewAuthHandler(nil, testCookieConfig())
	c, w := newTestContext(http.MethodPost, "/auth/register")
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name":"Awa","email":"not-an-email","password":"short","administration":"   "}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	fields := make([]string, 0, len(resp.Error.Details))
	for _, d := range resp.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"email", "password", "administration"}, fields)
}

func TestAuthHandler_LoginMalformedJSON(t *testing.T) {
	h := NewAuthHandler(nil, testCookieConfig())
	c, w := newTestContext(http.MethodPost, "/auth/login")
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_JSON", decodeResponse(t, w).Error.Code)
}

func TestAuthHandler_RefreshWithoutToken(t *testing.T) {
	h := NewAuthHandler(nil, testCookieConfig())
	c, w := newTestContext(http.MethodPost, "/auth/refresh")

	h.Refresh(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TOKEN_MISSING", decodeResponse(t, w).Error.Code)
}

func TestAuthHandler_ClearSession(t *testing.T) {
	h := NewAuthHandler(nil, testCookieConfig())
	c, w := newTestContext(http.MethodPost, "/auth/logout")

	h.clearSession(c)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, ck := range cookies {
		assert.True(t, ck.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
		assert.Negative(t, ck.MaxAge)
	}
}
