package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/disi/commandes/internal/application/identity"
	"github.com/disi/commandes/internal/infrastructure/auth"
	"github.com/disi/commandes/internal/infrastructure/config"
	"github.com/disi/commandes/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration, sessions and the caller's profile
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
	cookies     config.CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService, cookies config.CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
	}
}

// Register creates an account awaiting approval. POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), identity.RegisterInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Administration: req.Administration,
		Phone:          req.Phone,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// Login authenticates with e-mail and password and sets the session
// cookies. POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	// the login limiter may already have read the body
	if err := c.ShouldBindBodyWithJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setSession(c, result.Tokens)
	h.Success(c, SessionResponse{Token: result.Tokens, User: result.User})
}

// Refresh rotates the refresh token taken from the body or the refresh
// cookie. POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		token, _ = c.Cookie(h.cookies.RefreshName)
	}
	if token == "" {
		h.Error(c, http.StatusBadRequest, "TOKEN_MISSING", "A refresh token is required")
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		h.clearSession(c)
		h.HandleError(c, err)
		return
	}

	h.setSession(c, result.Tokens)
	h.Success(c, SessionResponse{Token: result.Tokens, User: result.User})
}

// Logout revokes the current tokens and clears the cookies.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshTokenRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}
	refresh := req.RefreshToken
	if refresh == "" {
		refresh, _ = c.Cookie(h.cookies.RefreshName)
	}

	err := h.authService.Logout(c.Request.Context(), identity.LogoutInput{
		AccessClaims: middleware.GetJWTClaims(c),
		RefreshToken: refresh,
	})
	h.clearSession(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Logged out"})
}

// Me returns the caller's profile. GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateProfile changes the caller's name and phone. PUT /auth/me
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), identity.UpdateProfileInput{
		UserID: userID,
		Name:   req.Name,
		Phone:  req.Phone,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangePassword ends every other session and hands back a fresh pair.
// PUT /auth/me/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tokens, err := h.authService.ChangePassword(c.Request.Context(), identity.ChangePasswordInput{
		UserID:      userID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.setSession(c, tokens)
	h.Success(c, gin.H{"token": tokens})
}

func (h *AuthHandler) setSession(c *gin.Context, tokens *auth.TokenPair) {
	now := time.Now()
	h.setCookie(c, h.cookies.Name, tokens.AccessToken, int(tokens.AccessTokenExpiresAt.Sub(now).Seconds()))
	h.setCookie(c, h.cookies.RefreshName, tokens.RefreshToken, int(tokens.RefreshTokenExpiresAt.Sub(now).Seconds()))
}

func (h *AuthHandler) clearSession(c *gin.Context) {
	h.setCookie(c, h.cookies.Name, "", -1)
	h.setCookie(c, h.cookies.RefreshName, "", -1)
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	if name == "" {
		return
	}
	c.SetSameSite(sameSite(h.cookies.SameSite))
	c.SetCookie(name, value, maxAge, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, true)
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
