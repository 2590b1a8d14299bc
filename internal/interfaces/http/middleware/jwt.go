package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/auth"
	"github.com/disi/commandes/internal/infrastructure/logger"
	"github.com/disi/commandes/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// Revocations is optional; without it logout only clears cookies
	Revocations auth.Revocations
	// CookieName is read when no Authorization header is sent
	CookieName string
	Logger     *zap.Logger
}

// UserFinder loads the live account behind a token
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// JWTAuth authenticates the request from a bearer token or the access cookie
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		token, err := extractToken(c, cfg.CookieName)
		if err != nil {
			handleAuthError(c, log, err)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			handleAuthError(c, log, err)
			return
		}

		if err := auth.CheckRevoked(c.Request.Context(), cfg.Revocations, claims); err != nil {
			if !errors.Is(err, auth.ErrTokenRevoked) {
				// fail open: a revocation store outage must not log everyone out
				log.Error("Failed to check token revocation",
					zap.String("user_id", claims.UserID),
					zap.Error(err))
			} else {
				handleAuthError(c, log, err)
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)

		ctx := c.Request.Context()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

var errMissingToken = errors.New("missing token")

func extractToken(c *gin.Context, cookieName string) (string, error) {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return "", auth.ErrInvalidToken
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			return "", errMissingToken
		}
		return token, nil
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			return token, nil
		}
	}
	return "", errMissingToken
}

func handleAuthError(c *gin.Context, log *zap.Logger, err error) {
	code, message := dto.ErrCodeTokenInvalid, "Invalid token"
	switch {
	case errors.Is(err, errMissingToken):
		code, message = dto.ErrCodeTokenMissing, "Authentication required"
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	}

	log.Debug("JWT authentication failed",
		zap.String("code", code),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	abort(c, http.StatusUnauthorized, code, message)
}

// RequireAdmin lets administrators through
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abort(c, http.StatusUnauthorized, dto.ErrCodeTokenMissing, "Authentication required")
			return
		}
		if !claims.IsAdmin {
			abort(c, http.StatusForbidden, dto.ErrCodeAdminOnly, "Administrator access required")
			return
		}
		c.Next()
	}
}

// RequireApproved lets approved users through. The flag in the token may be
// stale, so the account is read back from users.
func RequireApproved(users UserFinder, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abort(c, http.StatusUnauthorized, dto.ErrCodeTokenMissing, "Authentication required")
			return
		}
		userID, err := claims.UserUUID()
		if err != nil {
			abort(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Invalid token")
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if shared.IsNotFound(err) {
				abort(c, http.StatusUnauthorized, dto.ErrCodeTokenRevoked, "Account no longer exists")
				return
			}
			log.Error("Failed to load user for approval check", zap.String("user_id", claims.UserID), zap.Error(err))
			abort(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
			return
		}
		if !user.CanOrder() {
			abort(c, http.StatusForbidden, dto.ErrCodeNotApproved, "Your account is awaiting approval by an administrator")
			return
		}
		c.Next()
	}
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}
