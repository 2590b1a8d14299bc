package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/auth"
	"github.com/disi/commandes/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-32-characters-long"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 testSecret,
		RefreshSecret:          "test-refresh-secret-32-characters",
		AccessTokenExpiration:  time.Hour,
		RefreshTokenExpiration: 24 * time.Hour,
		MaxRefreshCount:        3,
	})
}

func issue(t *testing.T, svc *auth.JWTService, userID uuid.UUID, admin bool) *auth.TokenPair {
	t.Helper()
	pair, err := svc.Issue(auth.Subject{UserID: userID, Email: "awa@disi.sn", Name: "Awa", IsAdmin: admin, Approved: true})
	require.NoError(t, err)
	return pair
}

func authEngine(cfg JWTMiddlewareConfig, extra ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuth(cfg)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetJWTUserID(c))
	})
	engine.GET("/me", handlers...)
	return engine
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	return req
}

type brokenRevocations struct{}

func (brokenRevocations) RevokeToken(context.Context, string, time.Duration) error { return nil }
func (brokenRevocations) IsTokenRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}
func (brokenRevocations) RevokeUser(context.Context, string, time.Duration) error { return nil }
func (brokenRevocations) IsUserRevoked(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis down")
}

func TestJWTAuth(t *testing.T) {
	svc := newTestJWTService()
	revocations := auth.NewMemoryRevocations()
	engine := authEngine(JWTMiddlewareConfig{JWTService: svc, Revocations: revocations, CookieName: "access_token"})
	userID := uuid.New()

	t.Run("bearer token", func(t *testing.T) {
		pair := issue(t, svc, userID, false)
		w := serve(engine, bearer(pair.AccessToken))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), w.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		pair := issue(t, svc, userID, false)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: pair.AccessToken})
		w := serve(engine, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := serve(engine, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "TOKEN_MISSING", errorCodeOf(t, w))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthHeaderKey, "Basic abc")
		w := serve(engine, req)
		assert.Equal(t, "TOKEN_INVALID", errorCodeOf(t, w))
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		pair := issue(t, svc, userID, false)
		w := serve(engine, bearer(pair.RefreshToken))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		claims := &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(past),
				ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
			},
			UserID:    userID.String(),
			TokenType: auth.TokenTypeAccess,
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		w := serve(engine, bearer(token))
		assert.Equal(t, "TOKEN_EXPIRED", errorCodeOf(t, w))
	})

	t.Run("revoked", func(t *testing.T) {
		pair := issue(t, svc, userID, false)
		claims, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		require.NoError(t, revocations.RevokeToken(context.Background(), claims.ID, time.Hour))

		w := serve(engine, bearer(pair.AccessToken))
		assert.Equal(t, "TOKEN_REVOKED", errorCodeOf(t, w))
	})

	t.Run("revocation store outage lets the request through", func(t *testing.T) {
		e := authEngine(JWTMiddlewareConfig{JWTService: svc, Revocations: brokenRevocations{}})
		w := serve(e, bearer(issue(t, svc, userID, false).AccessToken))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestJWTService()
	engine := authEngine(JWTMiddlewareConfig{JWTService: svc}, RequireAdmin())

	w := serve(engine, bearer(issue(t, svc, uuid.New(), false).AccessToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ADMIN_REQUIRED", errorCodeOf(t, w))

	w = serve(engine, bearer(issue(t, svc, uuid.New(), true).AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)
}

type stubUsers map[uuid.UUID]*identity.User

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if id == uuid.Nil {
		return nil, errors.New("connection reset")
	}
	u, ok := s[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func TestRequireApproved(t *testing.T) {
	svc := newTestJWTService()

	pending, err := identity.NewUser("Awa Ndiaye", "awa@disi.sn", "secret123", "DAF")
	require.NoError(t, err)
	approved, err := identity.NewUser("Moussa Diop", "moussa@disi.sn", "secret123", "DSI")
	require.NoError(t, err)
	require.NoError(t, approved.Approve(uuid.New()))

	users := stubUsers{pending.ID: pending, approved.ID: approved}
	engine := authEngine(JWTMiddlewareConfig{JWTService: svc}, RequireApproved(users, nil))

	tests := []struct {
		name     string
		userID   uuid.UUID
		status   int
		wantCode string
	}{
		{"approved", approved.ID, http.StatusOK, ""},
		{"awaiting approval", pending.ID, http.StatusForbidden, "ACCOUNT_NOT_APPROVED"},
		{"deleted account", uuid.New(), http.StatusUnauthorized, "TOKEN_REVOKED"},
		{"store failure", uuid.Nil, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine, bearer(issue(t, svc, tt.userID, false).AccessToken))
			assert.Equal(t, tt.status, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCodeOf(t, w))
			}
		})
	}
}
