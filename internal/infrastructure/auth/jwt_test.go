package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disi/commandes/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  2 * time.Hour,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "disi-test",
		MaxRefreshCount:        3,
	})
}

func newTestSubject() Subject {
	return Subject{
		UserID:   uuid.New(),
		Email:    "awa.diop@disi.sn",
		Name:     "Awa Diop",
		Approved: true,
	}
}

func TestNewJWTService_RefreshSecretDefaultsToSecret(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "only-secret"})
	assert.Equal(t, []byte("only-secret"), svc.refreshSecret)
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestJWTService()
	subject := newTestSubject()

	pair, err := svc.Issue(subject)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, subject.UserID.String(), claims.UserID)
	assert.Equal(t, subject.Email, claims.Email)
	assert.Equal(t, subject.Name, claims.Name)
	assert.True(t, claims.Approved)
	assert.False(t, claims.IsAdmin)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)

	id, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, subject.UserID, id)
	assert.InDelta(t, (2 * time.Hour).Seconds(), claims.RemainingTTL().Seconds(), 5)

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.Empty(t, refresh.Email)
	assert.Zero(t, refresh.RefreshCount)
}

func TestIssue_AdminIsAlwaysApproved(t *testing.T) {
	svc := newTestJWTService()
	subject := newTestSubject()
	subject.Approved = false
	subject.IsAdmin = true

	pair, err := svc.Issue(subject)
	require.NoError(t, err)
	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.Approved)
	assert.True(t, claims.IsAdmin)
}

func TestIssue_RequiresUserID(t *testing.T) {
	_, err := newTestJWTService().Issue(Subject{Email: "x@disi.sn"})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestValidate_Errors(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.Issue(newTestSubject())
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh used as access", func(t *testing.T) {
		// access and refresh secrets differ, so the signature fails first
		_, err := svc.ValidateAccessToken(pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong type with shared secret", func(t *testing.T) {
		shared := NewJWTService(config.JWTConfig{Secret: "shared-secret", AccessTokenExpiration: time.Hour, RefreshTokenExpiration: time.Hour})
		p, err := shared.Issue(newTestSubject())
		require.NoError(t, err)
		_, err = shared.ValidateAccessToken(p.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
		_, err = shared.ValidateRefreshToken(p.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})

	t.Run("different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-chars", Issuer: "disi-test", AccessTokenExpiration: time.Hour})
		_, err := other.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("different issuer", func(t *testing.T) {
		other := newTestJWTService()
		other.issuer = "someone-else"
		_, err := other.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := newTestJWTService()
		later.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
		_, err := later.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		earlier := newTestJWTService()
		earlier.now = func() time.Time { return time.Now().Add(-time.Hour) }
		_, err := earlier.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.NewString(), TokenType: TokenTypeAccess})
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRefresh(t *testing.T) {
	svc := newTestJWTService()
	subject := newTestSubject()

	pair, err := svc.Issue(subject)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)

		subject.IsAdmin = i == 2
		pair, err = svc.Refresh(claims, subject)
		require.NoError(t, err, "refresh %d", i)

		next, err := svc.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, i, next.RefreshCount)

		access, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, i == 2, access.IsAdmin)
	}

	claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Refresh(claims, subject)
	assert.ErrorIs(t, err, ErrMaxRefreshExceeded)
}

func TestRefresh_Rejects(t *testing.T) {
	svc := newTestJWTService()
	subject := newTestSubject()
	pair, err := svc.Issue(subject)
	require.NoError(t, err)

	access, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	_, err = svc.Refresh(access, subject)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Refresh(refresh, newTestSubject())
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
