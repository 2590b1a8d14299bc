package identity

import (
	"context"
	"errors"
	"time"

	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// AuthService handles registration, sessions and self-service profile
type AuthService struct {
	userRepo       identity.UserRepository
	jwtService     *auth.JWTService
	revocations    auth.Revocations
	eventPublisher shared.EventPublisher
	config         AuthServiceConfig
	logger         *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	revocations auth.Revocations,
	eventPublisher shared.EventPublisher,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:       userRepo,
		jwtService:     jwtService,
		revocations:    revocations,
		eventPublisher: eventPublisher,
		config:         config,
		logger:         logger,
	}
}

// Register creates an account waiting for administrator approval
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserInfo, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "An account already uses this email")
	}

	user, err := identity.NewUser(input.Name, input.Email, input.Password, input.Administration)
	if err != nil {
		return nil, err
	}
	if input.Phone != "" {
		if err := user.UpdateProfile(user.Name, input.Phone); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("EMAIL_TAKEN", "An account already uses this email")
		}
		return nil, err
	}
	publishUserEvents(ctx, s.eventPublisher, s.logger, user)

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("administration", user.Administration))

	info := ToUserInfo(user)
	return &info, nil
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		s.logger.Warn("Login attempt for unknown email", zap.String("email", input.Email))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if user.IsLocked() {
		s.logger.Warn("Login attempt for locked account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
	}

	if !user.VerifyPassword(input.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.RecordLogin(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}
		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", user.FailedAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if !user.CanOrder() {
		s.logger.Info("Login refused for account awaiting approval", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_NOT_APPROVED", "Your account is waiting for administrator approval")
	}

	tokens, err := s.jwtService.Issue(subjectOf(user))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	user.RecordLoginSuccess(input.IP)
	if err := s.userRepo.RecordLogin(ctx, user); err != nil {
		// the session is valid even if the login timestamp is lost
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))

	return &LoginResult{Tokens: tokens, User: ToUserInfo(user)}, nil
}

// Refresh rotates a refresh token. The account is reloaded so approval and
// role changes made since login are reflected in the new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, mapTokenError(err)
	}
	if err := auth.CheckRevoked(ctx, s.revocations, claims); err != nil {
		return nil, mapTokenError(err)
	}

	userID, err := claims.UserUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewDomainError("TOKEN_INVALID", "Account no longer exists")
		}
		return nil, err
	}
	if !user.CanOrder() {
		return nil, shared.NewDomainError("ACCOUNT_NOT_APPROVED", "Your account is waiting for administrator approval")
	}

	tokens, err := s.jwtService.Refresh(claims, subjectOf(user))
	if err != nil {
		return nil, mapTokenError(err)
	}

	if s.revocations != nil && claims.ID != "" {
		if err := s.revocations.RevokeToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
			s.logger.Warn("Failed to revoke rotated refresh token", zap.Error(err))
		}
	}

	return &LoginResult{Tokens: tokens, User: ToUserInfo(user)}, nil
}

// Logout revokes the presented access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if s.revocations == nil {
		return nil
	}
	if c := input.AccessClaims; c != nil && c.ID != "" {
		if err := s.revocations.RevokeToken(ctx, c.ID, c.RemainingTTL()); err != nil {
			return err
		}
		s.logger.Info("User logged out", zap.String("user_id", c.UserID))
	}
	if input.RefreshToken != "" {
		claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
		if err != nil {
			// already unusable
			return nil
		}
		if claims.ID != "" {
			return s.revocations.RevokeToken(ctx, claims.ID, claims.RemainingTTL())
		}
	}
	return nil
}

// Me returns the live profile of the authenticated user
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// UpdateProfile changes the user's own name and phone
func (s *AuthService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(input.Name, input.Phone); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// ChangePassword changes the password and ends every other session. A
// fresh token pair is returned for the current one.
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) (*auth.TokenPair, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to update user after password change", zap.Error(err))
		return nil, err
	}

	if s.revocations != nil {
		if err := s.revocations.RevokeUser(ctx, user.ID.String(), s.jwtService.RefreshTokenExpiration()); err != nil {
			s.logger.Warn("Failed to revoke sessions after password change", zap.Error(err))
		}
	}

	s.logger.Info("User password changed", zap.String("user_id", user.ID.String()))

	return s.jwtService.Issue(subjectOf(user))
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrTokenRevoked):
		return shared.NewDomainError("TOKEN_REVOKED", "Session has been revoked. Please log in again")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingUserID):
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	default:
		return err
	}
}

// publishUserEvents publishes and clears the user's pending events
func publishUserEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, user *identity.User) {
	events := user.GetDomainEvents()
	user.ClearDomainEvents()
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish user events", zap.Error(err))
	}
}
