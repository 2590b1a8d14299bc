package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserOrderCounter reports how many orders a user placed
type UserOrderCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// UserService handles account administration
type UserService struct {
	userRepo       identity.UserRepository
	orders         UserOrderCounter
	revocations    auth.Revocations
	jwtService     *auth.JWTService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	orders UserOrderCounter,
	revocations auth.Revocations,
	jwtService *auth.JWTService,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo:       userRepo,
		orders:         orders,
		revocations:    revocations,
		jwtService:     jwtService,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// List returns a page of users
func (s *UserService) List(ctx context.Context, filter UserListFilter) ([]UserInfo, int64, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Search = strings.TrimSpace(filter.Search)

	users, total, err := s.userRepo.FindAll(ctx, identity.UserFilter{
		Filter:         f,
		Approved:       filter.Approved,
		IsAdmin:        filter.IsAdmin,
		Administration: filter.Administration,
	})
	if err != nil {
		return nil, 0, err
	}

	infos := make([]UserInfo, len(users))
	for i := range users {
		infos[i] = ToUserInfo(&users[i])
	}
	return infos, total, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// Create adds an account on behalf of an administrator
func (s *UserService) Create(ctx context.Context, actorID uuid.UUID, input CreateUserInput) (*UserInfo, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "An account already uses this email")
	}

	var user *identity.User
	if input.IsAdmin {
		user, err = identity.NewAdmin(input.Name, input.Email, input.Password)
		if err == nil && strings.TrimSpace(input.Administration) != "" {
			err = user.SetAdministration(input.Administration)
		}
	} else {
		user, err = identity.NewUser(input.Name, input.Email, input.Password, input.Administration)
		if err == nil && input.Approved {
			err = user.Approve(actorID)
		}
	}
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

	s.logger.Info("User created by administrator",
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actorID.String()),
		zap.Bool("is_admin", user.IsAdmin))

	info := ToUserInfo(user)
	return &info, nil
}

// EnsureAdmin creates an administrator account unless email is already
// taken. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil || exists {
		return false, err
	}
	user, err := identity.NewAdmin(name, email, password)
	if err != nil {
		return false, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	publishUserEvents(ctx, s.eventPublisher, s.logger, user)
	s.logger.Info("Bootstrap administrator created", zap.String("email", user.Email))
	return true, nil
}

// Update changes account fields. A password reset ends the user's sessions.
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil && !strings.EqualFold(strings.TrimSpace(*input.Email), user.Email) {
		exists, err := s.userRepo.ExistsByEmail(ctx, *input.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("EMAIL_TAKEN", "An account already uses this email")
		}
		if err := user.SetEmail(*input.Email); err != nil {
			return nil, err
		}
	}
	if input.Name != nil || input.Phone != nil {
		name, phone := user.Name, user.Phone
		if input.Name != nil {
			name = *input.Name
		}
		if input.Phone != nil {
			phone = *input.Phone
		}
		if err := user.UpdateProfile(name, phone); err != nil {
			return nil, err
		}
	}
	if input.Administration != nil {
		if err := user.SetAdministration(*input.Administration); err != nil {
			return nil, err
		}
	}
	passwordReset := input.Password != nil && *input.Password != ""
	if passwordReset {
		if err := user.SetPassword(*input.Password); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	if passwordReset {
		s.revokeSessions(ctx, user.ID, "password reset")
	}

	info := ToUserInfo(user)
	return &info, nil
}

// Delete removes an account that never placed an order
func (s *UserService) Delete(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return shared.NewDomainError("CANNOT_DELETE_SELF", "You cannot delete your own account")
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}

	if s.orders != nil {
		count, err := s.orders.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.NewDomainError("USER_HAS_ORDERS",
				fmt.Sprintf("User placed %d order(s); revoke the approval instead", count))
		}
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	s.revokeSessions(ctx, userID, "account deleted")

	s.logger.Info("User deleted",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actorID.String()))
	return nil
}

// Approve lets a registered user order
func (s *UserService) Approve(ctx context.Context, actorID, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.Approve(actorID); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	publishUserEvents(ctx, s.eventPublisher, s.logger, user)

	s.logger.Info("User approved",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actorID.String()))

	info := ToUserInfo(user)
	return &info, nil
}

// RevokeApproval puts a user back on the waiting list and ends their sessions
func (s *UserService) RevokeApproval(ctx context.Context, actorID, userID uuid.UUID) (*UserInfo, error) {
	if actorID == userID {
		return nil, shared.NewDomainError("CANNOT_REVOKE_SELF", "You cannot revoke your own approval")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.RevokeApproval(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	publishUserEvents(ctx, s.eventPublisher, s.logger, user)
	s.revokeSessions(ctx, user.ID, "approval revoked")

	info := ToUserInfo(user)
	return &info, nil
}

// GrantAdmin promotes a user
func (s *UserService) GrantAdmin(ctx context.Context, actorID, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.GrantAdmin(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("Administrator role granted",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actorID.String()))

	info := ToUserInfo(user)
	return &info, nil
}

// RevokeAdmin demotes an administrator other than the caller
func (s *UserService) RevokeAdmin(ctx context.Context, actorID, userID uuid.UUID) (*UserInfo, error) {
	if actorID == userID {
		return nil, shared.NewDomainError("CANNOT_DEMOTE_SELF", "You cannot remove your own administrator role")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.RevokeAdmin(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.revokeSessions(ctx, user.ID, "administrator role revoked")

	info := ToUserInfo(user)
	return &info, nil
}

// Administrations lists the distinct Directions in use
func (s *UserService) Administrations(ctx context.Context) ([]string, error) {
	return s.userRepo.ListAdministrations(ctx)
}

func (s *UserService) revokeSessions(ctx context.Context, userID uuid.UUID, reason string) {
	if s.revocations == nil {
		return
	}
	ttl := s.jwtService.RefreshTokenExpiration()
	if err := s.revocations.RevokeUser(ctx, userID.String(), ttl); err != nil {
		s.logger.Warn("Failed to revoke user sessions",
			zap.String("user_id", userID.String()),
			zap.String("reason", reason),
			zap.Error(err))
	}
}
