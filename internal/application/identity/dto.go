package identity

import (
	"time"

	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/infrastructure/auth"
	"github.com/google/uuid"
)

// RegisterInput contains the input for self-registration
type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	Administration string
	Phone          string
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
	IP       string // Client IP for login tracking
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Tokens *auth.TokenPair
	User   UserInfo
}

// LogoutInput contains the tokens to invalidate
type LogoutInput struct {
	AccessClaims *auth.Claims
	RefreshToken string // optional
}

// UpdateProfileInput contains the self-service profile fields
type UpdateProfileInput struct {
	UserID uuid.UUID
	Name   string
	Phone  string
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// CreateUserInput is used by administrators to create accounts directly
type CreateUserInput struct {
	Name           string
	Email          string
	Password       string
	Administration string
	Phone          string
	IsAdmin        bool
	Approved       bool
}

// UpdateUserInput contains the fields an administrator may change. Nil
// fields are left untouched.
type UpdateUserInput struct {
	Name           *string
	Email          *string
	Administration *string
	Phone          *string
	Password       *string
}

// UserListFilter represents filter options for the user list
type UserListFilter struct {
	Search         string
	Approved       *bool
	IsAdmin        *bool
	Administration string
	Page           int
	PageSize       int
	OrderBy        string
	OrderDir       string
}

// UserInfo is the public representation of an account
type UserInfo struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Administration string     `json:"administration"`
	Phone          string     `json:"phone"`
	IsAdmin        bool       `json:"is_admin"`
	Approved       bool       `json:"approved"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ToUserInfo converts a domain User to UserInfo
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Administration: u.Administration,
		Phone:          u.Phone,
		IsAdmin:        u.IsAdmin,
		Approved:       u.Approved,
		ApprovedAt:     u.ApprovedAt,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func subjectOf(u *identity.User) auth.Subject {
	return auth.Subject{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.Name,
		IsAdmin:  u.IsAdmin,
		Approved: u.CanOrder(),
	}
}
