package handler

import (
	"github.com/disi/commandes/internal/application/identity"
	"github.com/disi/commandes/internal/infrastructure/auth"
)

// RegisterRequest is the self-registration form
type RegisterRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=100"`
	Email          string `json:"email" binding:"required,email,max=150"`
	Password       string `json:"password" binding:"required,min=8,max=128"`
	Administration string `json:"administration" binding:"required,administration"`
	Phone          string `json:"phone" binding:"max=30"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshTokenRequest may be empty when the refresh cookie is sent
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest changes the caller's own profile
type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=100"`
	Phone string `json:"phone" binding:"max=30"`
}

// ChangePasswordRequest represents the request body for password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// SessionResponse is returned on login and refresh
type SessionResponse struct {
	Token *auth.TokenPair   `json:"token"`
	User  identity.UserInfo `json:"user"`
}
