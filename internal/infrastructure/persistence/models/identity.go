package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/disi/commandes/internal/domain/identity"
)

// UserModel is the users row
type UserModel struct {
	AggregateModel
	Name           string     `gorm:"type:varchar(100);not null"`
	Email          string     `gorm:"type:varchar(255);not null;uniqueIndex:uq_users_email"`
	PasswordHash   string     `gorm:"type:varchar(255);not null"`
	Administration string     `gorm:"type:varchar(150);not null;default:'';index"`
	Phone          string     `gorm:"type:varchar(50)"`
	IsAdmin        bool       `gorm:"not null;default:false"`
	Approved       bool       `gorm:"not null;default:false;index"`
	ApprovedAt     *time.Time
	ApprovedBy     *uuid.UUID `gorm:"type:char(36)"`
	LastLoginAt    *time.Time
	LastLoginIP    string     `gorm:"type:varchar(45)"`
	FailedAttempts int        `gorm:"not null;default:0"`
	LockedUntil    *time.Time
}

func (UserModel) TableName() string { return "users" }

// UserModelFromDomain maps a user for persistence
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Name:           u.Name,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Administration: u.Administration,
		Phone:          u.Phone,
		IsAdmin:        u.IsAdmin,
		Approved:       u.Approved,
		ApprovedAt:     utc(u.ApprovedAt),
		ApprovedBy:     u.ApprovedBy,
		LastLoginAt:    utc(u.LastLoginAt),
		LastLoginIP:    u.LastLoginIP,
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    utc(u.LockedUntil),
	}
	m.fromAggregate(u.BaseAggregateRoot)
	return m
}

func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.toAggregate(),
		Name:              m.Name,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Administration:    m.Administration,
		Phone:             m.Phone,
		IsAdmin:           m.IsAdmin,
		Approved:          m.Approved,
		ApprovedAt:        m.ApprovedAt,
		ApprovedBy:        m.ApprovedBy,
		LastLoginAt:       m.LastLoginAt,
		LastLoginIP:       m.LastLoginIP,
		FailedAttempts:    m.FailedAttempts,
		LockedUntil:       m.LockedUntil,
	}
}
