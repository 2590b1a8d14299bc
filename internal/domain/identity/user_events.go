package identity

import (
	"github.com/disi/commandes/internal/domain/shared"
)

const AggregateTypeUser = "User"

const (
	EventTypeUserRegistered      = "UserRegistered"
	EventTypeUserApprovalChanged = "UserApprovalChanged"
)

// UserRegisteredEvent is published when an account is created
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	Email          string `json:"email"`
	Administration string `json:"administration"`
}

func NewUserRegisteredEvent(u *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRegistered, AggregateTypeUser, u.ID),
		Email:           u.Email,
		Administration:  u.Administration,
	}
}

// UserApprovalChangedEvent is published when approval is granted or revoked
type UserApprovalChangedEvent struct {
	shared.BaseDomainEvent
	Approved bool `json:"approved"`
}

func NewUserApprovalChangedEvent(u *User) *UserApprovalChangedEvent {
	return &UserApprovalChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserApprovalChanged, AggregateTypeUser, u.ID),
		Approved:        u.Approved,
	}
}
