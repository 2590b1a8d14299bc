package identity

import (
	"context"

	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
)

// UserFilter narrows user listings
type UserFilter struct {
	shared.Filter
	Approved       *bool
	IsAdmin        *bool
	Administration string
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context, filter UserFilter) ([]User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ListAdministrations returns the distinct, non-empty Directions in use
	ListAdministrations(ctx context.Context) ([]string, error)

	// Save inserts a new user or updates a loaded one. A user changed since
	// it was loaded is refused with CONCURRENT_MODIFICATION.
	Save(ctx context.Context, user *User) error

	// RecordLogin persists only the sign-in bookkeeping (last login, failed
	// attempts, lock) of the user
	RecordLogin(ctx context.Context, user *User) error

	Delete(ctx context.Context, id uuid.UUID) error
}
