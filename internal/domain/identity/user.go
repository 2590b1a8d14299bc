package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Password cost for bcrypt
var bcryptCost = 12

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	letterRegex    = regexp.MustCompile(`[a-zA-Z]`)
	digitRegex     = regexp.MustCompile(`[0-9]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// UnspecifiedAdministration labels users whose Direction was left empty
const UnspecifiedAdministration = "Non renseignée"

// User is someone allowed to browse the catalog and place orders.
// Administration is the Direction the user belongs to; it drives the
// per-Direction dashboard breakdowns.
type User struct {
	shared.BaseAggregateRoot
	Name           string
	Email          string
	PasswordHash   string
	Administration string
	Phone          string
	IsAdmin        bool
	Approved       bool
	ApprovedAt     *time.Time
	ApprovedBy     *uuid.UUID
	LastLoginAt    *time.Time
	LastLoginIP    string
	FailedAttempts int
	LockedUntil    *time.Time
}

// NewUser registers a user awaiting approval
func NewUser(name, email, password, administration string) (*User, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	administration = NormalizeAdministration(administration)
	if administration == "" {
		return nil, shared.NewDomainError("INVALID_ADMINISTRATION", "Administration is required")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Email:             email,
		PasswordHash:      hash,
		Administration:    administration,
	}

	user.AddDomainEvent(NewUserRegisteredEvent(user))

	return user, nil
}

// NewAdmin creates an administrator. Administrators are always approved and
// may have no Direction.
func NewAdmin(name, email, password string) (*User, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	now := time.Now()
	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Email:             email,
		PasswordHash:      hash,
		IsAdmin:           true,
		Approved:          true,
		ApprovedAt:        &now,
	}
	user.AddDomainEvent(NewUserRegisteredEvent(user))

	return user, nil
}

// UpdateProfile changes the self-service fields
func (u *User) UpdateProfile(name, phone string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	u.Name = strings.TrimSpace(name)
	u.Phone = strings.TrimSpace(phone)
	u.Touch()
	u.IncrementVersion()
	return nil
}

// SetEmail changes the login email
func (u *User) SetEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return err
	}
	u.Email = email
	u.Touch()
	u.IncrementVersion()
	return nil
}

// SetAdministration moves the user to another Direction
func (u *User) SetAdministration(administration string) error {
	administration = NormalizeAdministration(administration)
	if administration == "" && !u.IsAdmin {
		return shared.NewDomainError("INVALID_ADMINISTRATION", "Administration is required")
	}
	u.Administration = administration
	u.Touch()
	u.IncrementVersion()
	return nil
}

// ChangePassword changes the password after checking the current one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword sets a new password (admin reset, no old password check)
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.Touch()
	u.IncrementVersion()
	return nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Approve grants access to the ordering surfaces
func (u *User) Approve(by uuid.UUID) error {
	if u.Approved {
		return shared.NewDomainError("ALREADY_APPROVED", "User is already approved")
	}
	now := time.Now()
	u.Approved = true
	u.ApprovedAt = &now
	u.ApprovedBy = &by
	u.Touch()
	u.IncrementVersion()

	u.AddDomainEvent(NewUserApprovalChangedEvent(u))
	return nil
}

// RevokeApproval puts the user back into the waiting list
func (u *User) RevokeApproval() error {
	if u.IsAdmin {
		return shared.NewDomainError("CANNOT_REVOKE_ADMIN", "Administrators cannot lose approval")
	}
	if !u.Approved {
		return shared.NewDomainError("NOT_APPROVED", "User is not approved")
	}
	u.Approved = false
	u.ApprovedAt = nil
	u.ApprovedBy = nil
	u.Touch()
	u.IncrementVersion()

	u.AddDomainEvent(NewUserApprovalChangedEvent(u))
	return nil
}

// GrantAdmin promotes the user. Promotion implies approval.
func (u *User) GrantAdmin() error {
	if u.IsAdmin {
		return shared.NewDomainError("ALREADY_ADMIN", "User is already an administrator")
	}
	u.IsAdmin = true
	if !u.Approved {
		now := time.Now()
		u.Approved = true
		u.ApprovedAt = &now
	}
	u.Touch()
	u.IncrementVersion()
	return nil
}

// RevokeAdmin demotes the user to a regular, still approved, account
func (u *User) RevokeAdmin() error {
	if !u.IsAdmin {
		return shared.NewDomainError("NOT_ADMIN", "User is not an administrator")
	}
	u.IsAdmin = false
	u.Touch()
	u.IncrementVersion()
	return nil
}

// RecordLoginSuccess records a successful login
func (u *User) RecordLoginSuccess(ip string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.Touch()
	u.IncrementVersion()
}

// RecordLoginFailure records a failed login attempt.
// Returns true if the account got locked.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	u.FailedAttempts++
	u.Touch()
	u.IncrementVersion()

	if maxAttempts > 0 && u.FailedAttempts >= maxAttempts {
		until := time.Now().Add(lockDuration)
		u.LockedUntil = &until
		return true
	}
	return false
}

// IsLocked returns true while a lock is in effect
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// CanOrder returns true if the user may use the catalog, cart and orders
func (u *User) CanOrder() bool {
	return u.IsAdmin || u.Approved
}

// AdministrationLabel returns the Direction used for grouping
func (u *User) AdministrationLabel() string {
	if u.Administration == "" {
		return UnspecifiedAdministration
	}
	return u.Administration
}

// NormalizeAdministration trims and collapses inner whitespace
func NormalizeAdministration(label string) string {
	return whitespaceRuns.ReplaceAllString(strings.TrimSpace(label), " ")
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 200 characters")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	if !letterRegex.MatchString(password) || !digitRegex.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
