package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/persistence/models"
)

// GormUserRepository implements identity.UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]identity.User, error) {
	if len(ids) == 0 {
		return []identity.User{}, nil
	}
	var rows []models.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toUsers(rows), nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var m models.UserModel
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&m).Error
	if err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

func (r *GormUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]identity.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.UserModel{})
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(administration) LIKE ?", p, p, p)
	}
	if filter.Approved != nil {
		q = q.Where("approved = ?", *filter.Approved)
	}
	if filter.IsAdmin != nil {
		q = q.Where("is_admin = ?", *filter.IsAdmin)
	}
	if a := identity.NormalizeAdministration(filter.Administration); a != "" {
		if a == identity.UnspecifiedAdministration {
			q = q.Where("administration = ?", "")
		} else {
			q = q.Where("LOWER(administration) = ?", strings.ToLower(a))
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order(ValidateSortField(filter.OrderBy, UserSortFields, "created_at") + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		q = q.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.UserModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toUsers(rows), total, nil
}

func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&n).Error
	return n > 0, err
}

// ListAdministrations returns the Directions in use, without duplicates
// differing only by case
func (r *GormUserRepository) ListAdministrations(ctx context.Context) ([]string, error) {
	var labels []string
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("administration <> ?", "").
		Distinct("administration").
		Order("administration ASC").
		Pluck("administration", &labels).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = identity.NormalizeAdministration(l)
		key := strings.ToLower(l)
		if _, dup := seen[key]; dup || l == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}

// Save inserts a new user or updates a loaded one while its stored version
// is unchanged
func (r *GormUserRepository) Save(ctx context.Context, u *identity.User) error {
	m := models.UserModelFromDomain(u)
	return saveVersioned(ctx, r.db, &models.UserModel{}, m, &u.BaseAggregateRoot, map[string]any{
		"name":            m.Name,
		"email":           m.Email,
		"password_hash":   m.PasswordHash,
		"administration":  m.Administration,
		"phone":           m.Phone,
		"is_admin":        m.IsAdmin,
		"approved":        m.Approved,
		"approved_at":     m.ApprovedAt,
		"approved_by":     m.ApprovedBy,
		"last_login_at":   m.LastLoginAt,
		"last_login_ip":   m.LastLoginIP,
		"failed_attempts": m.FailedAttempts,
		"locked_until":    m.LockedUntil,
	})
}

// RecordLogin writes only the login bookkeeping columns so a sign-in never
// overwrites a concurrent approval or role change
func (r *GormUserRepository) RecordLogin(ctx context.Context, u *identity.User) error {
	m := models.UserModelFromDomain(u)
	res := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"last_login_at":   m.LastLoginAt,
			"last_login_ip":   m.LastLoginIP,
			"failed_attempts": m.FailedAttempts,
			"locked_until":    m.LockedUntil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.UserModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toUsers(rows []models.UserModel) []identity.User {
	out := make([]identity.User, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
