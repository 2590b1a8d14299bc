package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/disi/commandes/internal/domain/shared"
)

// ErrConcurrentModification is returned when a row changed since it was loaded
var ErrConcurrentModification = shared.NewDomainError("CONCURRENT_MODIFICATION", "The record has been modified by another user")

// saveVersioned inserts an aggregate that was never stored. Otherwise it
// writes columns to the row only while its version still equals the one
// read at load time, and bumps that version.
func saveVersioned(ctx context.Context, db *gorm.DB, table any, row any, root *shared.BaseAggregateRoot, columns map[string]any) error {
	if root.StoredVersion() == 0 {
		if err := db.WithContext(ctx).Create(row).Error; err != nil {
			return translateError(err)
		}
		root.MarkStored(root.Version)
		return nil
	}

	expected := root.StoredVersion()
	now := time.Now().UTC()
	columns["version"] = expected + 1
	columns["updated_at"] = now

	res := db.WithContext(ctx).Model(table).
		Where("id = ? AND version = ?", root.ID, expected).
		Updates(columns)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := db.WithContext(ctx).Model(table).Where("id = ?", root.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return shared.ErrNotFound
		}
		return ErrConcurrentModification
	}

	root.UpdatedAt = now
	root.MarkStored(expected + 1)
	return nil
}
