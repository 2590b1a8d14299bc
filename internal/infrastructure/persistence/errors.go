package persistence

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/disi/commandes/internal/domain/shared"
)

// translateError maps driver errors onto domain errors at the repository
// boundary
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// isUniqueViolation recognises unique constraint failures from drivers that
// do not implement gorm's error translation
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql
		strings.Contains(msg, "duplicate key value") // postgres
}
