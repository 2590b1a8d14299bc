package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"ASC", "ASC"},
		{"  asc  ", "ASC"},
		{"desc", "DESC"},
		{"sideways", "DESC"},
		{"ASC; DROP TABLE orders;--", "DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty uses default", "", "created_at"},
		{"whitelisted", "total_amount", "total_amount"},
		{"trimmed", "  number ", "number"},
		{"unknown", "password_hash", "created_at"},
		{"case sensitive", "NUMBER", "created_at"},
		{"injection", "number; DROP TABLE orders;--", "created_at"},
		{"subquery", "id, (SELECT password_hash FROM users)", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, OrderSortFields, "created_at"))
		})
	}
}

func TestSortFieldWhitelists(t *testing.T) {
	for name, list := range map[string]map[string]bool{
		"products": ProductSortFields,
		"users":    UserSortFields,
		"orders":   OrderSortFields,
	} {
		assert.True(t, list["created_at"], name)
		assert.False(t, list["password_hash"], name)
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%cmd-2026%", likePattern("  CMD-2026 "))
	assert.Equal(t, "%%", likePattern(""))
}
