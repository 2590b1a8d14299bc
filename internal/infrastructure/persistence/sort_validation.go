package persistence

import (
	"strings"
)

// ValidateSortOrder normalises orderDir to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when whitelisted, else defaultField.
// Sort fields end up in ORDER BY verbatim, so only whitelisted columns pass.
func ValidateSortField(sortField string, allowed map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowed[trimmed] {
		return trimmed
	}
	return defaultField
}

// ProductSortFields lists sortable product columns
var ProductSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"reference":  true,
	"price":      true,
	"stock":      true,
}

// UserSortFields lists sortable user columns
var UserSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"name":           true,
	"email":          true,
	"administration": true,
	"last_login_at":  true,
}

// OrderSortFields lists sortable order columns
var OrderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"number":       true,
	"status":       true,
	"total_amount": true,
	"approved_at":  true,
	"delivered_at": true,
}

// likePattern builds a case-insensitive LIKE argument; callers compare
// against LOWER(column) since ILIKE only exists on postgres. Wildcards in
// search are left as typed: escape syntax differs between the drivers.
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
