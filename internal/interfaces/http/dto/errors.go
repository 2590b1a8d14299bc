package dto

import (
	"net/http"
	"strings"
)

// Transport error codes, produced by the HTTP layer itself
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeAdminOnly    = "ADMIN_REQUIRED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
)

// Authentication codes
const (
	ErrCodeTokenMissing      = "TOKEN_MISSING"
	ErrCodeTokenExpired      = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid      = "TOKEN_INVALID"
	ErrCodeTokenRevoked      = "TOKEN_REVOKED"
	ErrCodeTokenMaxRefresh   = "TOKEN_MAX_REFRESH"
	ErrCodeNotApproved       = "ACCOUNT_NOT_APPROVED"
	ErrCodeInvalidCredential = "INVALID_CREDENTIALS"
	ErrCodeAccountLocked     = "ACCOUNT_LOCKED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Codes absent
// from the map are resolved by prefix in GetHTTPStatus.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	"SAVE_FAILED":     http.StatusInternalServerError,
	"TEMPLATE_FAILED": http.StatusInternalServerError,
	"RENDER_FAILED":   http.StatusBadGateway,
	"RENDER_TIMEOUT":  http.StatusGatewayTimeout,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	"INVALID_INPUT":        http.StatusBadRequest,
	"IMAGE_TOO_LARGE":      http.StatusRequestEntityTooLarge,
	ErrCodeTooLarge:        http.StatusRequestEntityTooLarge,
	"STORAGE_DISABLED":     http.StatusServiceUnavailable,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenMissing:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeTokenRevoked:    http.StatusUnauthorized,
	ErrCodeTokenMaxRefresh: http.StatusUnauthorized,

	ErrCodeInvalidCredential: http.StatusUnauthorized,
	ErrCodeAccountLocked:     http.StatusLocked,
	ErrCodeNotApproved:       http.StatusForbidden,
	ErrCodeForbidden:         http.StatusForbidden,
	ErrCodeAdminOnly:         http.StatusForbidden,

	ErrCodeNotFound: http.StatusNotFound,
	"NOT_IN_CART":   http.StatusNotFound,

	"ALREADY_EXISTS":          http.StatusConflict,
	"EMAIL_TAKEN":             http.StatusConflict,
	"CONCURRENCY_CONFLICT":    http.StatusConflict,
	"CONCURRENT_MODIFICATION": http.StatusConflict,
	"PRODUCT_IN_USE":          http.StatusConflict,
	"CATEGORY_IN_USE":         http.StatusConflict,
	"USER_HAS_ORDERS":         http.StatusConflict,
	"NOT_APPROVED":            http.StatusConflict,
	"NOT_ADMIN":               http.StatusConflict,

	"INVALID_STATE":             http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK":        http.StatusUnprocessableEntity,
	"PRODUCT_UNAVAILABLE":       http.StatusUnprocessableEntity,
	"EMPTY_CART":                http.StatusUnprocessableEntity,
	"NO_ITEMS":                  http.StatusUnprocessableEntity,
	"REJECTION_REASON_REQUIRED": http.StatusUnprocessableEntity,
}

// statusPrefixes resolve families of domain codes
var statusPrefixes = []struct {
	prefix string
	status int
}{
	{"INVALID_", http.StatusBadRequest},
	{"CANNOT_", http.StatusUnprocessableEntity},
	{"ALREADY_", http.StatusConflict},
	{"TOKEN_", http.StatusUnauthorized},
}

// errorCodeAliases folds equivalent codes raised by different layers into
// the one clients see
var errorCodeAliases = map[string]string{
	"CONCURRENCY_CONFLICT":  "CONCURRENT_MODIFICATION",
	"OPTIMISTIC_LOCK_ERROR": "CONCURRENT_MODIFICATION",
	"NO_ITEMS":              "EMPTY_CART",
}

// NormalizeErrorCode returns the public form of a domain error code
func NormalizeErrorCode(code string) string {
	if alias, ok := errorCodeAliases[code]; ok {
		return alias
	}
	return code
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	for _, p := range statusPrefixes {
		if strings.HasPrefix(code, p.prefix) {
			return p.status
		}
	}
	return http.StatusInternalServerError
}
