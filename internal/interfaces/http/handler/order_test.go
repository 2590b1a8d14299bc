package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrderHandler_BindFilter(t *testing.T) {
	h := NewOrderHandler(nil)

	t.Run("defaults", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/admin/orders?status=pending&from=2026-01-01&to=2026-01-31")
		filter, ok := h.bindFilter(c)

		assert.True(t, ok)
		assert.Equal(t, 1, filter.Page)
		assert.Equal(t, 20, filter.PageSize)
		assert.Equal(t, "pending", filter.Status)
		if assert.NotNil(t, filter.From) && assert.NotNil(t, filter.To) {
			assert.Equal(t, 31, filter.To.Day())
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/admin/orders?status=shipped")
		_, ok := h.bindFilter(c)

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, w).Error.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/admin/orders?from=01/02/2026")
		_, ok := h.bindFilter(c)

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_TransitionGuards(t *testing.T) {
	h := NewOrderHandler(nil)

	t.Run("anonymous", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/")
		c.Params = gin.Params{{Key: "id", Value: uuid.NewString()}}

		h.Approve(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("reason too long", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/")
		c.Request = httptest.NewRequest(http.MethodPost, "/admin/orders/x/reject",
			strings.NewReader(`{"reason":"`+strings.Repeat("x", 501)+`"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		setClaims(c, uuid.New(), true)
		c.Params = gin.Params{{Key: "id", Value: uuid.NewString()}}

		h.Reject(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, w).Error.Code)
	})
}
