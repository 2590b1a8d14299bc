package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceHandler_Download_Guards(t *testing.T) {
	h := NewInvoiceHandler(nil)

	t.Run("anonymous", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/invoice/x")
		c.Params = gin.Params{{Key: "orderId", Value: uuid.NewString()}}

		h.Download(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed order id", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/invoice/x")
		setClaims(c, uuid.New(), false)
		c.Params = gin.Params{{Key: "orderId", Value: "x"}}

		h.Download(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_ID", decodeResponse(t, w).Error.Code)
	})
}
