package handler

import (
	"fmt"
	"net/http"
	"strconv"

	invoiceapp "github.com/disi/commandes/internal/application/invoice"
	"github.com/disi/commandes/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler streams order invoices
type InvoiceHandler struct {
	BaseHandler
	invoiceService *invoiceapp.Service
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *invoiceapp.Service) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Download renders the PDF invoice of an approved or delivered order.
// GET /invoice/:orderId
func (h *InvoiceHandler) Download(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := claims.UserUUID()
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	orderID, ok := h.parseUUIDParam(c, "orderId")
	if !ok {
		return
	}

	doc, err := h.invoiceService.Generate(c.Request.Context(), invoiceapp.Requester{
		UserID:  userID,
		IsAdmin: claims.IsAdmin,
	}, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	disposition := "inline"
	if c.Query("download") != "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.Filename))
	c.Header("Cache-Control", "private, no-store")
	c.Header("X-Page-Count", strconv.Itoa(doc.PageCount))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}
