package handler

import (
	"github.com/disi/commandes/internal/application/ordering"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler serves the caller's orders and the administrators' review
// queue
type OrderHandler struct {
	BaseHandler
	orderService *ordering.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *ordering.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// TransitionRequest carries the optional comment of approve and deliver
type TransitionRequest struct {
	Comment string `json:"comment" binding:"max=500"`
}

// RejectRequest carries the mandatory rejection reason. Emptiness is
// checked by the order itself.
type RejectRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// MyOrders lists the caller's orders. GET /orders
func (h *OrderHandler) MyOrders(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	filter.UserID = nil
	orders, total, err := h.orderService.ListForUser(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// MyOrder returns one of the caller's orders. GET /orders/:id
func (h *OrderHandler) MyOrder(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetForUser(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List returns every order with its requester. GET /admin/orders
func (h *OrderHandler) List(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// Get returns any order. GET /admin/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// History returns the audit trail of an order. GET /admin/orders/:id/history
func (h *OrderHandler) History(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.orderService.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Approve moves a pending order to approved. POST /admin/orders/:id/approve
func (h *OrderHandler) Approve(c *gin.Context) {
	var req TransitionRequest
	h.transition(c, &req, func(actorID, orderID uuid.UUID) (*ordering.OrderResponse, error) {
		return h.orderService.Approve(c.Request.Context(), actorID, orderID, req.Comment)
	})
}

// Reject moves a pending order to rejected. POST /admin/orders/:id/reject
func (h *OrderHandler) Reject(c *gin.Context) {
	var req RejectRequest
	h.transition(c, &req, func(actorID, orderID uuid.UUID) (*ordering.OrderResponse, error) {
		return h.orderService.Reject(c.Request.Context(), actorID, orderID, req.Reason)
	})
}

// Deliver moves an approved order to delivered. POST /admin/orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	var req TransitionRequest
	h.transition(c, &req, func(actorID, orderID uuid.UUID) (*ordering.OrderResponse, error) {
		return h.orderService.Deliver(c.Request.Context(), actorID, orderID, req.Comment)
	})
}

func (h *OrderHandler) transition(c *gin.Context, req any, fn func(actorID, orderID uuid.UUID) (*ordering.OrderResponse, error)) {
	actorID, ok := h.currentUser(c)
	if !ok {
		return
	}
	orderID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	order, err := fn(actorID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

func (h *OrderHandler) bindFilter(c *gin.Context) (ordering.OrderListFilter, bool) {
	var filter ordering.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return filter, false
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	return filter, true
}
