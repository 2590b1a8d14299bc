package ordering

import (
	"time"

	"github.com/google/uuid"
)

// HistoryAction names what happened to an order
type HistoryAction string

const (
	HistoryActionCreated   HistoryAction = "created"
	HistoryActionApproved  HistoryAction = "approved"
	HistoryActionRejected  HistoryAction = "rejected"
	HistoryActionDelivered HistoryAction = "delivered"
)

// OrderHistory is one append-only entry of an order's audit trail
type OrderHistory struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	UserID     uuid.UUID
	Action     HistoryAction
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Comment    string
	CreatedAt  time.Time
}

// NewOrderHistory creates a history entry
func NewOrderHistory(orderID, userID uuid.UUID, action HistoryAction, from, to OrderStatus, comment string) *OrderHistory {
	return &OrderHistory{
		ID:         uuid.New(),
		OrderID:    orderID,
		UserID:     userID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Comment:    comment,
		CreatedAt:  time.Now(),
	}
}
