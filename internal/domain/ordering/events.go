package ordering

import (
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeOrder = "Order"

const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderApproved  = "OrderApproved"
	EventTypeOrderRejected  = "OrderRejected"
	EventTypeOrderDelivered = "OrderDelivered"
)

// OrderEventTypes lists every order event, for subscribers interested in all of them
var OrderEventTypes = []string{
	EventTypeOrderCreated,
	EventTypeOrderApproved,
	EventTypeOrderRejected,
	EventTypeOrderDelivered,
}

// OrderCreatedEvent is published when a user places an order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	Number      string          `json:"number"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Number:          o.Number,
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount,
		ItemCount:       o.ItemCount(),
	}
}

// OrderApprovedEvent is published when an administrator approves an order
type OrderApprovedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	Number     string    `json:"number"`
	ApprovedBy uuid.UUID `json:"approved_by"`
}

func NewOrderApprovedEvent(o *Order) *OrderApprovedEvent {
	return &OrderApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderApproved, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Number:          o.Number,
		ApprovedBy:      *o.ApprovedBy,
	}
}

// OrderRejectedEvent is published when an administrator rejects an order
type OrderRejectedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	Number     string    `json:"number"`
	RejectedBy uuid.UUID `json:"rejected_by"`
	Reason     string    `json:"reason"`
}

func NewOrderRejectedEvent(o *Order) *OrderRejectedEvent {
	return &OrderRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRejected, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Number:          o.Number,
		RejectedBy:      *o.RejectedBy,
		Reason:          o.RejectionReason,
	}
}

// OrderDeliveredEvent is published when the equipment is handed over
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	Number      string    `json:"number"`
	UserID      uuid.UUID `json:"user_id"`
	DeliveredBy uuid.UUID `json:"delivered_by"`
}

func NewOrderDeliveredEvent(o *Order) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Number:          o.Number,
		UserID:          o.UserID,
		DeliveredBy:     *o.DeliveredBy,
	}
}
