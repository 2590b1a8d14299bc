package ordering

import (
	"fmt"
	"strings"
	"time"

	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an equipment order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusDelivered OrderStatus = "delivered"
)

// AllStatuses lists every status in workflow order
var AllStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusRejected,
	OrderStatusDelivered,
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected, OrderStatusDelivered:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusApproved || target == OrderStatusRejected
	case OrderStatusApproved:
		return target == OrderStatusDelivered
	case OrderStatusRejected, OrderStatusDelivered:
		return false // Terminal states
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusRejected || s == OrderStatusDelivered
}

// OrderItem is a product line, priced at the time the order was placed
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Reference   string
	UnitPrice   decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
	CreatedAt   time.Time
}

// NewOrderItem creates a new order line
func NewOrderItem(orderID, productID uuid.UUID, productName, reference string, unitPrice decimal.Decimal, quantity int) (*OrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if strings.TrimSpace(productName) == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	return &OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: productName,
		Reference:   reference,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		Subtotal:    unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:   time.Now(),
	}, nil
}

// Order is an equipment request placed by a user and processed by an
// administrator. It is the aggregate root for items and history.
type Order struct {
	shared.BaseAggregateRoot
	Number          string
	UserID          uuid.UUID
	Status          OrderStatus
	Items           []OrderItem
	TotalAmount     decimal.Decimal
	Notes           string
	RejectionReason string
	ApprovedAt      *time.Time
	ApprovedBy      *uuid.UUID
	RejectedAt      *time.Time
	RejectedBy      *uuid.UUID
	DeliveredAt     *time.Time
	DeliveredBy     *uuid.UUID
	History         []OrderHistory

	pendingHistory []OrderHistory
}

// NewOrder creates an empty pending order
func NewOrder(number string, userID uuid.UUID, notes string) (*Order, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if len(notes) > 1000 {
		return nil, shared.NewDomainError("INVALID_NOTES", "Notes cannot exceed 1000 characters")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		UserID:            userID,
		Status:            OrderStatusPending,
		Items:             make([]OrderItem, 0),
		TotalAmount:       decimal.Zero,
		Notes:             strings.TrimSpace(notes),
	}, nil
}

// AddItem adds a product line. Lines of the same product are merged.
func (o *Order) AddItem(productID uuid.UUID, productName, reference string, unitPrice decimal.Decimal, quantity int) error {
	if o.Status != OrderStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot modify order in %s status", o.Status))
	}

	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			if quantity <= 0 {
				return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
			}
			o.Items[i].Quantity += quantity
			o.Items[i].Subtotal = o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity)))
			o.recalculateTotal()
			return nil
		}
	}

	item, err := NewOrderItem(o.ID, productID, productName, reference, unitPrice, quantity)
	if err != nil {
		return err
	}
	o.Items = append(o.Items, *item)
	o.recalculateTotal()
	return nil
}

// Place validates the order and records its creation. It must be called
// once, after items have been added.
func (o *Order) Place(by uuid.UUID) error {
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot place an order without items")
	}
	o.recordHistory(HistoryActionCreated, by, "", OrderStatusPending, o.Notes)
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return nil
}

// Approve accepts a pending order
func (o *Order) Approve(by uuid.UUID, comment string) error {
	if !o.Status.CanTransitionTo(OrderStatusApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve order in %s status", o.Status))
	}

	now := time.Now()
	from := o.Status
	o.Status = OrderStatusApproved
	o.ApprovedAt = &now
	o.ApprovedBy = &by
	o.UpdatedAt = now

	o.recordHistory(HistoryActionApproved, by, from, OrderStatusApproved, comment)
	o.AddDomainEvent(NewOrderApprovedEvent(o))

	return nil
}

// Reject refuses a pending order. A reason is mandatory.
func (o *Order) Reject(by uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if !o.Status.CanTransitionTo(OrderStatusRejected) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject order in %s status", o.Status))
	}
	if reason == "" {
		return shared.NewDomainError("REJECTION_REASON_REQUIRED", "A rejection reason is required")
	}
	if len(reason) > 1000 {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason cannot exceed 1000 characters")
	}

	now := time.Now()
	from := o.Status
	o.Status = OrderStatusRejected
	o.RejectionReason = reason
	o.RejectedAt = &now
	o.RejectedBy = &by
	o.UpdatedAt = now

	o.recordHistory(HistoryActionRejected, by, from, OrderStatusRejected, reason)
	o.AddDomainEvent(NewOrderRejectedEvent(o))

	return nil
}

// Deliver marks an approved order as handed over to the requester
func (o *Order) Deliver(by uuid.UUID, comment string) error {
	if !o.Status.CanTransitionTo(OrderStatusDelivered) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot deliver order in %s status", o.Status))
	}

	now := time.Now()
	from := o.Status
	o.Status = OrderStatusDelivered
	o.DeliveredAt = &now
	o.DeliveredBy = &by
	o.UpdatedAt = now

	o.recordHistory(HistoryActionDelivered, by, from, OrderStatusDelivered, comment)
	o.AddDomainEvent(NewOrderDeliveredEvent(o))

	return nil
}

// PendingHistory returns the history entries not persisted yet
func (o *Order) PendingHistory() []OrderHistory {
	return o.pendingHistory
}

// ClearPendingHistory is called by repositories once entries are stored
func (o *Order) ClearPendingHistory() {
	o.pendingHistory = nil
}

// ItemCount returns the number of lines
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// TotalQuantity returns the number of units across all lines
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// IsOwnedBy reports whether userID placed the order
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// HasInvoice reports whether a delivery receipt can be issued
func (o *Order) HasInvoice() bool {
	return o.Status == OrderStatusApproved || o.Status == OrderStatusDelivered
}

func (o *Order) recordHistory(action HistoryAction, by uuid.UUID, from, to OrderStatus, comment string) {
	entry := NewOrderHistory(o.ID, by, action, from, to, comment)
	o.History = append(o.History, *entry)
	o.pendingHistory = append(o.pendingHistory, *entry)
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
	}
	o.TotalAmount = total
	o.UpdatedAt = time.Now()
}

// FormatOrderNumber renders the daily sequential order number
func FormatOrderNumber(day time.Time, sequence int) string {
	return fmt.Sprintf("CMD-%s-%04d", day.Format("20060102"), sequence)
}

// OrderNumberPrefix returns the prefix shared by all orders of a day
func OrderNumberPrefix(day time.Time) string {
	return "CMD-" + day.Format("20060102") + "-"
}
