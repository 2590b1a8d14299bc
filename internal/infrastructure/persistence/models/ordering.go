package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/disi/commandes/internal/domain/ordering"
)

// OrderModel is the orders row
type OrderModel struct {
	AggregateModel
	Number          string               `gorm:"type:varchar(30);not null;uniqueIndex:uq_orders_number"`
	UserID          uuid.UUID            `gorm:"type:char(36);not null;index"`
	Status          ordering.OrderStatus `gorm:"type:varchar(20);not null;index"`
	TotalAmount     decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	Notes           string               `gorm:"type:text"`
	RejectionReason string               `gorm:"type:text"`
	ApprovedAt      *time.Time
	ApprovedBy      *uuid.UUID `gorm:"type:char(36)"`
	RejectedAt      *time.Time
	RejectedBy      *uuid.UUID `gorm:"type:char(36)"`
	DeliveredAt     *time.Time `gorm:"index"`
	DeliveredBy     *uuid.UUID `gorm:"type:char(36)"`

	Items   []OrderItemModel    `gorm:"foreignKey:OrderID"`
	History []OrderHistoryModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel is the order_items row
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:char(36);primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:char(36);not null;index"`
	ProductID   uuid.UUID       `gorm:"type:char(36);not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Reference   string          `gorm:"type:varchar(50);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity    int             `gorm:"not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

func (OrderItemModel) TableName() string { return "order_items" }

// OrderHistoryModel is the order_history row. Rows are only ever inserted.
type OrderHistoryModel struct {
	ID         uuid.UUID              `gorm:"type:char(36);primaryKey"`
	OrderID    uuid.UUID              `gorm:"type:char(36);not null;index"`
	UserID     uuid.UUID              `gorm:"type:char(36);not null"`
	Action     ordering.HistoryAction `gorm:"type:varchar(20);not null"`
	FromStatus ordering.OrderStatus   `gorm:"type:varchar(20)"`
	ToStatus   ordering.OrderStatus   `gorm:"type:varchar(20);not null"`
	Comment    string                 `gorm:"type:text"`
	CreatedAt  time.Time              `gorm:"not null;index"`
}

func (OrderHistoryModel) TableName() string { return "order_history" }

// OrderModelFromDomain maps an order and its items. History is written
// separately from the order's pending entries.
func OrderModelFromDomain(o *ordering.Order) *OrderModel {
	m := &OrderModel{
		Number:          o.Number,
		UserID:          o.UserID,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount,
		Notes:           o.Notes,
		RejectionReason: o.RejectionReason,
		ApprovedAt:      utc(o.ApprovedAt),
		ApprovedBy:      o.ApprovedBy,
		RejectedAt:      utc(o.RejectedAt),
		RejectedBy:      o.RejectedBy,
		DeliveredAt:     utc(o.DeliveredAt),
		DeliveredBy:     o.DeliveredBy,
		Items:           make([]OrderItemModel, len(o.Items)),
	}
	m.fromAggregate(o.BaseAggregateRoot)
	for i, it := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:          it.ID,
			OrderID:     o.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Reference:   it.Reference,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
			CreatedAt:   it.CreatedAt.UTC(),
		}
	}
	return m
}

func (m *OrderModel) ToDomain() *ordering.Order {
	o := &ordering.Order{
		BaseAggregateRoot: m.toAggregate(),
		Number:            m.Number,
		UserID:            m.UserID,
		Status:            m.Status,
		Items:             make([]ordering.OrderItem, len(m.Items)),
		TotalAmount:       m.TotalAmount,
		Notes:             m.Notes,
		RejectionReason:   m.RejectionReason,
		ApprovedAt:        m.ApprovedAt,
		ApprovedBy:        m.ApprovedBy,
		RejectedAt:        m.RejectedAt,
		RejectedBy:        m.RejectedBy,
		DeliveredAt:       m.DeliveredAt,
		DeliveredBy:       m.DeliveredBy,
		History:           make([]ordering.OrderHistory, len(m.History)),
	}
	for i, it := range m.Items {
		o.Items[i] = ordering.OrderItem{
			ID:          it.ID,
			OrderID:     it.OrderID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Reference:   it.Reference,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
			CreatedAt:   it.CreatedAt,
		}
	}
	for i := range m.History {
		o.History[i] = *m.History[i].ToDomain()
	}
	return o
}

// OrderHistoryModelFromDomain maps one history entry
func OrderHistoryModelFromDomain(h ordering.OrderHistory) OrderHistoryModel {
	return OrderHistoryModel{
		ID:         h.ID,
		OrderID:    h.OrderID,
		UserID:     h.UserID,
		Action:     h.Action,
		FromStatus: h.FromStatus,
		ToStatus:   h.ToStatus,
		Comment:    h.Comment,
		CreatedAt:  h.CreatedAt.UTC(),
	}
}

func (m *OrderHistoryModel) ToDomain() *ordering.OrderHistory {
	return &ordering.OrderHistory{
		ID:         m.ID,
		OrderID:    m.OrderID,
		UserID:     m.UserID,
		Action:     m.Action,
		FromStatus: m.FromStatus,
		ToStatus:   m.ToStatus,
		Comment:    m.Comment,
		CreatedAt:  m.CreatedAt,
	}
}
