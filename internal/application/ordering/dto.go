package ordering

import (
	"time"

	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceOrderLine is one requested product
type PlaceOrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput contains what is needed to create an order
type PlaceOrderInput struct {
	UserID uuid.UUID
	Lines  []PlaceOrderLine
	Notes  string
}

// OrderListFilter represents filter options for order lists
type OrderListFilter struct {
	Search         string     `form:"search"`
	Status         string     `form:"status" binding:"omitempty,oneof=pending approved rejected delivered"`
	UserID         *uuid.UUID `form:"user_id"`
	Administration string     `form:"administration"`
	From           *time.Time `form:"from" time_format:"2006-01-02"`
	To             *time.Time `form:"to" time_format:"2006-01-02"`
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string     `form:"order_by"`
	OrderDir       string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// RequesterInfo identifies who placed an order
type RequesterInfo struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Administration string    `json:"administration"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Reference   string          `json:"reference"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// HistoryResponse represents one audit entry
type HistoryResponse struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	Number           string              `json:"number"`
	UserID           uuid.UUID           `json:"user_id"`
	Requester        *RequesterInfo      `json:"requester,omitempty"`
	Status           string              `json:"status"`
	Items            []OrderItemResponse `json:"items"`
	ItemCount        int                 `json:"item_count"`
	TotalQuantity    int                 `json:"total_quantity"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	Notes            string              `json:"notes,omitempty"`
	RejectionReason  string              `json:"rejection_reason,omitempty"`
	ApprovedAt       *time.Time          `json:"approved_at,omitempty"`
	ApprovedBy       *uuid.UUID          `json:"approved_by,omitempty"`
	RejectedAt       *time.Time          `json:"rejected_at,omitempty"`
	RejectedBy       *uuid.UUID          `json:"rejected_by,omitempty"`
	DeliveredAt      *time.Time          `json:"delivered_at,omitempty"`
	DeliveredBy      *uuid.UUID          `json:"delivered_by,omitempty"`
	InvoiceAvailable bool                `json:"invoice_available"`
	History          []HistoryResponse   `json:"history,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Version          int                 `json:"version"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *ordering.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Reference:   it.Reference,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		}
	}
	return OrderResponse{
		ID:               o.ID,
		Number:           o.Number,
		UserID:           o.UserID,
		Status:           string(o.Status),
		Items:            items,
		ItemCount:        o.ItemCount(),
		TotalQuantity:    o.TotalQuantity(),
		TotalAmount:      o.TotalAmount,
		Notes:            o.Notes,
		RejectionReason:  o.RejectionReason,
		ApprovedAt:       o.ApprovedAt,
		ApprovedBy:       o.ApprovedBy,
		RejectedAt:       o.RejectedAt,
		RejectedBy:       o.RejectedBy,
		DeliveredAt:      o.DeliveredAt,
		DeliveredBy:      o.DeliveredBy,
		InvoiceAvailable: o.HasInvoice(),
		History:          ToHistoryResponses(o.History),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Version:          o.Version,
	}
}

// ToHistoryResponses converts history entries
func ToHistoryResponses(entries []ordering.OrderHistory) []HistoryResponse {
	if len(entries) == 0 {
		return nil
	}
	out := make([]HistoryResponse, len(entries))
	for i, h := range entries {
		out[i] = HistoryResponse{
			ID:         h.ID,
			UserID:     h.UserID,
			Action:     string(h.Action),
			FromStatus: string(h.FromStatus),
			ToStatus:   string(h.ToStatus),
			Comment:    h.Comment,
			CreatedAt:  h.CreatedAt,
		}
	}
	return out
}

func toRequester(u *identity.User) *RequesterInfo {
	return &RequesterInfo{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Administration: u.AdministrationLabel(),
	}
}
