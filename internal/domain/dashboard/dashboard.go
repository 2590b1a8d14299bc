// Package dashboard holds the read models behind the administration
// dashboard. Every chart is fed from a single Data document.
package dashboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LabelValue is one bar or slice of a chart
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// OrderStats counts orders per workflow status
type OrderStats struct {
	Total           int64           `json:"total"`
	Pending         int64           `json:"pending"`
	Approved        int64           `json:"approved"`
	Rejected        int64           `json:"rejected"`
	Delivered       int64           `json:"delivered"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DeliveredAmount decimal.Decimal `json:"delivered_amount"`
}

// DeliveryStats describes delivered orders. ByAdministration feeds the
// "Par Directions" chart.
type DeliveryStats struct {
	DeliveredTotal     int64        `json:"delivered_total"`
	DeliveredThisMonth int64        `json:"delivered_this_month"`
	DeliveredLastMonth int64        `json:"delivered_last_month"`
	ByAdministration   []LabelValue `json:"by_administration"`
}

// ProductStats summarizes the catalog
type ProductStats struct {
	Total       int64        `json:"total"`
	Active      int64        `json:"active"`
	OutOfStock  int64        `json:"out_of_stock"`
	LowStock    int64        `json:"low_stock"`
	Categories  int64        `json:"categories"`
	TopProducts []LabelValue `json:"top_products"`
}

// UserStats summarizes accounts
type UserStats struct {
	Total            int64        `json:"total"`
	Approved         int64        `json:"approved"`
	Pending          int64        `json:"pending"`
	Admins           int64        `json:"admins"`
	ByAdministration []LabelValue `json:"by_administration"`
}

// Trends holds monthly series aligned on Labels (YYYY-MM, oldest first)
type Trends struct {
	Labels    []string `json:"labels"`
	Orders    []int64  `json:"orders"`
	Delivered []int64  `json:"delivered"`
	Rejected  []int64  `json:"rejected"`
}

// Data is the complete dashboard document
type Data struct {
	OrderStats    OrderStats    `json:"order_stats"`
	DeliveryStats DeliveryStats `json:"delivery_stats"`
	ProductStats  ProductStats  `json:"product_stats"`
	UserStats     UserStats     `json:"user_stats"`
	Trends        Trends        `json:"trends"`
	GeneratedAt   time.Time     `json:"generated_at"`
	Cached        bool          `json:"cached"`
}

// UserDelivery aggregates delivered orders of one requester
type UserDelivery struct {
	UserID          uuid.UUID       `json:"user_id"`
	Name            string          `json:"name"`
	Administration  string          `json:"administration"`
	DeliveredOrders int64           `json:"delivered_orders"`
	DeliveredItems  int64           `json:"delivered_items"`
	DeliveredAmount decimal.Decimal `json:"delivered_amount"`
}

// UserDeliveries is the per-user delivery document with chart series
type UserDeliveries struct {
	Users       []UserDelivery `json:"users"`
	Labels      []string       `json:"labels"`
	Values      []int64        `json:"values"`
	GeneratedAt time.Time      `json:"generated_at"`
	Cached      bool           `json:"cached"`
}

// OrderActivity is the minimal projection of an order used for trends
type OrderActivity struct {
	CreatedAt   time.Time
	RejectedAt  *time.Time
	DeliveredAt *time.Time
}
