package printing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the data bound to the invoice template
type Invoice struct {
	CompanyName    string
	CompanyAddress string

	Number      string
	Status      string
	CreatedAt   time.Time
	ApprovedAt  *time.Time
	DeliveredAt *time.Time
	Notes       string

	RequesterName  string
	RequesterEmail string
	Administration string

	Lines []InvoiceLine
	Total decimal.Decimal

	GeneratedAt time.Time
}

// InvoiceLine is one row of the item table
type InvoiceLine struct {
	Reference string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// TotalQuantity sums the quantities of all lines
func (i *Invoice) TotalQuantity() int {
	n := 0
	for _, l := range i.Lines {
		n += l.Quantity
	}
	return n
}

// Filename is the download name of the invoice PDF
func (i *Invoice) Filename() string {
	return "facture-" + i.Number + ".pdf"
}
