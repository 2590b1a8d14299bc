package cart

import (
	"time"

	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxLineQuantity caps a single cart line
const MaxLineQuantity = 999

// Line is one product in a cart. Prices are not stored: the cart is
// always priced against the live catalog.
type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart holds what a user intends to order
type Cart struct {
	UserID    uuid.UUID `json:"user_id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty cart
func New(userID uuid.UUID) *Cart {
	return &Cart{
		UserID:    userID,
		Lines:     make([]Line, 0),
		UpdatedAt: time.Now(),
	}
}

// Add puts quantity units of a product in the cart, merging with an
// existing line
func (c *Cart) Add(productID uuid.UUID, quantity int) error {
	if productID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	if idx := c.indexOf(productID); idx >= 0 {
		merged := c.Lines[idx].Quantity + quantity
		if merged > MaxLineQuantity {
			return shared.NewDomainError("INVALID_QUANTITY", "Quantity exceeds the allowed maximum")
		}
		c.Lines[idx].Quantity = merged
	} else {
		if quantity > MaxLineQuantity {
			return shared.NewDomainError("INVALID_QUANTITY", "Quantity exceeds the allowed maximum")
		}
		c.Lines = append(c.Lines, Line{ProductID: productID, Quantity: quantity, AddedAt: time.Now()})
	}
	c.UpdatedAt = time.Now()
	return nil
}

// SetQuantity replaces the quantity of a line. Zero removes the line.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 0 || quantity > MaxLineQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity is out of range")
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return shared.NewDomainError("NOT_IN_CART", "Product is not in the cart")
	}
	if quantity == 0 {
		c.removeAt(idx)
	} else {
		c.Lines[idx].Quantity = quantity
	}
	c.UpdatedAt = time.Now()
	return nil
}

// Remove drops a line from the cart
func (c *Cart) Remove(productID uuid.UUID) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return shared.NewDomainError("NOT_IN_CART", "Product is not in the cart")
	}
	c.removeAt(idx)
	c.UpdatedAt = time.Now()
	return nil
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Lines = make([]Line, 0)
	c.UpdatedAt = time.Now()
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ProductIDs returns the products in the cart, in insertion order
func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	return ids
}

// TotalQuantity returns the number of units across all lines
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
}
