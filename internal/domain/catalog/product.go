package catalog

import (
	"regexp"
	"strings"

	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var referencePattern = regexp.MustCompile(`^[A-Z0-9_\-\.]+$`)

// Product represents an orderable piece of equipment.
// It is the aggregate root for catalog stock and pricing.
type Product struct {
	shared.BaseAggregateRoot
	Reference   string
	Name        string
	Description string
	CategoryID  *uuid.UUID
	Price       decimal.Decimal
	Stock       int
	ImageKey    string
	Active      bool
}

// NewProduct creates a new active product with no stock
func NewProduct(reference, name string, price decimal.Decimal) (*Product, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if err := validateReference(reference); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		Name:              strings.TrimSpace(name),
		Price:             price,
		Active:            true,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update changes the descriptive fields of the product
func (p *Product) Update(name, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(name)
	p.Description = description
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetReference changes the product reference
func (p *Product) SetReference(reference string) error {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if err := validateReference(reference); err != nil {
		return err
	}
	p.Reference = reference
	p.Touch()
	p.IncrementVersion()
	return nil
}

// SetPrice sets the unit price
func (p *Product) SetPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	p.Price = price
	p.Touch()
	p.IncrementVersion()
	return nil
}

// SetCategory assigns the product to a category, nil clears it
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.Touch()
	p.IncrementVersion()
}

// SetImage records the object storage key of the product picture
func (p *Product) SetImage(key string) {
	p.ImageKey = key
	p.Touch()
	p.IncrementVersion()
}

// SetStock overwrites the stock level (inventory correction)
func (p *Product) SetStock(quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Stock cannot be negative")
	}
	old := p.Stock
	p.Stock = quantity
	p.Touch()
	p.IncrementVersion()

	if old != quantity {
		p.AddDomainEvent(NewProductStockChangedEvent(p, old))
	}
	return nil
}

// Activate makes the product orderable again
func (p *Product) Activate() error {
	if p.Active {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	p.Active = true
	p.Touch()
	p.IncrementVersion()
	return nil
}

// Deactivate hides the product from the catalog
func (p *Product) Deactivate() error {
	if !p.Active {
		return shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive")
	}
	p.Active = false
	p.Touch()
	p.IncrementVersion()
	return nil
}

// CanOrder reports whether quantity units can be ordered right now
func (p *Product) CanOrder(quantity int) bool {
	return p.Active && quantity > 0 && p.Stock >= quantity
}

// IsLowStock reports whether stock is at or under threshold
func (p *Product) IsLowStock(threshold int) bool {
	return p.Stock <= threshold
}

func validateReference(reference string) error {
	if reference == "" {
		return shared.NewDomainError("INVALID_REFERENCE", "Product reference cannot be empty")
	}
	if len(reference) > 50 {
		return shared.NewDomainError("INVALID_REFERENCE", "Product reference cannot exceed 50 characters")
	}
	if !referencePattern.MatchString(reference) {
		return shared.NewDomainError("INVALID_REFERENCE", "Product reference can only contain letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

func validateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
