package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/disi/commandes/internal/application/ordering"
	"github.com/disi/commandes/internal/domain/cart"
	"github.com/disi/commandes/internal/domain/catalog"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderPlacer creates orders from checked out carts
type OrderPlacer interface {
	Place(ctx context.Context, input ordering.PlaceOrderInput) (*ordering.OrderResponse, error)
}

// AddItemRequest is the body of POST /cart/items
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=999"`
}

// SetQuantityRequest is the body of PUT /cart/items/:productId
type SetQuantityRequest struct {
	Quantity int `json:"quantity" binding:"min=0,max=999"`
}

// CheckoutRequest is the body of POST /cart/checkout
type CheckoutRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

// LineView is a cart line priced against the live catalog
type LineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Reference string          `json:"reference"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`
}

// View is the cart as shown to its owner. Unavailable lines are listed but
// do not count in the total.
type View struct {
	Lines         []LineView      `json:"lines"`
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CanCheckout   bool            `json:"can_checkout"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Service manages user carts
type Service struct {
	store       cart.Store
	productRepo catalog.ProductRepository
	orders      OrderPlacer
	logger      *zap.Logger
}

// NewService creates a new cart Service
func NewService(store cart.Store, productRepo catalog.ProductRepository, orders OrderPlacer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		productRepo: productRepo,
		orders:      orders,
		logger:      logger,
	}
}

// View returns the user's cart
func (s *Service) View(ctx context.Context, userID uuid.UUID) (*View, error) {
	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.price(ctx, c)
}

// Add puts a product in the cart. The product must be orderable and the
// merged quantity must fit in the current stock.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*View, error) {
	product, err := s.orderable(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.Add(product.ID, req.Quantity); err != nil {
		return nil, err
	}
	if qty := quantityOf(c, product.ID); qty > product.Stock {
		return nil, shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Only %d unit(s) of %s in stock", product.Stock, product.Reference))
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.price(ctx, c)
}

// SetQuantity changes the quantity of a line; zero removes it
func (s *Service) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if quantity > 0 {
		product, err := s.orderable(ctx, productID)
		if err != nil {
			return nil, err
		}
		if quantity > product.Stock {
			return nil, shared.NewDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Only %d unit(s) of %s in stock", product.Stock, product.Reference))
		}
	}
	if err := c.SetQuantity(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.price(ctx, c)
}

// Remove drops a product from the cart
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.Remove(productID); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.price(ctx, c)
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.store.Delete(ctx, userID)
}

// Checkout turns the cart into a pending order and empties it
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, notes string) (*ordering.OrderResponse, error) {
	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, shared.NewDomainError("EMPTY_CART", "Your cart is empty")
	}

	lines := make([]ordering.PlaceOrderLine, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = ordering.PlaceOrderLine{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	order, err := s.orders.Place(ctx, ordering.PlaceOrderInput{
		UserID: userID,
		Lines:  lines,
		Notes:  notes,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear cart after checkout",
			zap.String("user_id", userID.String()),
			zap.String("order_number", order.Number),
			zap.Error(err))
	}
	return order, nil
}

func (s *Service) orderable(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if shared.IsNotFound(err) {
		return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE", "This product is no longer available")
	}
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE",
			fmt.Sprintf("Product %s is no longer available", product.Reference))
	}
	return product, nil
}

// price enriches the cart lines with live catalog data
func (s *Service) price(ctx context.Context, c *cart.Cart) (*View, error) {
	view := &View{
		Lines:       make([]LineView, 0, len(c.Lines)),
		TotalAmount: decimal.Zero,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.IsEmpty() {
		return view, nil
	}

	products, err := s.productRepo.FindByIDs(ctx, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	view.CanCheckout = true
	for _, l := range c.Lines {
		line := LineView{ProductID: l.ProductID, Quantity: l.Quantity, LineTotal: decimal.Zero}
		if p, ok := byID[l.ProductID]; ok {
			line.Reference = p.Reference
			line.Name = p.Name
			line.UnitPrice = p.Price
			line.Stock = p.Stock
			line.Available = p.Active && l.Quantity <= p.Stock
		}
		if line.Available {
			line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
			view.TotalAmount = view.TotalAmount.Add(line.LineTotal)
			view.TotalQuantity += l.Quantity
		} else {
			view.CanCheckout = false
		}
		view.Lines = append(view.Lines, line)
	}
	view.ItemCount = len(view.Lines)
	return view, nil
}

func quantityOf(c *cart.Cart, productID uuid.UUID) int {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}
