package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disi/commandes/internal/domain/catalog"
	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxNumberAttempts bounds retries when two orders race for the same number
const maxNumberAttempts = 5

// OrderService handles the order workflow
type OrderService struct {
	orderRepo      ordering.OrderRepository
	productRepo    catalog.ProductRepository
	userRepo       identity.UserRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo ordering.OrderRepository,
	productRepo catalog.ProductRepository,
	userRepo identity.UserRepository,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		userRepo:       userRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
		now:            time.Now,
	}
}

// Place creates a pending order from the requested lines. Products must be
// active and in stock; prices are snapshotted on the order lines.
func (s *OrderService) Place(ctx context.Context, input PlaceOrderInput) (*OrderResponse, error) {
	if len(input.Lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_CART", "Cannot place an order without items")
	}

	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanOrder() {
		return nil, shared.NewDomainError("ACCOUNT_NOT_APPROVED", "Your account is waiting for administrator approval")
	}

	ids := make([]uuid.UUID, len(input.Lines))
	for i, l := range input.Lines {
		ids[i] = l.ProductID
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, l := range input.Lines {
		p, ok := byID[l.ProductID]
		if !ok || !p.Active {
			return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE",
				fmt.Sprintf("Product %s is no longer available", l.ProductID))
		}
		if l.Quantity > p.Stock {
			return nil, shared.NewDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Only %d unit(s) of %s in stock", p.Stock, p.Reference))
		}
	}

	var order *ordering.Order
	for attempt := 1; ; attempt++ {
		order, err = s.buildOrder(ctx, input, byID)
		if err != nil {
			return nil, err
		}
		err = s.orderRepo.Save(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrAlreadyExists) || attempt >= maxNumberAttempts {
			return nil, err
		}
		s.logger.Debug("Order number taken, retrying",
			zap.String("number", order.Number),
			zap.Int("attempt", attempt))
	}
	s.publishEvents(ctx, order)

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("number", order.Number),
		zap.String("user_id", input.UserID.String()),
		zap.String("total", order.TotalAmount.String()))

	response := ToOrderResponse(order)
	response.Requester = toRequester(user)
	return &response, nil
}

func (s *OrderService) buildOrder(ctx context.Context, input PlaceOrderInput, products map[uuid.UUID]*catalog.Product) (*ordering.Order, error) {
	number, err := s.orderRepo.NextOrderNumber(ctx, s.now())
	if err != nil {
		return nil, err
	}
	order, err := ordering.NewOrder(number, input.UserID, input.Notes)
	if err != nil {
		return nil, err
	}
	for _, l := range input.Lines {
		p := products[l.ProductID]
		if err := order.AddItem(p.ID, p.Name, p.Reference, p.Price, l.Quantity); err != nil {
			return nil, err
		}
	}
	if err := order.Place(input.UserID); err != nil {
		return nil, err
	}
	return order, nil
}

// ListForUser returns the caller's own orders
func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID, filter OrderListFilter) ([]OrderResponse, int64, error) {
	filter.UserID = &userID
	filter.Administration = ""
	return s.list(ctx, filter, false)
}

// List returns orders of every user, with requester details
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	return s.list(ctx, filter, true)
}

func (s *OrderService) list(ctx context.Context, filter OrderListFilter, withRequester bool) ([]OrderResponse, int64, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Search = filter.Search

	domainFilter := ordering.OrderFilter{
		Filter:         f,
		UserID:         filter.UserID,
		Administration: filter.Administration,
		From:           filter.From,
		To:             filter.To,
	}
	if filter.Status != "" {
		status := ordering.OrderStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown order status "+filter.Status)
		}
		domainFilter.Status = &status
	}
	if filter.To != nil {
		// the To date is inclusive
		end := filter.To.AddDate(0, 0, 1)
		domainFilter.To = &end
	}

	orders, total, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	if withRequester {
		s.attachRequesters(ctx, responses)
	}
	return responses, total, nil
}

// GetForUser returns one of the caller's orders
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(userID) {
		return nil, shared.NewDomainError("FORBIDDEN", "This order belongs to another user")
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// Get returns any order with its requester
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	if user, err := s.userRepo.FindByID(ctx, order.UserID); err == nil {
		response.Requester = toRequester(user)
	}
	return &response, nil
}

// Approve accepts a pending order and takes its items out of stock. When a
// line cannot be served, the lines already taken are put back and the
// approval fails with INSUFFICIENT_STOCK.
func (s *OrderService) Approve(ctx context.Context, actorID, orderID uuid.UUID, comment string) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Approve(actorID, comment); err != nil {
		return nil, err
	}

	taken, err := s.takeStock(ctx, order)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		s.restoreStock(ctx, order, taken)
		return nil, err
	}
	s.publishEvents(ctx, order)

	s.logger.Info("Order approved",
		zap.String("order_id", order.ID.String()),
		zap.String("number", order.Number),
		zap.String("actor_id", actorID.String()))

	return s.withRequester(ctx, order), nil
}

// takeStock decrements stock for every line and returns how many lines were
// served. On failure the served lines are already compensated.
func (s *OrderService) takeStock(ctx context.Context, order *ordering.Order) (int, error) {
	for i, item := range order.Items {
		if err := s.productRepo.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			s.restoreStock(ctx, order, i)
			if errors.Is(err, shared.ErrInsufficientStock) {
				return 0, shared.NewDomainError("INSUFFICIENT_STOCK",
					fmt.Sprintf("Insufficient stock for %s (%d requested)", item.Reference, item.Quantity))
			}
			if shared.IsNotFound(err) {
				return 0, shared.NewDomainError("PRODUCT_UNAVAILABLE",
					fmt.Sprintf("Product %s no longer exists", item.Reference))
			}
			return 0, err
		}
	}
	return len(order.Items), nil
}

func (s *OrderService) restoreStock(ctx context.Context, order *ordering.Order, served int) {
	for i := served - 1; i >= 0; i-- {
		item := order.Items[i]
		if err := s.productRepo.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to restore stock",
				zap.String("order_id", order.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

// Reject refuses a pending order with a mandatory reason
func (s *OrderService) Reject(ctx context.Context, actorID, orderID uuid.UUID, reason string) (*OrderResponse, error) {
	return s.transition(ctx, orderID, "Order rejected", actorID, func(o *ordering.Order) error {
		return o.Reject(actorID, reason)
	})
}

// Deliver marks an approved order as handed over
func (s *OrderService) Deliver(ctx context.Context, actorID, orderID uuid.UUID, comment string) (*OrderResponse, error) {
	return s.transition(ctx, orderID, "Order delivered", actorID, func(o *ordering.Order) error {
		return o.Deliver(actorID, comment)
	})
}

// History returns the audit trail of an order, oldest first
func (s *OrderService) History(ctx context.Context, orderID uuid.UUID) ([]HistoryResponse, error) {
	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	entries, err := s.orderRepo.FindHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := ToHistoryResponses(entries)
	if out == nil {
		out = []HistoryResponse{}
	}
	return out, nil
}

func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, msg string, actorID uuid.UUID, fn func(*ordering.Order) error) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := fn(order); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, order)

	s.logger.Info(msg,
		zap.String("order_id", order.ID.String()),
		zap.String("number", order.Number),
		zap.String("actor_id", actorID.String()))

	return s.withRequester(ctx, order), nil
}

func (s *OrderService) withRequester(ctx context.Context, order *ordering.Order) *OrderResponse {
	response := ToOrderResponse(order)
	if user, err := s.userRepo.FindByID(ctx, order.UserID); err == nil {
		response.Requester = toRequester(user)
	}
	return &response
}

func (s *OrderService) attachRequesters(ctx context.Context, responses []OrderResponse) {
	if len(responses) == 0 {
		return
	}
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(responses))
	for _, r := range responses {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load order requesters", zap.Error(err))
		return
	}
	byID := make(map[uuid.UUID]*identity.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range responses {
		if u, ok := byID[responses[i].UserID]; ok {
			responses[i].Requester = toRequester(u)
		}
	}
}

// publishEvents publishes domain events from the aggregate
func (s *OrderService) publishEvents(ctx context.Context, order *ordering.Order) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}
