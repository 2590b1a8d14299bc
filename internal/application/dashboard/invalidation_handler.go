package dashboard

import (
	"context"

	"github.com/disi/commandes/internal/domain/catalog"
	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/disi/commandes/internal/domain/shared"
	"go.uber.org/zap"
)

// InvalidationHandler drops the cached dashboard whenever an event changes
// one of its figures
type InvalidationHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewInvalidationHandler creates a new InvalidationHandler
func NewInvalidationHandler(service *Service, logger *zap.Logger) *InvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvalidationHandler{service: service, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *InvalidationHandler) EventTypes() []string {
	types := make([]string, 0, len(ordering.OrderEventTypes)+5)
	types = append(types, ordering.OrderEventTypes...)
	return append(types,
		identity.EventTypeUserRegistered,
		identity.EventTypeUserApprovalChanged,
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductUpdated,
		catalog.EventTypeProductStockChanged,
	)
}

// Handle implements shared.EventHandler
func (h *InvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, err := h.service.Clear(ctx)
	if err != nil {
		h.logger.Warn("Failed to invalidate dashboard cache",
			zap.String("event_type", event.EventType()),
			zap.Error(err))
		return err
	}
	if n > 0 {
		h.logger.Debug("Dashboard cache invalidated",
			zap.String("event_type", event.EventType()),
			zap.Int64("keys", n))
	}
	return nil
}
