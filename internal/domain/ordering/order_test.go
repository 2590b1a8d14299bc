package ordering

import (
	"testing"
	"time"

	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlacedOrder(t *testing.T) *Order {
	t.Helper()
	userID := uuid.New()
	order, err := NewOrder("CMD-20260101-0001", userID, "Pour le bureau 12")
	require.NoError(t, err)
	require.NoError(t, order.AddItem(uuid.New(), "Ecran 24 pouces", "SCR-24", decimal.NewFromInt(120000), 2))
	require.NoError(t, order.AddItem(uuid.New(), "Clavier", "KB-01", decimal.NewFromInt(15000), 1))
	require.NoError(t, order.Place(userID))
	return order
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusApproved, true},
		{OrderStatusPending, OrderStatusRejected, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusApproved, OrderStatusDelivered, true},
		{OrderStatusApproved, OrderStatusRejected, false},
		{OrderStatusApproved, OrderStatusPending, false},
		{OrderStatusRejected, OrderStatusApproved, false},
		{OrderStatusRejected, OrderStatusDelivered, false},
		{OrderStatusDelivered, OrderStatusApproved, false},
		{OrderStatusDelivered, OrderStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_IsValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.IsValid())
	}
	assert.False(t, OrderStatus("cancelled").IsValid())
	assert.True(t, OrderStatusRejected.IsTerminal())
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.False(t, OrderStatusApproved.IsTerminal())
}

func TestNewOrder(t *testing.T) {
	t.Run("valid order starts pending", func(t *testing.T) {
		order, err := NewOrder("CMD-20260101-0001", uuid.New(), "")
		require.NoError(t, err)
		assert.Equal(t, OrderStatusPending, order.Status)
		assert.True(t, order.TotalAmount.IsZero())
	})

	t.Run("requires number and user", func(t *testing.T) {
		_, err := NewOrder("", uuid.New(), "")
		assert.Error(t, err)
		_, err = NewOrder("CMD-1", uuid.Nil, "")
		assert.Error(t, err)
	})
}

func TestOrder_Items(t *testing.T) {
	t.Run("computes total and merges lines", func(t *testing.T) {
		order, err := NewOrder("CMD-20260101-0002", uuid.New(), "")
		require.NoError(t, err)
		productID := uuid.New()

		require.NoError(t, order.AddItem(productID, "Souris", "MS-1", decimal.NewFromInt(5000), 2))
		require.NoError(t, order.AddItem(productID, "Souris", "MS-1", decimal.NewFromInt(5000), 3))

		require.Len(t, order.Items, 1)
		assert.Equal(t, 5, order.Items[0].Quantity)
		assert.True(t, decimal.NewFromInt(25000).Equal(order.TotalAmount))
		assert.Equal(t, 5, order.TotalQuantity())
	})

	t.Run("rejects invalid lines", func(t *testing.T) {
		order, err := NewOrder("CMD-20260101-0003", uuid.New(), "")
		require.NoError(t, err)

		assert.Error(t, order.AddItem(uuid.Nil, "X", "X", decimal.NewFromInt(1), 1))
		assert.Error(t, order.AddItem(uuid.New(), "X", "X", decimal.NewFromInt(1), 0))
		assert.Error(t, order.AddItem(uuid.New(), "X", "X", decimal.NewFromInt(-1), 1))
	})

	t.Run("cannot place without items", func(t *testing.T) {
		order, err := NewOrder("CMD-20260101-0004", uuid.New(), "")
		require.NoError(t, err)
		assert.Error(t, order.Place(order.UserID))
	})
}

func TestOrder_Place(t *testing.T) {
	order := newPlacedOrder(t)

	assert.True(t, decimal.NewFromInt(255000).Equal(order.TotalAmount))
	require.Len(t, order.PendingHistory(), 1)
	assert.Equal(t, HistoryActionCreated, order.PendingHistory()[0].Action)
	assert.Equal(t, OrderStatusPending, order.PendingHistory()[0].ToStatus)

	events := order.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeOrderCreated, events[0].EventType())
}

func TestOrder_ApproveThenDeliver(t *testing.T) {
	order := newPlacedOrder(t)
	adminID := uuid.New()
	order.ClearPendingHistory()
	order.ClearDomainEvents()

	require.NoError(t, order.Approve(adminID, ""))
	assert.Equal(t, OrderStatusApproved, order.Status)
	require.NotNil(t, order.ApprovedBy)
	assert.Equal(t, adminID, *order.ApprovedBy)
	assert.True(t, order.HasInvoice())

	require.NoError(t, order.Deliver(adminID, "Remis en main propre"))
	assert.Equal(t, OrderStatusDelivered, order.Status)
	assert.NotNil(t, order.DeliveredAt)

	history := order.PendingHistory()
	require.Len(t, history, 2)
	assert.Equal(t, OrderStatusPending, history[0].FromStatus)
	assert.Equal(t, OrderStatusApproved, history[0].ToStatus)
	assert.Equal(t, OrderStatusApproved, history[1].FromStatus)
	assert.Equal(t, OrderStatusDelivered, history[1].ToStatus)
	assert.Equal(t, "Remis en main propre", history[1].Comment)

	events := order.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeOrderApproved, events[0].EventType())
	assert.Equal(t, EventTypeOrderDelivered, events[1].EventType())
}

func TestOrder_Reject(t *testing.T) {
	adminID := uuid.New()

	t.Run("records the reason", func(t *testing.T) {
		order := newPlacedOrder(t)

		require.NoError(t, order.Reject(adminID, "  Budget épuisé  "))
		assert.Equal(t, OrderStatusRejected, order.Status)
		assert.Equal(t, "Budget épuisé", order.RejectionReason)
		assert.NotNil(t, order.RejectedAt)
		assert.False(t, order.HasInvoice())

		last := order.History[len(order.History)-1]
		assert.Equal(t, HistoryActionRejected, last.Action)
		assert.Equal(t, "Budget épuisé", last.Comment)
	})

	t.Run("requires a reason", func(t *testing.T) {
		order := newPlacedOrder(t)

		err := order.Reject(adminID, "   ")
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "REJECTION_REASON_REQUIRED", de.Code)
		assert.Equal(t, OrderStatusPending, order.Status)
	})
}

func TestOrder_InvalidTransitions(t *testing.T) {
	adminID := uuid.New()

	t.Run("cannot deliver pending order", func(t *testing.T) {
		order := newPlacedOrder(t)
		assert.ErrorIs(t, order.Deliver(adminID, ""), shared.ErrInvalidState)
	})

	t.Run("cannot approve rejected order", func(t *testing.T) {
		order := newPlacedOrder(t)
		require.NoError(t, order.Reject(adminID, "Doublon"))
		assert.ErrorIs(t, order.Approve(adminID, ""), shared.ErrInvalidState)
	})

	t.Run("cannot reject approved order", func(t *testing.T) {
		order := newPlacedOrder(t)
		require.NoError(t, order.Approve(adminID, ""))
		assert.ErrorIs(t, order.Reject(adminID, "trop tard"), shared.ErrInvalidState)
	})

	t.Run("cannot add items after approval", func(t *testing.T) {
		order := newPlacedOrder(t)
		require.NoError(t, order.Approve(adminID, ""))
		assert.Error(t, order.AddItem(uuid.New(), "X", "X", decimal.NewFromInt(1), 1))
	})
}

func TestFormatOrderNumber(t *testing.T) {
	day := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "CMD-20260307-0042", FormatOrderNumber(day, 42))
	assert.Equal(t, "CMD-20260307-", OrderNumberPrefix(day))
}
