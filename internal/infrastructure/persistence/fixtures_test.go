package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/disi/commandes/internal/domain/catalog"
	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/disi/commandes/internal/domain/shared"
)

func seedUser(t *testing.T, db *gorm.DB, name, email, administration string, approved bool) *identity.User {
	t.Helper()
	u := &identity.User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		PasswordHash:      "$2a$04$not-a-real-hash",
		Administration:    administration,
		Approved:          approved,
	}
	require.NoError(t, NewGormUserRepository(db).Save(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, ref, name string, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(ref, name, decimal.RequireFromString(price))
	require.NoError(t, err)
	require.NoError(t, p.SetStock(stock))
	require.NoError(t, NewGormProductRepository(db).Save(context.Background(), p))
	return p
}

type line struct {
	product *catalog.Product
	qty     int
}

// seedOrder places an order and walks it to status
func seedOrder(t *testing.T, db *gorm.DB, number string, user *identity.User, status ordering.OrderStatus, lines ...line) *ordering.Order {
	t.Helper()
	ctx := context.Background()
	repo := NewGormOrderRepository(db)

	o, err := ordering.NewOrder(number, user.ID, "")
	require.NoError(t, err)
	for _, l := range lines {
		require.NoError(t, o.AddItem(l.product.ID, l.product.Name, l.product.Reference, l.product.Price, l.qty))
	}
	require.NoError(t, o.Place(user.ID))
	require.NoError(t, repo.Save(ctx, o))

	admin := uuid.New()
	switch status {
	case ordering.OrderStatusApproved:
		require.NoError(t, o.Approve(admin, ""))
	case ordering.OrderStatusRejected:
		require.NoError(t, o.Reject(admin, "budget"))
	case ordering.OrderStatusDelivered:
		require.NoError(t, o.Approve(admin, ""))
		require.NoError(t, o.Deliver(admin, ""))
	}
	if status != ordering.OrderStatusPending {
		require.NoError(t, repo.SaveWithLock(ctx, o))
	}
	return o
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}
