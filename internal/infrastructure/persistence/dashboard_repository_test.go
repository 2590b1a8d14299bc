package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disi/commandes/internal/domain/dashboard"
	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/disi/commandes/internal/domain/shared"
)

func TestGormDashboardRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormDashboardRepository(db)
	ctx := context.Background()

	finances := seedUser(t, db, "Alice", "alice@disi.gov", "Direction des Finances", true)
	systems := seedUser(t, db, "Bob", "bob@disi.gov", "Direction des Systèmes", true)
	seedUser(t, db, "Chloé", "chloe@disi.gov", "Direction des Systèmes", false)
	admin := &identity.User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              "Admin",
		Email:             "admin@disi.gov",
		PasswordHash:      "x",
		IsAdmin:           true,
		Approved:          true,
	}
	require.NoError(t, NewGormUserRepository(db).Save(ctx, admin))

	pc := seedProduct(t, db, "PC-001", "Ordinateur portable", "400000", 10)
	ink := seedProduct(t, db, "ENC-010", "Encre noire", "10000", 3)
	seedProduct(t, db, "AGR-002", "Agrafeuse", "2000", 0)

	seedOrder(t, db, "CMD-20260301-0001", finances, ordering.OrderStatusDelivered, line{pc, 1}, line{ink, 2})
	seedOrder(t, db, "CMD-20260301-0002", finances, ordering.OrderStatusDelivered, line{ink, 1})
	seedOrder(t, db, "CMD-20260301-0003", systems, ordering.OrderStatusDelivered, line{pc, 1})
	seedOrder(t, db, "CMD-20260301-0004", systems, ordering.OrderStatusRejected, line{ink, 10})
	seedOrder(t, db, "CMD-20260301-0005", systems, ordering.OrderStatusPending, line{pc, 2})

	t.Run("order stats", func(t *testing.T) {
		stats, err := repo.GetOrderStats(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 5, stats.Total)
		assert.EqualValues(t, 1, stats.Pending)
		assert.EqualValues(t, 0, stats.Approved)
		assert.EqualValues(t, 1, stats.Rejected)
		assert.EqualValues(t, 3, stats.Delivered)
		assert.Equal(t, "1630000", stats.TotalAmount.String())
		assert.Equal(t, "830000", stats.DeliveredAmount.String())
	})

	t.Run("delivered by administration", func(t *testing.T) {
		rows, err := repo.DeliveredByAdministration(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []dashboard.LabelValue{
			{Label: "Direction des Finances", Value: 2},
			{Label: "Direction des Systèmes", Value: 1},
		}, rows)
	})

	t.Run("delivered between", func(t *testing.T) {
		now := time.Now()
		n, err := repo.CountDeliveredBetween(ctx, now.Add(-time.Hour), now.Add(time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		n, err = repo.CountDeliveredBetween(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("product stats", func(t *testing.T) {
		stats, err := repo.GetProductStats(ctx, 5)
		require.NoError(t, err)
		assert.EqualValues(t, 3, stats.Total)
		assert.EqualValues(t, 3, stats.Active)
		assert.EqualValues(t, 1, stats.OutOfStock)
		assert.EqualValues(t, 1, stats.LowStock)
	})

	t.Run("top products skip rejected orders", func(t *testing.T) {
		top, err := repo.TopProducts(ctx, 5)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, dashboard.LabelValue{Label: "Ordinateur portable", Value: 4}, top[0])
		assert.Equal(t, dashboard.LabelValue{Label: "Encre noire", Value: 3}, top[1])
	})

	t.Run("user stats", func(t *testing.T) {
		stats, err := repo.GetUserStats(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 4, stats.Total)
		assert.EqualValues(t, 3, stats.Approved)
		assert.EqualValues(t, 1, stats.Pending)
		assert.EqualValues(t, 1, stats.Admins)
	})

	t.Run("users by administration leaves admins out", func(t *testing.T) {
		rows, err := repo.UsersByAdministration(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []dashboard.LabelValue{
			{Label: "Direction des Finances", Value: 1},
			{Label: "Direction des Systèmes", Value: 2},
		}, rows)
	})

	t.Run("activity since", func(t *testing.T) {
		rows, err := repo.OrderActivitySince(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		require.Len(t, rows, 5)
		delivered := 0
		for _, r := range rows {
			if r.DeliveredAt != nil {
				delivered++
			}
		}
		assert.Equal(t, 3, delivered)
	})

	t.Run("user deliveries", func(t *testing.T) {
		rows, err := repo.UserDeliveries(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, finances.ID, rows[0].UserID)
		assert.Equal(t, "Alice", rows[0].Name)
		assert.EqualValues(t, 2, rows[0].DeliveredOrders)
		assert.EqualValues(t, 4, rows[0].DeliveredItems)
		assert.Equal(t, "430000", rows[0].DeliveredAmount.String())

		assert.Equal(t, systems.ID, rows[1].UserID)
		assert.EqualValues(t, 1, rows[1].DeliveredItems)
	})
}
