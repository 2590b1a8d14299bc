package catalog

import (
	"strings"
	"testing"

	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T) *Product {
	t.Helper()
	p, err := NewProduct("pc-001", "Ordinateur portable", decimal.NewFromInt(850000))
	require.NoError(t, err)
	return p
}

func TestNewProduct(t *testing.T) {
	t.Run("creates active product", func(t *testing.T) {
		p := newTestProduct(t)

		assert.Equal(t, "PC-001", p.Reference)
		assert.Equal(t, "Ordinateur portable", p.Name)
		assert.True(t, p.Active)
		assert.Equal(t, 0, p.Stock)
		assert.Equal(t, 1, p.GetVersion())
		assert.NotEqual(t, uuid.Nil, p.ID)
	})

	t.Run("publishes ProductCreated event", func(t *testing.T) {
		p := newTestProduct(t)

		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeProductCreated, events[0].EventType())
		assert.Equal(t, p.ID, events[0].AggregateID())
	})

	tests := []struct {
		name      string
		reference string
		prodName  string
		price     decimal.Decimal
		code      string
	}{
		{"empty reference", "", "Ecran", decimal.Zero, "INVALID_REFERENCE"},
		{"reference with spaces", "PC 01", "Ecran", decimal.Zero, "INVALID_REFERENCE"},
		{"too long reference", strings.Repeat("A", 51), "Ecran", decimal.Zero, "INVALID_REFERENCE"},
		{"empty name", "SCR-1", "  ", decimal.Zero, "INVALID_NAME"},
		{"negative price", "SCR-1", "Ecran", decimal.NewFromInt(-1), "INVALID_PRICE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProduct(tt.reference, tt.prodName, tt.price)
			require.Error(t, err)
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestProduct_Stock(t *testing.T) {
	t.Run("set stock emits event only on change", func(t *testing.T) {
		p := newTestProduct(t)
		p.ClearDomainEvents()

		require.NoError(t, p.SetStock(10))
		require.NoError(t, p.SetStock(10))

		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		ev, ok := events[0].(*ProductStockChangedEvent)
		require.True(t, ok)
		assert.Equal(t, 0, ev.OldStock)
		assert.Equal(t, 10, ev.NewStock)
	})

	t.Run("negative stock is rejected", func(t *testing.T) {
		p := newTestProduct(t)
		assert.Error(t, p.SetStock(-1))
	})
}

func TestProduct_CanOrder(t *testing.T) {
	p := newTestProduct(t)
	require.NoError(t, p.SetStock(3))

	assert.True(t, p.CanOrder(3))
	assert.False(t, p.CanOrder(4))
	assert.False(t, p.CanOrder(0))

	require.NoError(t, p.Deactivate())
	assert.False(t, p.CanOrder(1))
}

func TestProduct_ActivateDeactivate(t *testing.T) {
	p := newTestProduct(t)

	assert.Error(t, p.Activate())
	require.NoError(t, p.Deactivate())
	assert.False(t, p.Active)
	assert.Error(t, p.Deactivate())
	require.NoError(t, p.Activate())
	assert.True(t, p.Active)
}

func TestProduct_IsLowStock(t *testing.T) {
	p := newTestProduct(t)
	require.NoError(t, p.SetStock(5))

	assert.True(t, p.IsLowStock(5))
	assert.False(t, p.IsLowStock(4))
}

func TestProduct_UpdateBumpsVersion(t *testing.T) {
	p := newTestProduct(t)

	require.NoError(t, p.Update("Portable 14 pouces", "Core i5"))
	assert.Equal(t, 2, p.GetVersion())
	assert.Equal(t, "Core i5", p.Description)

	assert.Error(t, p.Update("", ""))
}
