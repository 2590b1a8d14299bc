package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_Add(t *testing.T) {
	userID := uuid.New()
	productA := uuid.New()
	productB := uuid.New()

	t.Run("merges quantities of the same product", func(t *testing.T) {
		c := New(userID)
		require.NoError(t, c.Add(productA, 2))
		require.NoError(t, c.Add(productB, 1))
		require.NoError(t, c.Add(productA, 3))

		require.Len(t, c.Lines, 2)
		assert.Equal(t, 5, c.Lines[0].Quantity)
		assert.Equal(t, 6, c.TotalQuantity())
		assert.Equal(t, []uuid.UUID{productA, productB}, c.ProductIDs())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		c := New(userID)
		assert.Error(t, c.Add(uuid.Nil, 1))
		assert.Error(t, c.Add(productA, 0))
		assert.Error(t, c.Add(productA, MaxLineQuantity+1))

		require.NoError(t, c.Add(productA, MaxLineQuantity))
		assert.Error(t, c.Add(productA, 1))
	})
}

func TestCart_SetQuantity(t *testing.T) {
	c := New(uuid.New())
	productID := uuid.New()
	require.NoError(t, c.Add(productID, 2))

	require.NoError(t, c.SetQuantity(productID, 7))
	assert.Equal(t, 7, c.Lines[0].Quantity)

	require.NoError(t, c.SetQuantity(productID, 0))
	assert.True(t, c.IsEmpty())

	assert.Error(t, c.SetQuantity(productID, 1))
	assert.Error(t, c.SetQuantity(productID, -1))
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := New(uuid.New())
	a, b := uuid.New(), uuid.New()
	require.NoError(t, c.Add(a, 1))
	require.NoError(t, c.Add(b, 1))

	require.NoError(t, c.Remove(a))
	assert.Equal(t, []uuid.UUID{b}, c.ProductIDs())
	assert.Error(t, c.Remove(a))

	c.Clear()
	assert.True(t, c.IsEmpty())
}
