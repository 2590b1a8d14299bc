package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategory(t *testing.T) {
	t.Run("trims the name", func(t *testing.T) {
		c, err := NewCategory("  Informatique ", "Postes et périphériques")
		require.NoError(t, err)
		assert.Equal(t, "Informatique", c.Name)
	})

	t.Run("rejects empty and long names", func(t *testing.T) {
		_, err := NewCategory("", "")
		assert.Error(t, err)
		_, err = NewCategory(strings.Repeat("x", 101), "")
		assert.Error(t, err)
	})
}

func TestCategory_Update(t *testing.T) {
	c, err := NewCategory("Bureautique", "")
	require.NoError(t, err)

	require.NoError(t, c.Update("Fournitures", "Papeterie"))
	assert.Equal(t, "Fournitures", c.Name)
	assert.Equal(t, 2, c.GetVersion())
}
