package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/example/foodonbus/pkg/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSameItemTwiceKeepsSeparateLines(t *testing.T) {
	c := New(catalog.Default())

	_, err := c.Add("m1", 2)
	require.NoError(t, err)
	_, err = c.Add("m1", 3)
	require.NoError(t, err)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 3, lines[1].Quantity)
	assert.Equal(t, "Veg Biryani", lines[1].Name)
	assert.True(t, decimal.NewFromInt(600).Equal(c.Subtotal()))
}

func TestAddUnknownItem(t *testing.T) {
	c := New(catalog.Default())

	_, err := c.Add("m42", 1)
	assert.True(t, errors.Is(err, ErrUnknownItem))
	assert.True(t, c.IsEmpty())
}

func TestSubtotalAndClear(t *testing.T) {
	c := New(catalog.Default())
	assert.True(t, decimal.Zero.Equal(c.Subtotal()))

	_, _ = c.Add("m4", 1)
	_, _ = c.Add("m6", 2)
	assert.Equal(t, 2, c.Len())
	assert.True(t, decimal.NewFromInt(150).Equal(c.Subtotal()))

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, decimal.Zero.Equal(c.Subtotal()))
}

func TestLinesReturnsCopy(t *testing.T) {
	c := New(catalog.Default())
	_, _ = c.Add("m2", 1)

	lines := c.Lines()
	lines[0].Quantity = 9
	assert.Equal(t, 1, c.Lines()[0].Quantity)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	cat := catalog.Default()
	s := NewMemoryStore(cat)

	c, err := s.Load(ctx, "seat-12A")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, _ = c.Add("m3", 2)
	require.NoError(t, s.Save(ctx, "seat-12A", c))

	// mutating the caller's cart after Save does not leak into the store
	_, _ = c.Add("m5", 1)

	loaded, err := s.Load(ctx, "seat-12A")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.Equal(t, "m3", loaded.Lines()[0].ItemID)

	other, err := s.Load(ctx, "seat-7B")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())

	require.NoError(t, s.Delete(ctx, "seat-12A"))
	loaded, err = s.Load(ctx, "seat-12A")
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}
