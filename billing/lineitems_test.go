package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
)

func TestLineItems_AddRejectsInvalidInput(t *testing.T) {
	// GIVEN: A collection with one valid item
	// WHEN: Adding items with empty name, zero quantity or negative price
	// THEN: Each add fails with ErrValidation and the collection is unchanged

	var items billing.LineItems
	_, err := items.Add("Speaker", decimal.NewFromInt(1), billing.Normalize("10"))
	require.NoError(t, err)

	cases := []struct {
		name  string
		field string
		qty   decimal.Decimal
		price billing.Money
	}{
		{"   ", "name", decimal.NewFromInt(1), billing.Normalize("1")},
		{"Cable", "quantity", decimal.Zero, billing.Normalize("1")},
		{"Cable", "quantity", decimal.NewFromInt(-2), billing.Normalize("1")},
		{"Cable", "unit_price", decimal.NewFromInt(1), billing.Normalize("-0.01")},
	}
	for _, tc := range cases {
		_, err := items.Add(tc.name, tc.qty, tc.price)

		require.Error(t, err)
		assert.ErrorIs(t, err, billing.ErrValidation)
		var vErr *billing.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, tc.field, vErr.Field)
		assert.True(t, billing.IsClientError(err))
	}
	assert.Equal(t, 1, items.Len())
}

func TestLineItems_ZeroPriceAllowed(t *testing.T) {
	var items billing.LineItems
	li, err := items.Add("  Free sticker ", decimal.NewFromInt(3), billing.Money{})

	require.NoError(t, err)
	assert.Equal(t, "Free sticker", li.Name)
	assert.True(t, li.Total().IsZero())
}

func TestLineItems_RemovePreservesOrder(t *testing.T) {
	// GIVEN: Items A, B, C
	// WHEN: Removing position 1
	// THEN: A and C remain, in that order

	var items billing.LineItems
	for _, name := range []string{"A", "B", "C"} {
		_, err := items.Add(name, decimal.NewFromInt(1), billing.Normalize("1"))
		require.NoError(t, err)
	}

	removed, err := items.Remove(1)
	require.NoError(t, err)

	assert.Equal(t, "B", removed.Name)
	got := items.Items()
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "C", got[1].Name)
}

func TestLineItems_RemoveOutOfRange(t *testing.T) {
	var items billing.LineItems
	_, err := items.Add("A", decimal.NewFromInt(1), billing.Normalize("1"))
	require.NoError(t, err)

	for _, pos := range []int{-1, 1, 5} {
		_, err := items.Remove(pos)
		assert.ErrorIs(t, err, billing.ErrNoSelection)
	}
	assert.Equal(t, 1, items.Len())
}

func TestLineItems_ItemsReturnsCopy(t *testing.T) {
	var items billing.LineItems
	_, err := items.Add("A", decimal.NewFromInt(1), billing.Normalize("1"))
	require.NoError(t, err)

	snapshot := items.Items()
	snapshot[0].Name = "changed"

	assert.Equal(t, "A", items.Items()[0].Name)
}

func TestLineItems_Clear(t *testing.T) {
	var items billing.LineItems
	_, _ = items.Add("A", decimal.NewFromInt(1), billing.Normalize("1"))
	items.Clear()
	assert.Equal(t, 0, items.Len())
}
