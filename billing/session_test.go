package billing_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
)

// sequence hands out "1", "2", ...
type sequence struct{ n int }

func (s *sequence) Next(context.Context) (string, error) {
	s.n++
	return fmt.Sprint(s.n), nil
}

func testDefaults() billing.Defaults {
	return billing.Defaults{
		TaxPct: billing.DefaultTaxPct,
		Issuer: billing.Issuer{Organization: "IEEE SB GCEK", Role: "Chairperson"},
	}
}

func newTestSession(t *testing.T) *billing.Session {
	t.Helper()
	s, err := billing.NewSession(context.Background(), &sequence{}, testDefaults(), billing.WithClock(fixedClock))
	require.NoError(t, err)
	return s
}

func TestSession_StartsWithNumberDateAndDefaults(t *testing.T) {
	s := newTestSession(t)

	inv := s.Invoice()
	assert.Equal(t, "1", inv.Number)
	assert.Equal(t, "2025-03-10 09:30:05", inv.DateText())
	assert.Equal(t, "18", billing.FormatPercent(inv.TaxPct))
	assert.True(t, inv.DiscountPct.IsZero())
	assert.Equal(t, "IEEE SB GCEK", inv.Issuer.Organization)
	assert.False(t, s.Finalized())
}

func TestSession_TotalsRecomputedOnEveryChange(t *testing.T) {
	// GIVEN: A session with a subscriber
	// WHEN: Adding items and changing the discount
	// THEN: Totals are current after each call and the subscriber sees each change

	s := newTestSession(t)
	var seen []string
	s.Subscribe(func(tot billing.Totals) { seen = append(seen, tot.GrandTotal.String()) })

	_, err := s.AddItem("Speaker", "2", "250")
	require.NoError(t, err)
	_, err = s.AddItem("Cable", 5, 20.0)
	require.NoError(t, err)
	require.NoError(t, s.SetDiscount("10"))

	assert.Equal(t, "637.20", s.Totals().GrandTotal.String())
	assert.Equal(t, []string{"590.00", "708.00", "637.20"}, seen)

	_, err = s.RemoveItem(1)
	require.NoError(t, err)
	assert.Equal(t, "531.00", s.Totals().GrandTotal.String())
}

func TestSession_BadRateInputBecomesZero(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddItem("Mic", "1", "100")
	require.NoError(t, err)

	require.NoError(t, s.SetTax("eighteen"))
	require.NoError(t, s.SetDiscount("-4"))

	assert.Equal(t, "100.00", s.Totals().GrandTotal.String())
}

func TestSession_BadItemInputLeavesStateUnchanged(t *testing.T) {
	s := newTestSession(t)

	_, err := s.AddItem("Mic", "abc", "100")

	assert.ErrorIs(t, err, billing.ErrValidation)
	assert.Empty(t, s.Invoice().Items)
	assert.True(t, s.Totals().GrandTotal.IsZero())
}

func TestSession_RemovingOnlyItemZeroesTotals(t *testing.T) {
	// GIVEN: One item with discount and tax applied
	// WHEN: Removing it by position
	// THEN: Every total is back to 0.00

	s := newTestSession(t)
	_, err := s.AddItem("Mic", "3", "99.99")
	require.NoError(t, err)
	require.NoError(t, s.SetDiscount("10"))
	require.False(t, s.Totals().GrandTotal.IsZero())

	_, err = s.RemoveItem(0)
	require.NoError(t, err)

	tot := s.Totals()
	assert.Empty(t, s.Invoice().Items)
	for _, m := range []billing.Money{tot.Subtotal, tot.DiscountAmount, tot.Taxable, tot.TaxAmount, tot.GrandTotal} {
		assert.Equal(t, "0.00", m.String())
	}
}

func TestSession_InvalidAddOnFilledDraftChangesNothing(t *testing.T) {
	// GIVEN: A draft with two items and a discount
	// WHEN: Adding an item with quantity 0
	// THEN: Validation error; items and totals are exactly as before

	s := newTestSession(t)
	_, err := s.AddItem("Speaker", "2", "250")
	require.NoError(t, err)
	_, err = s.AddItem("Cable", "5", "20")
	require.NoError(t, err)
	require.NoError(t, s.SetDiscount("10"))
	before := s.Invoice()

	_, err = s.AddItem("Mic", 0, "100")

	var vErr *billing.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "quantity", vErr.Field)

	after := s.Invoice()
	require.Len(t, after.Items, 2)
	assert.Equal(t, before.Items[1].Name, after.Items[1].Name)
	assert.Equal(t, before.Totals.Subtotal.String(), after.Totals.Subtotal.String())
	assert.Equal(t, before.Totals.TaxAmount.String(), after.Totals.TaxAmount.String())
	assert.Equal(t, "637.20", after.Totals.GrandTotal.String())
}

func TestSession_SetIssuerKeepsOrganization(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.SetIssuer(" Ravi ", "Vice Chair"))

	issuer := s.Invoice().Issuer
	assert.Equal(t, "Ravi", issuer.Name)
	assert.Equal(t, "Vice Chair", issuer.Role)
	assert.Equal(t, "IEEE SB GCEK", issuer.Organization)
}

func TestSession_ResetStartsNewInvoice(t *testing.T) {
	// GIVEN: A draft with items, recipient, custom rates and issuer
	// WHEN: Resetting
	// THEN: New number, items and recipient cleared, default rates and role,
	//       issuer name kept

	s := newTestSession(t)
	ctx := context.Background()
	_, err := s.AddItem("Mic", "1", "100")
	require.NoError(t, err)
	require.NoError(t, s.SetRecipient(billing.Recipient{Name: "Asha", Phone: "98470"}))
	require.NoError(t, s.SetDiscount("15"))
	require.NoError(t, s.SetTax("5"))
	require.NoError(t, s.SetIssuer("Ravi", "Treasurer"))

	require.NoError(t, s.Reset(ctx))

	inv := s.Invoice()
	assert.Equal(t, "2", inv.Number)
	assert.Empty(t, inv.Items)
	assert.Equal(t, billing.Recipient{}, inv.Recipient)
	assert.True(t, inv.DiscountPct.IsZero())
	assert.True(t, inv.TaxPct.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, "Ravi", inv.Issuer.Name)
	assert.Equal(t, "Chairperson", inv.Issuer.Role)
	assert.True(t, s.Totals().GrandTotal.IsZero())
}

func TestSession_InvoiceIsSnapshot(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddItem("Mic", "1", "100")
	require.NoError(t, err)

	snap := s.Invoice()
	_, err = s.AddItem("Cable", "1", "5")
	require.NoError(t, err)

	assert.Len(t, snap.Items, 1)
	assert.Equal(t, "118.00", snap.Totals.GrandTotal.String())
}
