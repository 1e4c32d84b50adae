/*
calculator.go - Invoice totals

PURPOSE:
  Derives the totals block of an invoice from its items and the two rates.
  Pure function: same inputs, same Totals, no hidden state. The dataset is
  a handful of items typed by a person, so totals are recomputed from
  scratch on every change instead of being cached.

ORDER OF OPERATIONS (fixed):
  1. subtotal = sum of round(qty * price, 2) per item
  2. discount = round(subtotal * discount% / 100, 2)
  3. taxable  = round(subtotal - discount, 2)
  4. tax      = round(taxable * tax% / 100, 2)       <- post-discount base
  5. grand    = round(taxable + tax, 2)

  Tax is never computed on the raw subtotal.

EXAMPLE:
  Speaker 2 x 250.00, Cable 5 x 20.00, discount 10%, tax 18%
    subtotal 600.00, discount 60.00, taxable 540.00, tax 97.20, grand 637.20
*/
package billing

import "github.com/shopspring/decimal"

// Totals is the derived totals block of an invoice.
type Totals struct {
	Subtotal       Money `json:"subtotal"`
	DiscountAmount Money `json:"discount_amount"`
	Taxable        Money `json:"taxable"`
	TaxAmount      Money `json:"tax_amount"`
	GrandTotal     Money `json:"grand_total"`
}

// Calculate computes Totals. Negative rates are treated as zero.
func Calculate(items []LineItem, discountPct, taxPct decimal.Decimal) Totals {
	discountPct = clampRate(discountPct)
	taxPct = clampRate(taxPct)

	var subtotal Money
	for _, item := range items {
		subtotal = subtotal.Add(item.Total())
	}

	discount := subtotal.Percent(discountPct)
	taxable := subtotal.Sub(discount)
	tax := taxable.Percent(taxPct)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Taxable:        taxable,
		TaxAmount:      tax,
		GrandTotal:     taxable.Add(tax),
	}
}

func clampRate(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	return pct
}
