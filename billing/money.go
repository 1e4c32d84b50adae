/*
Package billing provides the invoice computation and ledger engine.

PURPOSE:
  This package owns every number that ends up on an invoice. Line items,
  discount and tax rates, totals, the invoice number and the append-only
  history of finalized invoices all live here. Presentation (CSV record,
  PDF form, spreadsheet) and transport (HTTP) sit on top of it.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: a decimal amount always held at exactly 2 fractional digits
  - Normalize: lenient conversion of user input into Money
  - ParsePercent / ParseQuantity: the same lenient rule for rates and counts

ROUNDING:
  Every stored or displayed amount satisfies value == round_half_up(value, 2).
  Half-up here means the halfway case rounds away from zero, which is what
  decimal.Decimal.Round does:

    Normalize("2.345")  -> 2.35
    Normalize("-2.345") -> -2.35

  Arithmetic runs at full precision and rounds once, when the result is
  stored back into a Money.

LENIENT PARSING:
  Unparsable numeric input becomes zero instead of an error. Callers that
  need hard validation (quantity > 0, price >= 0) check the coerced value.

SEE ALSO:
  - calculator.go: Totals derived from line items
  - lineitems.go: Validation rules applied after coercion
*/
package billing

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits carried by every Money.
const MoneyPlaces = 2

// =============================================================================
// MONEY - Fixed 2-digit decimal amount
// =============================================================================

// Money is a decimal amount normalized to MoneyPlaces fractional digits.
// The zero value is 0.00 and is ready to use.
type Money struct {
	value decimal.Decimal
}

// NewMoney rounds d half-up to 2 places.
func NewMoney(d decimal.Decimal) Money {
	return Money{value: d.Round(MoneyPlaces)}
}

// NewMoneyFromCents builds an amount from an integer count of minor units.
func NewMoneyFromCents(cents int64) Money {
	return Money{value: decimal.New(cents, -MoneyPlaces)}
}

// Normalize converts raw input to Money. Accepted inputs are strings, Go
// integer and float types, decimal.Decimal and Money. Anything that does not
// parse yields zero.
func Normalize(raw any) Money {
	d, ok := toDecimal(raw)
	if !ok {
		return Money{}
	}
	return NewMoney(d)
}

// ParseFormatted reads an amount written by Money.Format, ignoring the
// thousands separators. Used on the ledger read path.
func ParseFormatted(text string) Money {
	return Normalize(strings.ReplaceAll(text, ",", ""))
}

func (m Money) Decimal() decimal.Decimal { return m.value.Round(MoneyPlaces) }
func (m Money) Add(o Money) Money        { return NewMoney(m.value.Add(o.value)) }
func (m Money) Sub(o Money) Money        { return NewMoney(m.value.Sub(o.value)) }
func (m Money) IsZero() bool             { return m.value.IsZero() }
func (m Money) IsNegative() bool         { return m.value.IsNegative() }
func (m Money) IsPositive() bool         { return m.value.IsPositive() }
func (m Money) Cmp(o Money) int          { return m.value.Cmp(o.value) }
func (m Money) Equal(o Money) bool       { return m.value.Equal(o.value) }
func (m Money) LessThan(o Money) bool    { return m.value.LessThan(o.value) }

// Mul multiplies by an arbitrary decimal factor (a quantity, usually) and
// rounds the product.
func (m Money) Mul(factor decimal.Decimal) Money {
	return NewMoney(m.value.Mul(factor))
}

// Percent returns round_half_up(m * pct / 100, 2).
func (m Money) Percent(pct decimal.Decimal) Money {
	return NewMoney(m.value.Mul(pct).Shift(-2))
}

// String renders the amount with exactly 2 fractional digits and no grouping,
// e.g. "1234.50".
func (m Money) String() string {
	return m.value.StringFixed(MoneyPlaces)
}

// Format renders the amount with thousands separators and exactly 2
// fractional digits, e.g. "1,234.50".
func (m Money) Format() string {
	plain := m.value.Abs().StringFixed(MoneyPlaces)
	whole, frac := plain[:len(plain)-MoneyPlaces-1], plain[len(plain)-MoneyPlaces:]

	var b strings.Builder
	if m.value.Round(MoneyPlaces).IsNegative() {
		b.WriteByte('-')
	}
	for i := 0; i < len(whole); i++ {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(whole[i])
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// MarshalJSON encodes the amount as a fixed 2-digit string so no precision
// is lost on the client side.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a JSON string or number. Unparsable input becomes
// zero, same as Normalize.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = Normalize(s)
		return nil
	}
	*m = Normalize(string(data))
	return nil
}

// Sum adds amounts left to right.
func Sum(values ...Money) Money {
	var total Money
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// =============================================================================
// RATES AND QUANTITIES
// =============================================================================

// ParsePercent coerces raw input into a percentage rounded to 2 places.
// Negative or unparsable input yields zero.
func ParsePercent(raw any) decimal.Decimal {
	d, ok := toDecimal(raw)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(MoneyPlaces)
}

// ParseQuantity coerces raw input into a quantity rounded to 2 places.
// Unparsable input yields zero, which item validation then rejects.
func ParseQuantity(raw any) decimal.Decimal {
	d, ok := toDecimal(raw)
	if !ok {
		return decimal.Zero
	}
	return d.Round(MoneyPlaces)
}

// FormatPercent renders a rate without trailing zeros: 18 -> "18", 12.5 -> "12.5".
func FormatPercent(pct decimal.Decimal) string {
	return pct.String()
}

// FormatQuantity renders a quantity without trailing zeros.
func FormatQuantity(qty decimal.Decimal) string {
	return qty.String()
}

func toDecimal(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, false
	case Money:
		return v.value, true
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
