/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the billing model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

NUMBERS:
  Amounts are strings with exactly 2 decimals ("637.20"). Request fields
  that carry numbers (quantity, unit_price, discount_pct, tax_pct) accept a
  JSON number or a string; unparsable values become 0, the same as the
  desktop form.

VALIDATION:
  Done by the billing package, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// INVOICE
// =============================================================================

// InvoiceDTO is the draft (or finalized) invoice with its totals.
type InvoiceDTO struct {
	InvoiceNo   string            `json:"invoice_no"`
	Date        string            `json:"date"`
	Recipient   billing.Recipient `json:"recipient"`
	Issuer      billing.Issuer    `json:"issuer"`
	Items       []ItemDTO         `json:"items"`
	DiscountPct string            `json:"discount_pct"`
	TaxPct      string            `json:"tax_pct"`
	Totals      billing.Totals    `json:"totals"`
	Finalized   bool              `json:"finalized"`
}

// ItemDTO is one line item. Position is what DELETE /items/{position} takes.
type ItemDTO struct {
	Position  int           `json:"position"`
	Name      string        `json:"name"`
	Quantity  string        `json:"quantity"`
	UnitPrice billing.Money `json:"unit_price"`
	Total     billing.Money `json:"total"`
}

// AddItemRequest adds a line item.
type AddItemRequest struct {
	Name      string `json:"name"`
	Quantity  any    `json:"quantity"`
	UnitPrice any    `json:"unit_price"`
}

// RecipientRequest sets who the invoice is for.
type RecipientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// IssuerRequest sets who signs.
type IssuerRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// RatesRequest sets discount and/or tax. Omitted fields are left alone.
type RatesRequest struct {
	DiscountPct any `json:"discount_pct"`
	TaxPct      any `json:"tax_pct"`
}

// FinalizeRequest picks the documents to write. Empty means CSV only.
type FinalizeRequest struct {
	Formats []string `json:"formats"`
}

// FinalizeResponse reports what was written.
type FinalizeResponse struct {
	Cancelled bool                  `json:"cancelled"`
	Files     map[string]string     `json:"files,omitempty"`
	Record    *billing.LedgerRecord `json:"record,omitempty"`
	Invoice   InvoiceDTO            `json:"invoice"`
}

// =============================================================================
// LEDGER
// =============================================================================

// LedgerResponse lists the history, oldest first.
type LedgerResponse struct {
	Count   int                    `json:"count"`
	Records []billing.LedgerRecord `json:"records"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toInvoiceDTO(inv billing.Invoice, finalized bool) InvoiceDTO {
	items := make([]ItemDTO, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = ItemDTO{
			Position:  i,
			Name:      it.Name,
			Quantity:  billing.FormatQuantity(it.Quantity),
			UnitPrice: it.UnitPrice,
			Total:     it.Total(),
		}
	}
	return InvoiceDTO{
		InvoiceNo:   inv.Number,
		Date:        inv.DateText(),
		Recipient:   inv.Recipient,
		Issuer:      inv.Issuer,
		Items:       items,
		DiscountPct: billing.FormatPercent(inv.DiscountPct),
		TaxPct:      billing.FormatPercent(inv.TaxPct),
		Totals:      inv.Totals,
		Finalized:   finalized,
	}
}
