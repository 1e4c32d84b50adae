package billing

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INVOICE - Snapshot of a session, consumed by documents and the ledger
// =============================================================================

// Recipient is the person the invoice is issued to.
type Recipient struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Issuer is the signing side of the invoice. Organization comes from the
// branding profile; Name and Role are editable.
type Issuer struct {
	Organization string `json:"organization"`
	Name         string `json:"name"`
	Role         string `json:"role"`
}

// Invoice is a value snapshot. Totals are computed once by the session and
// carried along; documents must not recompute them.
type Invoice struct {
	Number      string          `json:"invoice_no"`
	Date        time.Time       `json:"date"`
	Recipient   Recipient       `json:"recipient"`
	Issuer      Issuer          `json:"issuer"`
	Items       []LineItem      `json:"items"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	TaxPct      decimal.Decimal `json:"tax_pct"`
	Totals      Totals          `json:"totals"`
}

func (inv Invoice) DateText() string { return FormatDate(inv.Date) }

// FileName is the suggested document name, e.g. "invoice_42.pdf".
func (inv Invoice) FileName(ext string) string {
	return filepath.Base("invoice_" + inv.Number + "." + ext)
}

// Validate checks the preconditions for finalizing: at least one item, a
// recipient name, and a phone number when the profile requires one.
func (inv Invoice) Validate(requirePhone bool) error {
	if len(inv.Items) == 0 {
		return &ValidationError{Field: "items", Message: "add at least one item before finalizing"}
	}
	if strings.TrimSpace(inv.Recipient.Name) == "" {
		return &ValidationError{Field: "recipient.name", Message: "recipient name is required"}
	}
	if requirePhone && strings.TrimSpace(inv.Recipient.Phone) == "" {
		return &ValidationError{Field: "recipient.phone", Message: "phone number is required"}
	}
	return nil
}

// Record projects the invoice onto its ledger row.
func (inv Invoice) Record() LedgerRecord {
	return LedgerRecord{
		InvoiceNo:      inv.Number,
		Date:           inv.DateText(),
		Recipient:      inv.Recipient.Name,
		Phone:          inv.Recipient.Phone,
		ItemCount:      len(inv.Items),
		Subtotal:       inv.Totals.Subtotal,
		DiscountPct:    inv.DiscountPct,
		DiscountAmount: inv.Totals.DiscountAmount,
		TaxPct:         inv.TaxPct,
		TaxAmount:      inv.Totals.TaxAmount,
		GrandTotal:     inv.Totals.GrandTotal,
		IssuerName:     inv.Issuer.Name,
		IssuerRole:     inv.Issuer.Role,
	}
}
