/*
Package export renders invoices and the ledger into files people open.

PURPOSE:
  Per-invoice documents (CSV record, PDF acknowledgement form) and the
  spreadsheet projection of the whole history. Everything here is
  presentation: totals come from billing.Invoice.Totals and are never
  recomputed.

DOCUMENTS:
  RecordRenderer: invoice_<number>.csv
  PDFRenderer:    invoice_<number>.pdf
  WriteHistoryXLSX: invoice_history_YYYYMMDD.xlsx

SEE ALSO:
  - billing/finalize.go: DocumentRenderer, where these are called
*/
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// PER-INVOICE CSV RECORD
// =============================================================================
//
// Layout:
//   Invoice No,<number>
//   Date,<date>
//   Recipient,<name>
//   Phone Number,<phone>
//   <blank>
//   Item,Qty,Unit Price,Total
//   <one row per item>
//   <blank>
//   Subtotal,<amount>
//   Discount (N%),<amount>
//   Tax (N%),<amount>
//   Grand Total,<amount>

// RecordRenderer implements billing.DocumentRenderer for the CSV record.
type RecordRenderer struct{}

func (RecordRenderer) Render(w io.Writer, inv billing.Invoice) error {
	return WriteRecord(w, inv)
}

// WriteRecord writes the single-invoice CSV record.
func WriteRecord(w io.Writer, inv billing.Invoice) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"Invoice No", inv.Number},
		{"Date", inv.DateText()},
		{"Recipient", inv.Recipient.Name},
		{"Phone Number", inv.Recipient.Phone},
		{},
		{"Item", "Qty", "Unit Price", "Total"},
	}
	for _, item := range inv.Items {
		rows = append(rows, []string{
			item.Name,
			billing.FormatQuantity(item.Quantity),
			item.UnitPrice.String(),
			item.Total().String(),
		})
	}
	rows = append(rows, []string{})
	rows = append(rows, summaryRows(inv, "")...)

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write invoice record: %w", err)
	}
	return nil
}

// summaryRows returns the four totals rows. suffix is appended to each
// label, e.g. " (Rs):" on the PDF.
func summaryRows(inv billing.Invoice, suffix string) [][]string {
	t := inv.Totals
	return [][]string{
		{"Subtotal" + suffix, t.Subtotal.Format()},
		{fmt.Sprintf("Discount (%s%%)", billing.FormatPercent(inv.DiscountPct)) + suffix, t.DiscountAmount.Format()},
		{fmt.Sprintf("Tax (%s%%)", billing.FormatPercent(inv.TaxPct)) + suffix, t.TaxAmount.Format()},
		{"Grand Total" + suffix, t.GrandTotal.Format()},
	}
}
