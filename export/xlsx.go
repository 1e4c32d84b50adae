package export

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/warp/billing-engine/billing"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// HISTORY WORKBOOK
// =============================================================================
//
// One sheet, header row identical to the ledger header, one row per record
// in ledger order. Counts, rates and amounts are numeric cells; amounts
// carry the "#,##0.00" format. Column width is the longest displayed cell
// + 2, capped at 50. Read-only projection: nothing here writes back to the
// ledger.

const (
	HistorySheet   = "Invoice History"
	maxColumnWidth = 50

	// builtin "#,##0.00"
	amountNumFmt = 4
)

// amountColumns are the 1-based ledger columns holding money.
var amountColumns = []int{6, 8, 10, 11}

// historyValues is the typed cell row for rec. Invoice numbers stay text so
// long timestamp identifiers are not shown in scientific notation.
func historyValues(rec billing.LedgerRecord) []any {
	return []any{
		rec.InvoiceNo,
		rec.Date,
		rec.Recipient,
		rec.Phone,
		rec.ItemCount,
		rec.Subtotal.Decimal().InexactFloat64(),
		rec.DiscountPct.InexactFloat64(),
		rec.DiscountAmount.Decimal().InexactFloat64(),
		rec.TaxPct.InexactFloat64(),
		rec.TaxAmount.Decimal().InexactFloat64(),
		rec.GrandTotal.Decimal().InexactFloat64(),
		rec.IssuerName,
		rec.IssuerRole,
	}
}

// HistoryFileName is the suggested name for an export made at now.
func HistoryFileName(now time.Time) string {
	return "invoice_history_" + now.Format("20060102") + ".xlsx"
}

// WriteHistoryXLSX writes records as a workbook. An empty history is
// billing.ErrNoHistory.
func WriteHistoryXLSX(w io.Writer, records []billing.LedgerRecord) error {
	if len(records) == 0 {
		return billing.ErrNoHistory
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", HistorySheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	widths := make([]int, len(billing.LedgerHeader))
	measure := func(row []string) {
		for j, v := range row {
			if n := utf8.RuneCountInString(v); j < len(widths) && n > widths[j] {
				widths[j] = n
			}
		}
	}

	header := make([]any, len(billing.LedgerHeader))
	for j, v := range billing.LedgerHeader {
		header[j] = v
	}
	measure(billing.LedgerHeader)
	if err := f.SetSheetRow(HistorySheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := historyValues(rec)
		measure(rec.Row())
		if err := f.SetSheetRow(HistorySheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})
	if err != nil {
		return err
	}
	for _, col := range amountColumns {
		top, err := excelize.CoordinatesToCellName(col, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(col, len(records)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(HistorySheet, top, bottom, amount); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(billing.LedgerHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(HistorySheet, "A1", last+"1", bold); err != nil {
		return err
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(HistorySheet, col, col, float64(min(width+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("size column %s: %w", col, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
