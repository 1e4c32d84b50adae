/*
ledger.go - Append-only history of finalized invoices

PURPOSE:
  The Ledger is the durable record of every invoice that was finalized.
  One row per invoice, written once, never rewritten. It also answers the
  reporting questions: list everything, what was the last number, what are
  the running totals.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. ORDERED: ReadAll returns rows in the order they were appended
  3. TEXT-STABLE: a record written and read back renders the same row

ROW FORMAT:
  Fixed 13-column header (LedgerHeader). Money is written with thousands
  separators and 2 decimals, rates without trailing zeros, the date as
  "2006-01-02 15:04:05". Files written by the original desktop tool used
  "Chairperson" / "Chair Position" for the issuer columns; both spellings
  are read.

CORRECTIONS:
  There are none. A wrong invoice stays in the history; a new invoice is
  issued instead.

SEE ALSO:
  - store.go: Low-level persistence interface
  - numbering.go: Derives the next invoice number from Last()
*/
package billing

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER RECORD - One row per finalized invoice
// =============================================================================

// LedgerHeader names the ledger columns in file order.
var LedgerHeader = []string{
	"Invoice No", "Date", "Recipient", "Phone Number",
	"Items Count", "Subtotal", "Discount %", "Discount Amount",
	"Tax %", "Tax Amount", "Grand Total", "Issuer Name", "Issuer Role",
}

var headerAliases = map[string]string{
	"Chairperson":    "Issuer Name",
	"Vice President": "Issuer Name",
	"Chair Position": "Issuer Role",
}

// LedgerRecord is the summary of one finalized invoice.
type LedgerRecord struct {
	InvoiceNo      string          `json:"invoice_no"`
	Date           string          `json:"date"`
	Recipient      string          `json:"recipient"`
	Phone          string          `json:"phone"`
	ItemCount      int             `json:"item_count"`
	Subtotal       Money           `json:"subtotal"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	DiscountAmount Money           `json:"discount_amount"`
	TaxPct         decimal.Decimal `json:"tax_pct"`
	TaxAmount      Money           `json:"tax_amount"`
	GrandTotal     Money           `json:"grand_total"`
	IssuerName     string          `json:"issuer_name"`
	IssuerRole     string          `json:"issuer_role"`
}

// Row renders the record in LedgerHeader order.
func (r LedgerRecord) Row() []string {
	return []string{
		r.InvoiceNo,
		r.Date,
		r.Recipient,
		r.Phone,
		strconv.Itoa(r.ItemCount),
		r.Subtotal.Format(),
		FormatPercent(r.DiscountPct),
		r.DiscountAmount.Format(),
		FormatPercent(r.TaxPct),
		r.TaxAmount.Format(),
		r.GrandTotal.Format(),
		r.IssuerName,
		r.IssuerRole,
	}
}

// RecordFromFields builds a record from column name -> text. Missing
// columns read as empty text, missing numbers as zero.
func RecordFromFields(fields map[string]string) LedgerRecord {
	get := func(name string) string { return strings.TrimSpace(fields[name]) }
	count, _ := strconv.Atoi(get("Items Count"))

	return LedgerRecord{
		InvoiceNo:      get("Invoice No"),
		Date:           get("Date"),
		Recipient:      get("Recipient"),
		Phone:          get("Phone Number"),
		ItemCount:      count,
		Subtotal:       ParseFormatted(get("Subtotal")),
		DiscountPct:    ParsePercent(get("Discount %")),
		DiscountAmount: ParseFormatted(get("Discount Amount")),
		TaxPct:         ParsePercent(get("Tax %")),
		TaxAmount:      ParseFormatted(get("Tax Amount")),
		GrandTotal:     ParseFormatted(get("Grand Total")),
		IssuerName:     get("Issuer Name"),
		IssuerRole:     get("Issuer Role"),
	}
}

// RecordFromRow pairs a row with its header and builds a record. Extra
// values without a header are ignored; short rows leave fields empty.
func RecordFromRow(header, row []string) LedgerRecord {
	fields := make(map[string]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		if i < len(row) {
			fields[name] = row[i]
		}
	}
	return RecordFromFields(fields)
}

// =============================================================================
// LEDGER - Store plus reporting
// =============================================================================

// Ledger is the source of truth for finalized invoices.
//
// INVARIANTS:
//   - Append-only: No Update, No Delete. EVER.
//   - Records come back in append order.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

func NewLedger(store Store, opts ...Option) *Ledger {
	o := applyOptions(opts)
	return &Ledger{store: store, logger: o.logger}
}

// Append writes one record. The invoice number must be present; nothing
// else is checked, duplicates included.
func (l *Ledger) Append(ctx context.Context, rec LedgerRecord) error {
	if strings.TrimSpace(rec.InvoiceNo) == "" {
		return &ValidationError{Field: "invoice_no", Message: "ledger record has no invoice number"}
	}
	if err := l.store.Append(ctx, rec); err != nil {
		return err
	}
	l.logger.Info("ledger record appended",
		"invoice_no", rec.InvoiceNo,
		"grand_total", rec.GrandTotal.String(),
	)
	return nil
}

// Records returns the whole history in append order. Read-only.
func (l *Ledger) Records(ctx context.Context) ([]LedgerRecord, error) {
	return l.store.ReadAll(ctx)
}

// Last returns the most recently appended record, if any.
func (l *Ledger) Last(ctx context.Context) (LedgerRecord, bool, error) {
	records, err := l.store.ReadAll(ctx)
	if err != nil || len(records) == 0 {
		return LedgerRecord{}, false, err
	}
	return records[len(records)-1], true, nil
}

// Summary aggregates the history.
type Summary struct {
	Count          int    `json:"count"`
	Subtotal       Money  `json:"subtotal"`
	DiscountAmount Money  `json:"discount_amount"`
	TaxAmount      Money  `json:"tax_amount"`
	GrandTotal     Money  `json:"grand_total"`
	FirstInvoice   string `json:"first_invoice,omitempty"`
	LastInvoice    string `json:"last_invoice,omitempty"`
}

// Summarize sums the monetary columns of records.
func Summarize(records []LedgerRecord) Summary {
	s := Summary{Count: len(records)}
	for _, r := range records {
		s.Subtotal = s.Subtotal.Add(r.Subtotal)
		s.DiscountAmount = s.DiscountAmount.Add(r.DiscountAmount)
		s.TaxAmount = s.TaxAmount.Add(r.TaxAmount)
		s.GrandTotal = s.GrandTotal.Add(r.GrandTotal)
	}
	if len(records) > 0 {
		s.FirstInvoice = records[0].InvoiceNo
		s.LastInvoice = records[len(records)-1].InvoiceNo
	}
	return s
}

// Summary reads the history and aggregates it.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	records, err := l.store.ReadAll(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(records), nil
}
