package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/profile"
)

// =============================================================================
// PDF ACKNOWLEDGEMENT FORM
// =============================================================================
//
// A4 portrait, top to bottom:
//   title (centered)
//   date, recipient, phone
//   "Dear <name>," + profile body
//   item table: Item | Qty | Unit Price (Rs) | Total (Rs), then the four
//   totals rows right-aligned under the last two columns
//   signature blocks: organization / issuer name / role on the left,
//   recipient "Name & Signature" on the right
//   profile note

const (
	pageMargin = 12.7
	lineHeight = 6.0
)

var columnWidths = [4]float64{88, 22, 37, 37}

// PDFRenderer implements billing.DocumentRenderer for the acknowledgement form.
type PDFRenderer struct {
	Profile *profile.Profile
}

func NewPDFRenderer(p *profile.Profile) *PDFRenderer {
	return &PDFRenderer{Profile: p}
}

func (r *PDFRenderer) Render(w io.Writer, inv billing.Invoice) error {
	p := r.Profile
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle(p.Title, true)
	pdf.SetCreator(p.Organization, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pageMargin

	// Title
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentWidth, 10, tr(p.Title), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// Header block
	pdf.SetFont("Helvetica", "", 10)
	line := func(text string) {
		pdf.CellFormat(contentWidth, lineHeight, tr(text), "", 1, "L", false, 0, "")
	}
	line("Invoice No: " + inv.Number)
	line("Date: " + inv.DateText())
	line("Recipient: " + inv.Recipient.Name)
	if p.RequirePhone || inv.Recipient.Phone != "" {
		line("Phone Number: " + inv.Recipient.Phone)
	}
	pdf.Ln(3)

	// Body
	name := inv.Recipient.Name
	if name == "" {
		name = "<Name>"
	}
	line("Dear " + name + ",")
	pdf.Ln(2)
	pdf.MultiCell(contentWidth, lineHeight, tr(p.Body), "", "L", false)
	pdf.Ln(3)

	r.itemTable(pdf, tr, inv)
	pdf.Ln(8)
	r.signatures(pdf, tr, inv, contentWidth)

	if p.Note != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentWidth, 5, tr(p.Note), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func (r *PDFRenderer) itemTable(pdf *gofpdf.Fpdf, tr func(string) string, inv billing.Invoice) {
	currency := r.Profile.Currency
	header := []string{"Item", "Qty", fmt.Sprintf("Unit Price (%s)", currency), fmt.Sprintf("Total (%s)", currency)}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(211, 211, 211)
	pdf.SetDrawColor(128, 128, 128)
	for i, h := range header {
		pdf.CellFormat(columnWidths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range inv.Items {
		pdf.CellFormat(columnWidths[0], 7, tr(item.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(columnWidths[1], 7, billing.FormatQuantity(item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(columnWidths[2], 7, item.UnitPrice.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(columnWidths[3], 7, item.Total().String(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	labelWidth := columnWidths[0] + columnWidths[1] + columnWidths[2]
	rows := summaryRows(inv, " ("+currency+"):")
	for i, row := range rows {
		style := ""
		if i == len(rows)-1 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelWidth, 7, tr(row[0]), "", 0, "R", false, 0, "")
		pdf.CellFormat(columnWidths[3], 7, row[1], "", 1, "R", false, 0, "")
	}
}

func (r *PDFRenderer) signatures(pdf *gofpdf.Fpdf, tr func(string) string, inv billing.Invoice, width float64) {
	half := width / 2
	recipient := inv.Recipient.Name
	if recipient == "" {
		recipient = "Recipient"
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, lineHeight, tr(inv.Issuer.Organization), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, lineHeight, tr(recipient), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(half, lineHeight, tr(inv.Issuer.Name), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, lineHeight, "Name & Signature", "", 1, "R", false, 0, "")
	pdf.CellFormat(half, lineHeight, tr(inv.Issuer.Role), "", 1, "L", false, 0, "")
}
