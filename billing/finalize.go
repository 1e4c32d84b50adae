/*
finalize.go - Turning a draft into documents and a ledger row

PURPOSE:
  Finalize is the one operation that leaves the process: it writes the
  per-invoice documents to a destination the user picks and appends the
  summary row to the ledger.

ORDER (each step either completes or nothing after it runs):
  1. Session must still be a draft
  2. Invoice must validate (items, recipient name, phone if required)
  3. Every requested format must have a renderer
  4. Destination chosen; cancellation ends here with nothing written
  5. Documents rendered and written (pending file, fsync, rename)
  6. Ledger row appended
  7. Session marked finalized

  If step 5 fails, files already written by this call are removed. If step
  6 fails, the documents stay on disk and the session stays a draft, so the
  user can retry.

CANCELLATION:
  Not an error. Finalize returns Outcome{Cancelled: true} and a nil error,
  and both the invoice and the ledger are exactly as before.

SEE ALSO:
  - export/record.go, export/pdf.go: DocumentRenderer implementations
  - session.go: markFinalized
*/
package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// Format names a per-invoice document type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts "csv" and "pdf" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatPDF:
		return f, nil
	default:
		return "", &ValidationError{Field: "format", Message: fmt.Sprintf("unknown document format %q", s)}
	}
}

// DocumentRenderer writes one invoice in one format. Renderers must use
// Invoice.Totals as given and never recompute.
type DocumentRenderer interface {
	Render(w io.Writer, inv Invoice) error
}

// Destination picks where documents go. Returning ErrCancelled (or an empty
// path) means the user backed out.
type Destination interface {
	Choose(ctx context.Context, suggested string) (string, error)
}

// DirectoryDestination always chooses the same directory.
type DirectoryDestination string

func (d DirectoryDestination) Choose(_ context.Context, _ string) (string, error) {
	if strings.TrimSpace(string(d)) == "" {
		return "", ErrCancelled
	}
	return string(d), nil
}

// Outcome reports what Finalize did.
type Outcome struct {
	Cancelled bool              `json:"cancelled"`
	Invoice   Invoice           `json:"invoice"`
	Files     map[Format]string `json:"files,omitempty"`
	Record    LedgerRecord      `json:"record"`
}

// =============================================================================
// FINALIZER
// =============================================================================

type Finalizer struct {
	Ledger       *Ledger
	Renderers    map[Format]DocumentRenderer
	RequirePhone bool
	Logger       *slog.Logger
}

func (f *Finalizer) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

func (f *Finalizer) renderer(format Format) (DocumentRenderer, error) {
	r, ok := f.Renderers[format]
	if !ok || r == nil {
		return nil, &ConfigError{
			Capability: string(format) + " documents",
			Guidance:   "enable the " + string(format) + " export in the configuration",
		}
	}
	return r, nil
}

// Render writes the current draft without finalizing it.
func (f *Finalizer) Render(w io.Writer, inv Invoice, format Format) error {
	r, err := f.renderer(format)
	if err != nil {
		return err
	}
	return r.Render(w, inv)
}

// Finalize writes the documents for formats (CSV when none are given) into
// the chosen destination and appends the ledger row.
func (f *Finalizer) Finalize(ctx context.Context, s *Session, dest Destination, formats ...Format) (Outcome, error) {
	if s.Finalized() {
		return Outcome{}, fmt.Errorf("invoice %s: %w", s.Number(), ErrInvoiceFinalized)
	}
	inv := s.Invoice()
	if err := inv.Validate(f.RequirePhone); err != nil {
		return Outcome{}, err
	}

	if len(formats) == 0 {
		formats = []Format{FormatCSV}
	}
	renderers := make(map[Format]DocumentRenderer, len(formats))
	for _, format := range formats {
		r, err := f.renderer(format)
		if err != nil {
			return Outcome{}, err
		}
		renderers[format] = r
	}

	dir, err := dest.Choose(ctx, inv.FileName(string(formats[0])))
	if errors.Is(err, ErrCancelled) || (err == nil && strings.TrimSpace(dir) == "") {
		f.logger().Info("finalize cancelled", "invoice_no", inv.Number)
		return Outcome{Cancelled: true, Invoice: inv}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("choose destination: %w", err)
	}

	files := make(map[Format]string, len(formats))
	for _, format := range formats {
		path := filepath.Join(dir, inv.FileName(string(format)))
		if err := writeAtomic(path, func(w io.Writer) error { return renderers[format].Render(w, inv) }); err != nil {
			removeAll(files)
			return Outcome{}, fmt.Errorf("write %s document: %w", format, err)
		}
		files[format] = path
	}

	rec := inv.Record()
	if err := f.Ledger.Append(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("append ledger record: %w", err)
	}
	s.markFinalized()

	f.logger().Info("invoice finalized",
		"invoice_no", inv.Number,
		"grand_total", inv.Totals.GrandTotal.String(),
		"files", len(files),
	)
	return Outcome{Invoice: inv, Files: files, Record: rec}, nil
}

// writeAtomic renders into a pending file next to path and renames it into
// place, so a failed render never leaves a partial document.
func writeAtomic(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if err := render(pf); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}

func removeAll(files map[Format]string) {
	for _, path := range files {
		_ = os.Remove(path)
	}
}
