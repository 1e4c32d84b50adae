package billing_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// textRenderer writes "<number>:<grand total>".
type textRenderer struct{}

func (textRenderer) Render(w io.Writer, inv billing.Invoice) error {
	_, err := fmt.Fprintf(w, "%s:%s", inv.Number, inv.Totals.GrandTotal)
	return err
}

type brokenRenderer struct{}

func (brokenRenderer) Render(io.Writer, billing.Invoice) error { return errors.New("renderer crashed") }

type cancelledDestination struct{}

func (cancelledDestination) Choose(context.Context, string) (string, error) {
	return "", billing.ErrCancelled
}

func readyToFinalize(t *testing.T) *billing.Session {
	t.Helper()
	s := newTestSession(t)
	_, err := s.AddItem("Speaker", "2", "250")
	require.NoError(t, err)
	_, err = s.AddItem("Cable", "5", "20")
	require.NoError(t, err)
	require.NoError(t, s.SetDiscount("10"))
	require.NoError(t, s.SetRecipient(billing.Recipient{Name: "Asha", Phone: "98470"}))
	require.NoError(t, s.SetIssuer("Ravi", "Chairperson"))
	return s
}

func newFinalizer(ledger *billing.Ledger) *billing.Finalizer {
	return &billing.Finalizer{
		Ledger:       ledger,
		Renderers:    map[billing.Format]billing.DocumentRenderer{billing.FormatCSV: textRenderer{}},
		RequirePhone: true,
	}
}

func ledgerLen(t *testing.T, ledger *billing.Ledger) int {
	t.Helper()
	records, err := ledger.Records(context.Background())
	require.NoError(t, err)
	return len(records)
}

// =============================================================================
// FINALIZE
// =============================================================================

func TestFinalize_WritesDocumentAndLedgerRow(t *testing.T) {
	// GIVEN: A valid draft
	// WHEN: Finalizing into a directory
	// THEN: The document exists, the ledger gained one matching row and the
	//       session is read-only

	s := readyToFinalize(t)
	ledger, _ := newTestLedger()
	dir := t.TempDir()

	out, err := newFinalizer(ledger).Finalize(context.Background(), s, billing.DirectoryDestination(dir))
	require.NoError(t, err)

	assert.False(t, out.Cancelled)
	path := filepath.Join(dir, "invoice_1.csv")
	assert.Equal(t, path, out.Files[billing.FormatCSV])
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1:637.20", string(data))

	records, err := ledger.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0].InvoiceNo)
	assert.Equal(t, 2, records[0].ItemCount)
	assert.Equal(t, "637.20", records[0].GrandTotal.String())
	assert.Equal(t, "97.20", records[0].TaxAmount.String())
	assert.Equal(t, "Ravi", records[0].IssuerName)
	assert.True(t, s.Finalized())
}

func TestFinalize_DocumentsReplacedAtomically(t *testing.T) {
	// GIVEN: A stale invoice_1.csv already in the destination
	// WHEN: Finalizing invoice 1
	// THEN: The file holds the new content, is world-readable and no
	//       pending files are left next to it

	s := readyToFinalize(t)
	ledger, _ := newTestLedger()
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice_1.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	_, err := newFinalizer(ledger).Finalize(context.Background(), s, billing.DirectoryDestination(dir))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1:637.20", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "invoice_1.csv", entries[0].Name())
}

func TestFinalize_CancelledLeavesEverythingUntouched(t *testing.T) {
	// GIVEN: A valid draft
	// WHEN: The user cancels the destination choice
	// THEN: Outcome is cancelled, no error, ledger empty, session still editable

	s := readyToFinalize(t)
	ledger, _ := newTestLedger()
	before := s.Invoice()

	out, err := newFinalizer(ledger).Finalize(context.Background(), s, cancelledDestination{})

	require.NoError(t, err)
	assert.True(t, out.Cancelled)
	assert.Equal(t, 0, ledgerLen(t, ledger))
	assert.False(t, s.Finalized())
	assert.Equal(t, before.Number, s.Invoice().Number)
	assert.Equal(t, before.Totals.GrandTotal.String(), s.Invoice().Totals.GrandTotal.String())
}

func TestFinalize_EmptyDirectoryIsCancellation(t *testing.T) {
	s := readyToFinalize(t)
	ledger, _ := newTestLedger()

	out, err := newFinalizer(ledger).Finalize(context.Background(), s, billing.DirectoryDestination(""))

	require.NoError(t, err)
	assert.True(t, out.Cancelled)
}

func TestFinalize_ValidationFailures(t *testing.T) {
	ledger, _ := newTestLedger()
	f := newFinalizer(ledger)
	dir := billing.DirectoryDestination(t.TempDir())
	ctx := context.Background()

	// No items
	s := newTestSession(t)
	require.NoError(t, s.SetRecipient(billing.Recipient{Name: "Asha", Phone: "1"}))
	_, err := f.Finalize(ctx, s, dir)
	assert.ErrorIs(t, err, billing.ErrValidation)

	// No recipient name
	s = readyToFinalize(t)
	require.NoError(t, s.SetRecipient(billing.Recipient{Phone: "1"}))
	_, err = f.Finalize(ctx, s, dir)
	var vErr *billing.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "recipient.name", vErr.Field)

	// No phone while the profile requires one
	s = readyToFinalize(t)
	require.NoError(t, s.SetRecipient(billing.Recipient{Name: "Asha"}))
	_, err = f.Finalize(ctx, s, dir)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "recipient.phone", vErr.Field)

	assert.Equal(t, 0, ledgerLen(t, ledger))
}

func TestFinalize_PhoneOptionalWhenNotRequired(t *testing.T) {
	s := readyToFinalize(t)
	require.NoError(t, s.SetRecipient(billing.Recipient{Name: "Asha"}))
	ledger, _ := newTestLedger()
	f := newFinalizer(ledger)
	f.RequirePhone = false

	_, err := f.Finalize(context.Background(), s, billing.DirectoryDestination(t.TempDir()))

	require.NoError(t, err)
	assert.Equal(t, 1, ledgerLen(t, ledger))
}

func TestFinalize_MissingRendererIsConfigError(t *testing.T) {
	// GIVEN: A finalizer without a PDF renderer
	// WHEN: Asking for a PDF
	// THEN: ConfigError with guidance; nothing written

	s := readyToFinalize(t)
	ledger, _ := newTestLedger()
	dir := t.TempDir()

	_, err := newFinalizer(ledger).Finalize(context.Background(), s, billing.DirectoryDestination(dir), billing.FormatCSV, billing.FormatPDF)

	require.Error(t, err)
	assert.True(t, billing.IsConfigError(err))
	var cfgErr *billing.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.NotEmpty(t, cfgErr.Guidance)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
	assert.Equal(t, 0, ledgerLen(t, ledger))
}

func TestFinalize_RenderFailureRemovesWrittenFiles(t *testing.T) {
	// GIVEN: CSV renders fine but PDF fails
	// WHEN: Finalizing both
	// THEN: The CSV written first is removed and the ledger is untouched

	s := readyToFinalize(t)
	ledger, _ := newTestLedger()
	dir := t.TempDir()
	f := newFinalizer(ledger)
	f.Renderers[billing.FormatPDF] = brokenRenderer{}

	_, err := f.Finalize(context.Background(), s, billing.DirectoryDestination(dir), billing.FormatCSV, billing.FormatPDF)

	require.Error(t, err)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
	assert.Equal(t, 0, ledgerLen(t, ledger))
	assert.False(t, s.Finalized())
}

func TestFinalize_LedgerFailureKeepsDraft(t *testing.T) {
	s := readyToFinalize(t)
	f := newFinalizer(billing.NewLedger(failingStore{}))

	_, err := f.Finalize(context.Background(), s, billing.DirectoryDestination(t.TempDir()))

	require.Error(t, err)
	assert.False(t, s.Finalized())
}

func TestFinalize_FinalizedSessionIsReadOnly(t *testing.T) {
	// GIVEN: A finalized invoice
	// WHEN: Editing or finalizing again
	// THEN: ErrInvoiceFinalized, and the ledger still has one row

	s := readyToFinalize(t)
	ledger, _ := newTestLedger()
	f := newFinalizer(ledger)
	dir := billing.DirectoryDestination(t.TempDir())
	ctx := context.Background()

	_, err := f.Finalize(ctx, s, dir)
	require.NoError(t, err)

	_, err = s.AddItem("Extra", "1", "1")
	assert.ErrorIs(t, err, billing.ErrInvoiceFinalized)
	assert.ErrorIs(t, s.SetDiscount("5"), billing.ErrInvoiceFinalized)
	_, err = f.Finalize(ctx, s, dir)
	assert.ErrorIs(t, err, billing.ErrInvoiceFinalized)
	assert.True(t, billing.IsConflict(err))
	assert.Equal(t, 1, ledgerLen(t, ledger))

	require.NoError(t, s.Reset(ctx))
	assert.False(t, s.Finalized())
	assert.Equal(t, "2", s.Number())
}

func TestFinalizer_RenderDoesNotFinalize(t *testing.T) {
	s := readyToFinalize(t)
	ledger, _ := newTestLedger()
	f := newFinalizer(ledger)

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf, s.Invoice(), billing.FormatCSV))

	assert.Equal(t, "1:637.20", buf.String())
	assert.False(t, s.Finalized())
	assert.True(t, billing.IsConfigError(f.Render(&buf, s.Invoice(), billing.FormatPDF)))
}

func TestParseFormat(t *testing.T) {
	f, err := billing.ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, billing.FormatPDF, f)

	_, err = billing.ParseFormat("docx")
	assert.ErrorIs(t, err, billing.ErrValidation)
}
