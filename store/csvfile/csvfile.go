/*
Package csvfile provides the CSV file implementation of billing.Store.

PURPOSE:
  The ledger as a plain CSV file a treasurer can open in a spreadsheet.
  One header row, then one row per finalized invoice, in the order they
  were finalized.

FILE FORMAT:
  Header (written once, when the file is new or empty):
    Invoice No,Date,Recipient,Phone Number,Items Count,Subtotal,Discount %,
    Discount Amount,Tax %,Tax Amount,Grand Total,Issuer Name,Issuer Role

  Money columns carry thousands separators, so they are quoted by the CSV
  encoder ("1,234.50").

APPEND PROTOCOL:
  1. Open for append (create if missing)
  2. If empty: header + row, else: row
  3. If a previous append was cut short, the damaged row is closed first:
     a '"' when it stopped inside a quoted field, then a '\n', so the new
     row never merges into it
  4. Everything is sent in a single Write, then fsync

READ PROTOCOL:
  - Missing file: empty history
  - Columns matched by header name; missing columns read as empty / zero
  - Rows the CSV parser rejects are skipped and logged

CONCURRENCY:
  A mutex serializes callers inside one process. There is no file lock:
  two processes appending to the same file may interleave rows.

SEE ALSO:
  - billing/store.go: Store contract
  - billing/ledger.go: Row encoding (LedgerRecord.Row, RecordFromRow)
*/
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/warp/billing-engine/billing"
)

// DefaultFileName is the ledger file name used when only a directory is configured.
const DefaultFileName = "invoice_ledger.csv"

// Store implements billing.Store on a CSV file.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a store for path. The file is created on the first Append.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Path() string { return s.path }

// =============================================================================
// APPEND
// =============================================================================

func (s *Store) Append(ctx context.Context, rec billing.LedgerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger: %w", err)
	}

	var buf bytes.Buffer
	if info.Size() == 0 {
		if err := encode(&buf, billing.LedgerHeader); err != nil {
			return err
		}
	} else {
		tail, err := scanTail(f, info.Size())
		if err != nil {
			return fmt.Errorf("read ledger tail: %w", err)
		}
		if tail.openQuote {
			s.logger.Warn("ledger ended inside a quoted field, closing the cut row", "path", s.path)
			buf.WriteByte('"')
		}
		if !tail.terminated || tail.openQuote {
			s.logger.Warn("ledger did not end with a newline, previous row was cut short", "path", s.path)
			buf.WriteByte('\n')
		}
	}
	if err := encode(&buf, rec.Row()); err != nil {
		return err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write ledger row: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

func encode(buf *bytes.Buffer, row []string) error {
	w := csv.NewWriter(buf)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("encode ledger row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// tailState describes how the file ends: whether the last row was
// terminated, and whether a quoted field is still open.
type tailState struct {
	terminated bool
	openQuote  bool
}

// scanTail counts quote characters over the whole file. Escaped quotes come
// in pairs, so an odd count means the last write stopped inside a quoted
// field.
func scanTail(f *os.File, size int64) (tailState, error) {
	var (
		quotes int
		last   byte
	)
	chunk := make([]byte, 32*1024)
	r := io.NewSectionReader(f, 0, size)
	for {
		n, err := r.Read(chunk)
		for _, b := range chunk[:n] {
			if b == '"' {
				quotes++
			}
		}
		if n > 0 {
			last = chunk[n-1]
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return tailState{}, err
		}
	}
	return tailState{terminated: last == '\n', openQuote: quotes%2 == 1}, nil
}

// =============================================================================
// READ
// =============================================================================

func (s *Store) ReadAll(ctx context.Context) ([]billing.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	return s.decode(f)
}

func (s *Store) decode(r io.Reader) ([]billing.LedgerRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		header  []string
		records []billing.LedgerRecord
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.logger.Warn("skipping malformed ledger row", "path", s.path, "line", parseErr.StartLine, "error", parseErr.Err)
				continue
			}
			return nil, fmt.Errorf("read ledger: %w", err)
		}

		if header == nil {
			header = row
			if len(header) > 0 {
				header[0] = strings.TrimPrefix(header[0], "\ufeff")
			}
			continue
		}
		if blank(row) {
			continue
		}
		records = append(records, billing.RecordFromRow(header, row))
	}
	return records, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
