/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements billing.Store and billing.CounterStore on one SQLite file. Same
  append-only contract as the CSV ledger, plus an invoice counter kept apart
  from the history.

INTERFACES IMPLEMENTED:
  billing.Store:        Ledger persistence
  billing.CounterStore: Invoice number sequence

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the ledger table
  - No DELETE statements on the ledger table
  - Read order is insertion order (rowid)

KEY TABLES:
  ledger:   One row per finalized invoice
  counters: name -> last value handed out

AMOUNTS:
  Stored as fixed 2-digit decimal TEXT ("1234.50"), never REAL, so what is
  read back is exactly what was written.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single connection so that
  ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := billing.NewLedger(store)
  numbers := billing.NewCounterSource(store)

MIGRATION:
  Schema is created on New(). Two tables, no versions yet.

SEE ALSO:
  - billing/store.go: Interface definitions
  - store/csvfile: The default file ledger
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/billing-engine/billing"
)

// Store implements billing.Store and billing.CounterStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Finalized invoices (append-only)
	CREATE TABLE IF NOT EXISTS ledger (
		invoice_no TEXT NOT NULL,
		invoice_date TEXT NOT NULL,
		recipient TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		item_count INTEGER NOT NULL DEFAULT 0,
		subtotal TEXT NOT NULL,
		discount_pct TEXT NOT NULL,
		discount_amount TEXT NOT NULL,
		tax_pct TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		grand_total TEXT NOT NULL,
		issuer_name TEXT NOT NULL DEFAULT '',
		issuer_role TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Not unique: duplicate invoice numbers are recorded, not rejected
	CREATE INDEX IF NOT EXISTS idx_ledger_invoice_no
		ON ledger(invoice_no);

	-- Independent sequences
	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (billing.Store interface)
// =============================================================================

// Append adds a record to the ledger.
func (s *Store) Append(ctx context.Context, rec billing.LedgerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ledger
		(invoice_no, invoice_date, recipient, phone, item_count, subtotal, discount_pct,
		 discount_amount, tax_pct, tax_amount, grand_total, issuer_name, issuer_role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.InvoiceNo,
		rec.Date,
		rec.Recipient,
		rec.Phone,
		rec.ItemCount,
		rec.Subtotal.String(),
		billing.FormatPercent(rec.DiscountPct),
		rec.DiscountAmount.String(),
		billing.FormatPercent(rec.TaxPct),
		rec.TaxAmount.String(),
		rec.GrandTotal.String(),
		rec.IssuerName,
		rec.IssuerRole,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}
	return nil
}

// ReadAll returns every record in insertion order.
func (s *Store) ReadAll(ctx context.Context) ([]billing.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT invoice_no, invoice_date, recipient, phone, item_count, subtotal, discount_pct,
		       discount_amount, tax_pct, tax_amount, grand_total, issuer_name, issuer_role
		FROM ledger
		ORDER BY rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var records []billing.LedgerRecord
	for rows.Next() {
		var (
			rec                             billing.LedgerRecord
			subtotal, discountPct, discount string
			taxPct, tax, grand              string
		)
		err := rows.Scan(
			&rec.InvoiceNo, &rec.Date, &rec.Recipient, &rec.Phone, &rec.ItemCount,
			&subtotal, &discountPct, &discount, &taxPct, &tax, &grand,
			&rec.IssuerName, &rec.IssuerRole,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		rec.Subtotal = billing.Normalize(subtotal)
		rec.DiscountPct = billing.ParsePercent(discountPct)
		rec.DiscountAmount = billing.Normalize(discount)
		rec.TaxPct = billing.ParsePercent(taxPct)
		rec.TaxAmount = billing.Normalize(tax)
		rec.GrandTotal = billing.Normalize(grand)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// COUNTER STORE (billing.CounterStore interface)
// =============================================================================

func (s *Store) NextSequence(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO counters (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value
	`

	var value int64
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return value, nil
}

func (s *Store) SeedSequence(ctx context.Context, name string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = MAX(value, excluded.value)
	`

	if _, err := s.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to seed counter %s: %w", name, err)
	}
	return nil
}
