/*
store.go - Persistence interface for finalized invoices

PURPOSE:
  Defines the interface between the engine and durable storage of the
  invoice history. Different implementations keep the same append-only
  contract: the CSV file the tool has always written, SQLite, or memory.

KEY INTERFACES:
  Store:        Ledger persistence (append, read all)
  CounterStore: Independent invoice counter, kept apart from the history

APPEND-ONLY CONTRACT:
  - Append(): the ONLY write operation
  - ReadAll(): every record, in append order
  - NO Update() or Delete() methods exist

  Identifiers are not unique-checked. Two records may share a number if the
  numbering fallback is hit inconsistently; that is a known gap, not an
  invariant.

CONCURRENCY:
  Single process, single user. The CSV store takes no file lock and is not
  safe under concurrent multi-process append.

IMPLEMENTATIONS:
  - store/csvfile: the 13-column CSV ledger
  - store/sqlite: SQLite table + counters table
  - billing/store: in-memory, for tests

SEE ALSO:
  - ledger.go: Higher-level Ledger using Store
  - numbering.go: Reads the last record to derive the next number
*/
package billing

import "context"

// =============================================================================
// STORE - Interface for ledger persistence (append-only)
// =============================================================================

// Store persists LedgerRecords.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists one record after all existing ones.
	// A crash mid-write may damage this record but never earlier ones.
	Append(ctx context.Context, rec LedgerRecord) error

	// ReadAll returns all records in append order. An empty or missing
	// history is not an error.
	ReadAll(ctx context.Context) ([]LedgerRecord, error)
}

// =============================================================================
// COUNTER STORE - Invoice numbers independent of the history
// =============================================================================

// CounterStore hands out monotonically increasing sequence values.
type CounterStore interface {
	// NextSequence increments the named counter and returns the new value.
	NextSequence(ctx context.Context, name string) (int64, error)

	// SeedSequence raises the counter to at least value. Never lowers it.
	SeedSequence(ctx context.Context, name string, value int64) error
}
