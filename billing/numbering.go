/*
numbering.go - Invoice identifiers

PURPOSE:
  Picks the identifier for a new invoice. Two sources exist:

  Generator (default, "ledger" mode):
    Looks at the last record in the ledger.
      - all digits         -> that number + 1, no padding, no upper bound
      - anything else      -> timestamp YYYYMMDDhhmmss
      - empty / unreadable -> timestamp YYYYMMDDhhmmss
    Never fails. The timestamp has second granularity, so two invoices
    started in the same second get the same identifier.

  CounterSource ("counter" mode):
    An independent persisted counter (SQLite counters table). The ledger is
    only consulted once, to seed the counter past the last numeric
    identifier already written.

EXAMPLES:
  last "41"              -> "42"
  last "99999999999999999999" -> "100000000000000000000"
  last "20240101120000"  -> "20240101120001"   (digits, so +1)
  last "INV-7"           -> timestamp
  no records             -> timestamp

SEE ALSO:
  - ledger.go: Last()
  - store.go: CounterStore
*/
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// NumberSource hands out the identifier for the next invoice.
type NumberSource interface {
	Next(ctx context.Context) (string, error)
}

// =============================================================================
// GENERATOR - Identifier derived from the ledger
// =============================================================================

type Generator struct {
	ledger *Ledger
	clock  Clock
	logger *slog.Logger
}

func NewGenerator(ledger *Ledger, opts ...Option) *Generator {
	o := applyOptions(opts)
	return &Generator{ledger: ledger, clock: o.clock, logger: o.logger}
}

// Next never returns an error; the signature satisfies NumberSource.
func (g *Generator) Next(ctx context.Context) (string, error) {
	now := g.clock()

	last, ok, err := g.ledger.Last(ctx)
	if err != nil {
		g.logger.Warn("ledger unreadable, using timestamp invoice number", "error", err)
		return TimestampID(now), nil
	}
	if !ok {
		return TimestampID(now), nil
	}

	next := NextAfter(last.InvoiceNo, now)
	if !isDigits(strings.TrimSpace(last.InvoiceNo)) {
		g.logger.Info("last invoice number is not numeric, using timestamp",
			"last", last.InvoiceNo, "next", next)
	}
	return next, nil
}

// NextAfter applies the numbering rule to a known last identifier.
func NextAfter(last string, now time.Time) string {
	last = strings.TrimSpace(last)
	if !isDigits(last) {
		return TimestampID(now)
	}
	n, ok := new(big.Int).SetString(last, 10)
	if !ok {
		return TimestampID(now)
	}
	return n.Add(n, big.NewInt(1)).String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// =============================================================================
// COUNTER SOURCE - Identifier from an independent counter
// =============================================================================

// InvoiceSequence is the counter name used for invoice numbers.
const InvoiceSequence = "invoice"

type CounterSource struct {
	counters CounterStore
	name     string
}

func NewCounterSource(counters CounterStore) *CounterSource {
	return &CounterSource{counters: counters, name: InvoiceSequence}
}

func (c *CounterSource) Next(ctx context.Context) (string, error) {
	n, err := c.counters.NextSequence(ctx, c.name)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return strconv.FormatInt(n, 10), nil
}

// SeedFromLedger raises the counter to the last numeric identifier in the
// ledger, so counter mode continues where ledger mode stopped. Identifiers
// that do not fit an int64 are ignored.
func (c *CounterSource) SeedFromLedger(ctx context.Context, ledger *Ledger) error {
	last, ok, err := ledger.Last(ctx)
	if err != nil || !ok {
		return err
	}
	n, perr := strconv.ParseInt(strings.TrimSpace(last.InvoiceNo), 10, 64)
	if perr != nil || n < 0 {
		return nil
	}
	return c.counters.SeedSequence(ctx, c.name, n)
}
