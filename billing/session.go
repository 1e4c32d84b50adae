/*
session.go - The invoice being edited

PURPOSE:
  A Session owns exactly one draft invoice at a time: its identifier, date,
  recipient, issuer, line items and rates. Every mutation recomputes the
  totals before returning, then notifies subscribers, so a reader never
  sees stale totals.

LIFECYCLE:
  NewSession / Reset     -> draft (fresh identifier + current time)
  Add/Remove/Set*        -> draft
  Finalizer.Finalize     -> finalized (read-only)
  Reset                  -> new draft

  Once finalized the session rejects edits with ErrInvoiceFinalized. That
  keeps a finalized identifier from being reused by the same session.

CONCURRENCY:
  Not safe for concurrent use. Callers with a concurrent front end
  (api.Handler) serialize access themselves.

SEE ALSO:
  - finalize.go: Validates, writes documents and the ledger row
  - calculator.go: Totals
*/
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults restored on every reset.
type Defaults struct {
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
	Issuer      Issuer
}

// DefaultTaxPct is the tax rate a new invoice starts with.
var DefaultTaxPct = decimal.NewFromInt(18)

type Session struct {
	numbers  NumberSource
	defaults Defaults
	clock    Clock
	logger   *slog.Logger

	number      string
	date        time.Time
	recipient   Recipient
	issuer      Issuer
	items       LineItems
	discountPct decimal.Decimal
	taxPct      decimal.Decimal
	totals      Totals
	finalized   bool

	subscribers []func(Totals)
}

// NewSession starts a draft with a fresh identifier.
func NewSession(ctx context.Context, numbers NumberSource, defaults Defaults, opts ...Option) (*Session, error) {
	o := applyOptions(opts)
	s := &Session{
		numbers:  numbers,
		defaults: defaults,
		clock:    o.clock,
		logger:   o.logger,
		issuer:   defaults.Issuer,
	}
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) start(ctx context.Context) error {
	number, err := s.numbers.Next(ctx)
	if err != nil {
		return fmt.Errorf("start invoice: %w", err)
	}
	s.number = number
	s.date = s.clock()
	s.recipient = Recipient{}
	s.items.Clear()
	s.discountPct = ParsePercent(s.defaults.DiscountPct)
	s.taxPct = ParsePercent(s.defaults.TaxPct)
	s.finalized = false
	s.recalculate()
	return nil
}

// Subscribe registers fn to receive the totals after every change.
func (s *Session) Subscribe(fn func(Totals)) {
	s.subscribers = append(s.subscribers, fn)
}

func (s *Session) recalculate() {
	s.totals = Calculate(s.items.items, s.discountPct, s.taxPct)
	for _, fn := range s.subscribers {
		fn(s.totals)
	}
}

func (s *Session) editable() error {
	if s.finalized {
		return fmt.Errorf("invoice %s: %w", s.number, ErrInvoiceFinalized)
	}
	return nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AddItem coerces quantity and price the lenient way, then validates.
func (s *Session) AddItem(name string, quantity, unitPrice any) (LineItem, error) {
	if err := s.editable(); err != nil {
		return LineItem{}, err
	}
	item, err := s.items.Add(name, ParseQuantity(quantity), Normalize(unitPrice))
	if err != nil {
		return LineItem{}, err
	}
	s.recalculate()
	return item, nil
}

func (s *Session) RemoveItem(position int) (LineItem, error) {
	if err := s.editable(); err != nil {
		return LineItem{}, err
	}
	item, err := s.items.Remove(position)
	if err != nil {
		return LineItem{}, err
	}
	s.recalculate()
	return item, nil
}

func (s *Session) ClearItems() error {
	if err := s.editable(); err != nil {
		return err
	}
	s.items.Clear()
	s.recalculate()
	return nil
}

// SetDiscount sets the discount rate. Bad or negative input becomes 0.
func (s *Session) SetDiscount(raw any) error {
	if err := s.editable(); err != nil {
		return err
	}
	s.discountPct = ParsePercent(raw)
	s.recalculate()
	return nil
}

// SetTax sets the tax rate. Bad or negative input becomes 0.
func (s *Session) SetTax(raw any) error {
	if err := s.editable(); err != nil {
		return err
	}
	s.taxPct = ParsePercent(raw)
	s.recalculate()
	return nil
}

func (s *Session) SetRecipient(r Recipient) error {
	if err := s.editable(); err != nil {
		return err
	}
	s.recipient = Recipient{Name: strings.TrimSpace(r.Name), Phone: strings.TrimSpace(r.Phone)}
	return nil
}

// SetIssuer changes the signing name and role. The organization belongs to
// the profile and is kept.
func (s *Session) SetIssuer(name, role string) error {
	if err := s.editable(); err != nil {
		return err
	}
	s.issuer.Name = strings.TrimSpace(name)
	s.issuer.Role = strings.TrimSpace(role)
	return nil
}

// Reset abandons the draft (or leaves the finalized invoice) and starts a
// new one. The issuer name survives; the role goes back to the default.
func (s *Session) Reset(ctx context.Context) error {
	previous := s.number
	if err := s.start(ctx); err != nil {
		return err
	}
	s.issuer.Role = s.defaults.Issuer.Role
	s.issuer.Organization = s.defaults.Issuer.Organization
	s.logger.Info("invoice reset", "previous", previous, "number", s.number)
	return nil
}

func (s *Session) markFinalized() { s.finalized = true }

// =============================================================================
// READS
// =============================================================================

func (s *Session) Totals() Totals  { return s.totals }
func (s *Session) Finalized() bool { return s.finalized }
func (s *Session) Number() string  { return s.number }

// Invoice returns a snapshot of the draft. Later edits do not affect it.
func (s *Session) Invoice() Invoice {
	return Invoice{
		Number:      s.number,
		Date:        s.date,
		Recipient:   s.recipient,
		Issuer:      s.issuer,
		Items:       s.items.Items(),
		DiscountPct: s.discountPct,
		TaxPct:      s.taxPct,
		Totals:      s.totals,
	}
}
