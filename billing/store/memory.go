// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements billing.Store and billing.CounterStore.
type Memory struct {
	mu       sync.RWMutex
	records  []billing.LedgerRecord
	counters map[string]int64
}

func NewMemory(seed ...billing.LedgerRecord) *Memory {
	return &Memory{
		records:  append([]billing.LedgerRecord(nil), seed...),
		counters: make(map[string]int64),
	}
}

// Append adds a single record. Append-only.
func (m *Memory) Append(ctx context.Context, rec billing.LedgerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) ReadAll(ctx context.Context) ([]billing.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]billing.LedgerRecord, len(m.records))
	copy(result, m.records)
	return result, nil
}

func (m *Memory) NextSequence(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
	return m.counters[name], nil
}

func (m *Memory) SeedSequence(_ context.Context, name string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value > m.counters[name] {
		m.counters[name] = value
	}
	return nil
}
