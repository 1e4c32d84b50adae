package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/config"
	"github.com/warp/billing-engine/profile"
)

func testConfig(t *testing.T, backend, numbering string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server:    config.ServerConfig{Port: 8080},
		Profile:   config.ProfileConfig{ID: "robocek"},
		Ledger:    config.LedgerConfig{Backend: backend, Path: filepath.Join(dir, "data", "ledger")},
		Numbering: config.NumberingConfig{Mode: numbering, Path: filepath.Join(dir, "data", "counters.db")},
		Output:    config.OutputConfig{Dir: filepath.Join(dir, "out")},
		Export:    config.ExportConfig{PDF: true, XLSX: true},
	}
}

func TestWire_Backends(t *testing.T) {
	// GIVEN: Every backend and numbering combination
	// WHEN: Wiring
	// THEN: A session exists and PDF export is registered
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := profile.NewFactory().Preset("robocek")
	require.NoError(t, err)

	for _, backend := range []string{config.BackendCSV, config.BackendSQLite, config.BackendMemory} {
		for _, mode := range []string{config.NumberingLedger, config.NumberingCounter} {
			t.Run(backend+"/"+mode, func(t *testing.T) {
				deps, closeAll, err := wire(context.Background(), testConfig(t, backend, mode), p, logger)
				require.NoError(t, err)
				defer closeAll()

				assert.NotEmpty(t, deps.Session.Number())
				assert.Contains(t, deps.Finalizer.Renderers, billing.FormatPDF)
				assert.False(t, deps.Finalizer.RequirePhone)
			})
		}
	}
}

func TestWire_CounterModeContinuesFromLedger(t *testing.T) {
	// GIVEN: A CSV ledger whose last invoice is 41
	// WHEN: Wiring with counter numbering
	// THEN: The counter is seeded and the first draft is 42
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := profile.NewFactory().Preset("ieee")
	require.NoError(t, err)
	cfg := testConfig(t, config.BackendCSV, config.NumberingCounter)

	deps, closeAll, err := wire(context.Background(), cfg, p, logger)
	require.NoError(t, err)
	require.NoError(t, deps.Ledger.Append(context.Background(), billing.LedgerRecord{InvoiceNo: "41"}))
	closeAll()

	deps, closeAll, err = wire(context.Background(), cfg, p, logger)
	require.NoError(t, err)
	defer closeAll()

	assert.Equal(t, "42", deps.Session.Number())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "invoice_no", "42")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"invoice_no":"42"`)
}

func TestLoadProfile(t *testing.T) {
	p, err := loadProfile(config.ProfileConfig{ID: "robocek"})
	require.NoError(t, err)
	assert.Equal(t, "ROBOCEK GCEK", p.Organization)

	_, err = loadProfile(config.ProfileConfig{ID: "nope"})
	assert.True(t, billing.IsConfigError(err))
}
