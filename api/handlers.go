/*
handlers.go - HTTP API handlers for the invoicing engine

PURPOSE:
  Exposes the draft invoice, finalization and the ledger over REST. Handles
  HTTP request/response and JSON, and delegates to the billing package.

ENDPOINTS:
  Draft invoice:
    GET    /api/invoice                     Current draft with totals
    PUT    /api/invoice/recipient           Set recipient name and phone
    PUT    /api/invoice/issuer              Set issuer name and role
    PUT    /api/invoice/rates               Set discount and/or tax %
    POST   /api/invoice/items               Add a line item
    DELETE /api/invoice/items/{position}    Remove one item (0-based)
    DELETE /api/invoice/items               Remove all items
    GET    /api/invoice/document?format=    Preview as csv or pdf
    POST   /api/invoice/finalize            Write documents + ledger row
    POST   /api/invoice/reset               Start a new invoice

  History:
    GET    /api/ledger                      All finalized invoices
    GET    /api/ledger/summary              Totals over the history
    GET    /api/ledger/export               History as .xlsx

  Profile:
    GET    /api/profile                     Active branding profile

CONCURRENCY:
  There is one draft per server. Every handler that touches it holds the
  handler mutex for the whole operation, finalize included.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, bad position, unknown format
  - 404: Empty history on export
  - 409: Invoice already finalized
  - 422: Capability switched off (pdf, xlsx)
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Bind to localhost.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/export"
	"github.com/warp/billing-engine/profile"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Deps holds everything the handlers need. Logger and Now may be nil.
type Deps struct {
	Session     *billing.Session
	Ledger      *billing.Ledger
	Finalizer   *billing.Finalizer
	Profile     *profile.Profile
	Destination billing.Destination
	XLSXEnabled bool
	Logger      *slog.Logger
	Now         func() time.Time
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Deps
	mu sync.Mutex // guards Session
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Handler{Deps: d}
}

// =============================================================================
// DRAFT INVOICE ENDPOINTS
// =============================================================================

// GetInvoice returns the current draft.
// GET /api/invoice
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, h.invoiceDTO())
}

// SetRecipient sets recipient name and phone.
// PUT /api/invoice/recipient
func (h *Handler) SetRecipient(w http.ResponseWriter, r *http.Request) {
	var req RecipientRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, http.StatusOK, func() error {
		return h.Session.SetRecipient(billing.Recipient{Name: req.Name, Phone: req.Phone})
	})
}

// SetIssuer sets the signer.
// PUT /api/invoice/issuer
func (h *Handler) SetIssuer(w http.ResponseWriter, r *http.Request) {
	var req IssuerRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, http.StatusOK, func() error {
		return h.Session.SetIssuer(req.Name, req.Role)
	})
}

// SetRates sets discount and/or tax.
// PUT /api/invoice/rates
func (h *Handler) SetRates(w http.ResponseWriter, r *http.Request) {
	var req RatesRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, http.StatusOK, func() error {
		if req.DiscountPct != nil {
			if err := h.Session.SetDiscount(req.DiscountPct); err != nil {
				return err
			}
		}
		if req.TaxPct != nil {
			return h.Session.SetTax(req.TaxPct)
		}
		return nil
	})
}

// AddItem adds a line item.
// POST /api/invoice/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, http.StatusCreated, func() error {
		_, err := h.Session.AddItem(req.Name, req.Quantity, req.UnitPrice)
		return err
	})
}

// RemoveItem removes the item at a 0-based position.
// DELETE /api/invoice/items/{position}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item position", err)
		return
	}
	h.mutate(w, http.StatusOK, func() error {
		_, err := h.Session.RemoveItem(position)
		return err
	})
}

// ClearItems removes every item.
// DELETE /api/invoice/items
func (h *Handler) ClearItems(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, http.StatusOK, h.Session.ClearItems)
}

// ResetInvoice starts a new invoice.
// POST /api/invoice/reset
func (h *Handler) ResetInvoice(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, http.StatusOK, func() error {
		return h.Session.Reset(r.Context())
	})
}

// GetDocument renders the draft without finalizing.
// GET /api/invoice/document?format=csv|pdf
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	format, err := billing.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		handleError(w, err)
		return
	}

	h.mu.Lock()
	inv := h.Session.Invoice()
	h.mu.Unlock()

	var buf bytes.Buffer
	if err := h.Finalizer.Render(&buf, inv, format); err != nil {
		handleError(w, err)
		return
	}
	writeFile(w, contentType(format), inv.FileName(string(format)), buf.Bytes())
}

// Finalize writes the documents and appends the ledger row.
// POST /api/invoice/finalize
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	formats := make([]billing.Format, 0, len(req.Formats))
	for _, s := range req.Formats {
		f, err := billing.ParseFormat(s)
		if err != nil {
			handleError(w, err)
			return
		}
		formats = append(formats, f)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	out, err := h.Finalizer.Finalize(r.Context(), h.Session, h.Destination, formats...)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := FinalizeResponse{Cancelled: out.Cancelled, Invoice: h.invoiceDTO()}
	if !out.Cancelled {
		resp.Files = make(map[string]string, len(out.Files))
		for f, path := range out.Files {
			resp.Files[string(f)] = path
		}
		rec := out.Record
		resp.Record = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// LEDGER ENDPOINTS
// =============================================================================

// ListLedger returns every finalized invoice, oldest first.
// GET /api/ledger
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	records, err := h.Ledger.Records(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	if records == nil {
		records = []billing.LedgerRecord{}
	}
	writeJSON(w, http.StatusOK, LedgerResponse{Count: len(records), Records: records})
}

// GetLedgerSummary returns the aggregate over the history.
// GET /api/ledger/summary
func (h *Handler) GetLedgerSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Ledger.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ExportLedger returns the history as a workbook.
// GET /api/ledger/export
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	if !h.XLSXEnabled {
		handleError(w, &billing.ConfigError{
			Capability: "spreadsheet export",
			Guidance:   "set export.xlsx to true",
		})
		return
	}

	records, err := h.Ledger.Records(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteHistoryXLSX(&buf, records); err != nil {
		handleError(w, err)
		return
	}
	h.Logger.Info("ledger exported", "records", len(records))
	writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		export.HistoryFileName(h.Now()), buf.Bytes())
}

// GetProfile returns the active branding profile.
// GET /api/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Profile)
}

// =============================================================================
// HELPERS
// =============================================================================

// mutate runs fn under the lock and answers with the updated draft.
func (h *Handler) mutate(w http.ResponseWriter, status int, fn func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := fn(); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, status, h.invoiceDTO())
}

func (h *Handler) invoiceDTO() InvoiceDTO {
	return toInvoiceDTO(h.Session.Invoice(), h.Session.Finalized())
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func handleError(w http.ResponseWriter, err error) {
	var vErr *billing.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: vErr.Message, Field: vErr.Field})
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case billing.IsConflict(err):
		writeError(w, http.StatusConflict, "Invoice already finalized, reset to start a new one", err)
	case billing.IsConfigError(err):
		writeError(w, http.StatusUnprocessableEntity, "Not available", err)
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Nothing to export", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func contentType(f billing.Format) string {
	if f == billing.FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}
