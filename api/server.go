/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for a browser form

ROUTE GROUPS:
  /api/invoice/*        Draft invoice and finalization
  /api/ledger/*         Invoice history
  /api/profile          Branding profile
  /                     Plain index page listing the endpoints

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. An empty
// allowedOrigins list allows any origin.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     allowedOrigins,
		AllowedMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:     []string{"Content-Disposition"},
		AllowCredentials:   false,
		OptionsPassthrough: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/invoice", func(r chi.Router) {
			r.Get("/", h.GetInvoice)
			r.Put("/recipient", h.SetRecipient)
			r.Put("/issuer", h.SetIssuer)
			r.Put("/rates", h.SetRates)
			r.Post("/items", h.AddItem)
			r.Delete("/items", h.ClearItems)
			r.Delete("/items/{position}", h.RemoveItem)
			r.Get("/document", h.GetDocument)
			r.Post("/finalize", h.Finalize)
			r.Post("/reset", h.ResetInvoice)
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/", h.ListLedger)
			r.Get("/summary", h.GetLedgerSummary)
			r.Get("/export", h.ExportLedger)
		})

		r.Get("/profile", h.GetProfile)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Billing Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Billing Engine API</h1>
<ul>
<li><a href="/api/invoice">/api/invoice</a> - Current draft invoice</li>
<li><a href="/api/ledger">/api/ledger</a> - Invoice history</li>
<li><a href="/api/ledger/summary">/api/ledger/summary</a> - History totals</li>
<li><a href="/api/profile">/api/profile</a> - Branding profile</li>
</ul>
</body>
</html>`))
	})

	return r
}
