// Package handlers exposes the shop records and the ledger over a JSON API.
package handlers

import (
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/garage/clock"
	"github.com/satheeshds/garage/db"
	"github.com/satheeshds/garage/ledger"
)

type Params struct {
	Store  db.Querier
	Ledger *ledger.Ledger
	Clock  clock.Clock
	Log    *slog.Logger
}

// Handler serves the /api/v1 routes. Client, vehicle and job CRUD goes
// straight to the store; everything touching invoices or payments goes
// through the ledger.
type Handler struct {
	store  db.Querier
	ledger *ledger.Ledger
	clock  clock.Clock
	log    *slog.Logger
}

func New(p Params) *Handler {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Handler{
		store:  p.Store,
		ledger: p.Ledger,
		clock:  clk,
		log:    log.With("component", "api"),
	}
}

func (h *Handler) now() time.Time {
	return h.clock.Now().UTC()
}

// Routes registers every API endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	// Clients
	r.Get("/clients", h.ListClients)
	r.Post("/clients", h.CreateClient)
	r.Get("/clients/{id}", h.GetClient)
	r.Put("/clients/{id}", h.UpdateClient)
	r.Delete("/clients/{id}", h.DeleteClient)

	// Vehicles
	r.Get("/vehicles", h.ListVehicles)
	r.Post("/vehicles", h.CreateVehicle)
	r.Get("/vehicles/{id}", h.GetVehicle)
	r.Put("/vehicles/{id}", h.UpdateVehicle)
	r.Delete("/vehicles/{id}", h.DeleteVehicle)

	// Jobs
	r.Get("/jobs", h.ListJobs)
	r.Post("/jobs", h.CreateJob)
	r.Get("/jobs/{id}", h.GetJob)
	r.Put("/jobs/{id}", h.UpdateJob)
	r.Delete("/jobs/{id}", h.DeleteJob)

	// Invoices
	r.Get("/invoices", h.ListInvoices)
	r.Post("/invoices", h.CreateInvoice)
	r.Get("/invoices/next-number", h.NextInvoiceNumber)
	r.Post("/invoices/sweep", h.SweepOverdue)
	r.Get("/invoices/{id}", h.GetInvoice)
	r.Put("/invoices/{id}", h.UpdateInvoice)
	r.Delete("/invoices/{id}", h.DeleteInvoice)
	r.Get("/invoices/{id}/payments", h.ListInvoicePayments)
	r.Post("/invoices/{id}/payments", h.CreatePayment)

	// Payments
	r.Get("/payments/{id}", h.GetPayment)
	r.Delete("/payments/{id}", h.DeletePayment)

	// Dashboard
	r.Get("/dashboard", h.GetDashboard)
}

func where(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}
