package handlers

import (
	"net/http"

	"github.com/satheeshds/garage/ledger"
	"github.com/satheeshds/garage/models"
)

type recentPayment struct {
	ID            string       `json:"id"`
	InvoiceNumber string       `json:"invoice_number"`
	Amount        models.Money `json:"amount"`
	PaymentMethod string       `json:"payment_method"`
	PaymentDate   string       `json:"payment_date"`
}

type dashboardData struct {
	TotalClients  int `json:"total_clients"`
	TotalVehicles int `json:"total_vehicles"`
	TotalJobs     int `json:"total_jobs"`
	OpenJobs      int `json:"open_jobs"` // pending or in progress

	Ledger ledger.Summary `json:"ledger"`

	RecentPayments []recentPayment `json:"recent_payments"`
}

// GetDashboard retrieves dashboard summary statistics
// @Summary      Get dashboard
// @Description  Get record counts, the receivables summary, and the five latest payments.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  Response{data=dashboardData}
// @Router       /dashboard [get]
// @Security     BasicAuth
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d := dashboardData{RecentPayments: []recentPayment{}}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM clients", &d.TotalClients},
		{"SELECT COUNT(*) FROM vehicles", &d.TotalVehicles},
		{"SELECT COUNT(*) FROM jobs", &d.TotalJobs},
		{"SELECT COUNT(*) FROM jobs WHERE status IN ('pending', 'in_progress')", &d.OpenJobs},
	}
	for _, c := range counts {
		if err := h.store.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	summary, err := h.ledger.Summary(ctx)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	d.Ledger = summary

	rows, err := h.store.QueryContext(ctx, `SELECT p.id, i.invoice_number, p.amount, p.payment_method, p.payment_date
		FROM payments p JOIN invoices i ON i.id = p.invoice_id
		ORDER BY p.created_at DESC, p.payment_date DESC LIMIT 5`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()
	for rows.Next() {
		var p recentPayment
		if err := rows.Scan(&p.ID, &p.InvoiceNumber, &p.Amount, &p.PaymentMethod, &p.PaymentDate); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		d.RecentPayments = append(d.RecentPayments, p)
	}

	writeJSON(w, http.StatusOK, d)
}
