package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/garage/models"
)

// ListInvoicePayments lists the payments against an invoice
// @Summary      List invoice payments
// @Tags         payments
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  Response{data=[]models.Payment}
// @Failure      404  {object}  Response{error=string}
// @Router       /invoices/{id}/payments [get]
// @Security     BasicAuth
func (h *Handler) ListInvoicePayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.ledger.GetInvoice(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}

	payments, err := h.ledger.ListPayments(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// CreatePayment records a payment against an invoice
// @Summary      Record payment
// @Description  Record money received. Invoice and job status are re-derived from all payments.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Invoice ID"
// @Param        payment  body      models.PaymentInput  true  "Payment contents"
// @Success      201      {object}  Response{data=models.Payment}
// @Failure      400      {object}  Response{error=string}
// @Failure      404      {object}  Response{error=string}
// @Router       /invoices/{id}/payments [post]
// @Security     BasicAuth
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var input models.PaymentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	input.InvoiceID = chi.URLParam(r, "id")

	p, err := h.ledger.AddPayment(r.Context(), input)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetPayment retrieves a single payment by ID
// @Summary      Get payment
// @Tags         payments
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  Response{data=models.Payment}
// @Failure      404  {object}  Response{error=string}
// @Router       /payments/{id} [get]
// @Security     BasicAuth
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.ledger.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePayment deletes a payment
// @Summary      Delete payment
// @Description  Remove a payment. Invoice and job status are re-derived from the remaining payments.
// @Tags         payments
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /payments/{id} [delete]
// @Security     BasicAuth
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	ok, err := h.ledger.DeletePayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "payment not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
