package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/garage/ledger"
	"github.com/satheeshds/garage/models"
)

// ListInvoices lists invoices
// @Summary      List invoices
// @Description  Get invoices with amount paid and balance due, newest first.
// @Tags         invoices
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        job_id  query     string  false  "Filter by job"
// @Param        from    query     string  false  "Issued on or after (YYYY-MM-DD)"
// @Param        to      query     string  false  "Issued on or before (YYYY-MM-DD)"
// @Param        search  query     string  false  "Search by invoice number, notes, or job title"
// @Success      200     {object}  Response{data=[]models.Invoice}
// @Failure      400     {object}  Response{error=string}
// @Router       /invoices [get]
// @Security     BasicAuth
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.InvoiceFilter{
		Status: models.InvoiceStatus(q.Get("status")),
		JobID:  q.Get("job_id"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Search: q.Get("search"),
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown invoice status")
		return
	}

	invoices, err := h.ledger.ListInvoices(r.Context(), f)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// GetInvoice retrieves a single invoice by ID
// @Summary      Get invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  Response{data=models.Invoice}
// @Failure      404  {object}  Response{error=string}
// @Router       /invoices/{id} [get]
// @Security     BasicAuth
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.ledger.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// NextInvoiceNumber previews the next generated invoice number
// @Summary      Next invoice number
// @Description  The number the next invoice created today would receive. Not reserved.
// @Tags         invoices
// @Produce      json
// @Success      200  {object}  Response{data=map[string]string}
// @Router       /invoices/next-number [get]
// @Security     BasicAuth
func (h *Handler) NextInvoiceNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.ledger.GenerateInvoiceNumber(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"invoice_number": number})
}

// CreateInvoice invoices a job
// @Summary      Create invoice
// @Description  Invoice a job. The job moves to invoiced. A job with an active invoice is rejected.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        invoice  body      models.InvoiceInput  true  "Invoice contents"
// @Success      201      {object}  Response{data=models.Invoice}
// @Failure      400      {object}  Response{error=string}
// @Failure      404      {object}  Response{error=string}
// @Failure      409      {object}  Response{error=string}
// @Router       /invoices [post]
// @Security     BasicAuth
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.InvoiceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	inv, err := h.ledger.CreateInvoice(r.Context(), input)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// UpdateInvoice updates an invoice
// @Summary      Update invoice
// @Description  Update dates, amounts, status, notes and terms. Omitted fields keep their value. Job and invoice number are fixed.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Invoice ID"
// @Param        invoice  body      models.InvoiceUpdate true  "Fields to change"
// @Success      200      {object}  Response{data=models.Invoice}
// @Failure      400      {object}  Response{error=string}
// @Failure      404      {object}  Response{error=string}
// @Router       /invoices/{id} [put]
// @Security     BasicAuth
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.InvoiceUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	inv, err := h.ledger.UpdateInvoice(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// DeleteInvoice deletes an invoice and its payments
// @Summary      Delete invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /invoices/{id} [delete]
// @Security     BasicAuth
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	ok, err := h.ledger.DeleteInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// SweepOverdue marks late invoices overdue
// @Summary      Run overdue sweep
// @Description  Move every issued or partial invoice past its due date to overdue.
// @Tags         invoices
// @Produce      json
// @Success      200  {object}  Response{data=map[string]int64}
// @Router       /invoices/sweep [post]
// @Security     BasicAuth
func (h *Handler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := h.ledger.MarkOverdueInvoices(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked": n})
}
