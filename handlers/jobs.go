package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/satheeshds/garage/models"
)

const jobSelectQuery = `SELECT id, client_id, vehicle_id, title, description, status, payment_status,
	payment_method, invoice_number, created_at, updated_at FROM jobs`

func scanJob(scanner interface{ Scan(...any) error }) (models.Job, error) {
	var j models.Job
	err := scanner.Scan(&j.ID, &j.ClientID, &j.VehicleID, &j.Title, &j.Description, &j.Status, &j.PaymentStatus,
		&j.PaymentMethod, &j.InvoiceNumber, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// ListJobs lists repair jobs
// @Summary      List jobs
// @Tags         jobs
// @Produce      json
// @Param        status      query     string  false  "Filter by status"
// @Param        client_id   query     string  false  "Filter by client"
// @Param        vehicle_id  query     string  false  "Filter by vehicle"
// @Param        search      query     string  false  "Search by title or description"
// @Success      200         {object}  Response{data=[]models.Job}
// @Router       /jobs [get]
// @Security     BasicAuth
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var conditions []string
	var args []any

	q := r.URL.Query()
	for _, f := range []string{"status", "client_id", "vehicle_id"} {
		if v := q.Get(f); v != "" {
			conditions = append(conditions, f+" = ?")
			args = append(args, v)
		}
	}
	if search := q.Get("search"); search != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		s := "%" + search + "%"
		args = append(args, s, s)
	}

	rows, err := h.store.QueryContext(r.Context(), jobSelectQuery+where(conditions)+" ORDER BY created_at DESC", args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	jobs := []models.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		jobs = append(jobs, j)
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GetJob retrieves a single job by ID
// @Summary      Get job
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  Response{data=models.Job}
// @Failure      404  {object}  Response{error=string}
// @Router       /jobs/{id} [get]
// @Security     BasicAuth
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := scanJob(h.store.QueryRowContext(r.Context(), jobSelectQuery+" WHERE id = ?", chi.URLParam(r, "id")))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// checkJobRefs verifies the optional client and vehicle references.
func (h *Handler) checkJobRefs(w http.ResponseWriter, r *http.Request, input models.JobInput) bool {
	refs := []struct {
		table string
		id    *string
	}{{"clients", input.ClientID}, {"vehicles", input.VehicleID}}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		ok, err := h.exists(r.Context(), ref.table, *ref.id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return false
		}
		if !ok {
			writeError(w, http.StatusBadRequest, strings.TrimSuffix(ref.table, "s")+" not found")
			return false
		}
	}
	return true
}

// CreateJob opens a repair job
// @Summary      Create job
// @Description  Open a job. Invoiced and paid are reached through invoices and payments only.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job  body      models.JobInput  true  "Job contents"
// @Success      201  {object}  Response{data=models.Job}
// @Failure      400  {object}  Response{error=string}
// @Router       /jobs [post]
// @Security     BasicAuth
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var input models.JobInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if input.Status == models.JobInvoiced || input.Status == models.JobPaid {
		writeError(w, http.StatusBadRequest, "a new job cannot start as "+string(input.Status))
		return
	}
	if !h.checkJobRefs(w, r, input) {
		return
	}

	id := uuid.NewString()
	now := h.now()
	_, err := h.store.ExecContext(r.Context(),
		`INSERT INTO jobs (id, client_id, vehicle_id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.ClientID, input.VehicleID, input.Title, input.Description, input.Status, now, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	j, err := scanJob(h.store.QueryRowContext(r.Context(), jobSelectQuery+" WHERE id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.Info("job created", "job_id", id, "status", j.Status)
	writeJSON(w, http.StatusCreated, j)
}

// UpdateJob updates a job
// @Summary      Update job
// @Description  Update a job. While the job has an invoice that is not canceled its status follows the invoice and cannot be changed here.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id   path      string           true  "Job ID"
// @Param        job  body      models.JobInput  true  "Updated job contents"
// @Success      200  {object}  Response{data=models.Job}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Failure      409  {object}  Response{error=string}
// @Router       /jobs/{id} [put]
// @Security     BasicAuth
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var input models.JobInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	current, err := scanJob(h.store.QueryRowContext(r.Context(), jobSelectQuery+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if input.Status == "" {
		input.Status = current.Status
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	statusChanged := input.Status != current.Status
	if statusChanged {
		number, err := h.activeInvoiceNumber(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if number != "" {
			writeError(w, http.StatusConflict, "job status is managed by invoice "+number)
			return
		}
		if input.Status == models.JobInvoiced || input.Status == models.JobPaid {
			writeError(w, http.StatusBadRequest, "status "+string(input.Status)+" is set by invoicing")
			return
		}
	}
	if !h.checkJobRefs(w, r, input) {
		return
	}

	if !statusChanged {
		_, err = h.store.ExecContext(r.Context(),
			`UPDATE jobs SET client_id = ?, vehicle_id = ?, title = ?, description = ?, updated_at = ? WHERE id = ?`,
			input.ClientID, input.VehicleID, input.Title, input.Description, h.now(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		// The status only moves if nobody else touched it since it was read and
		// no invoice has taken the job over in the meantime.
		res, err := h.store.ExecContext(r.Context(),
			`UPDATE jobs SET client_id = ?, vehicle_id = ?, title = ?, description = ?, status = ?, updated_at = ?
			WHERE id = ? AND status = ? AND NOT EXISTS (
				SELECT 1 FROM invoices i WHERE i.invoice_number = jobs.invoice_number AND i.status <> ?)`,
			input.ClientID, input.VehicleID, input.Title, input.Description, input.Status, h.now(),
			id, current.Status, models.InvoiceCanceled)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusConflict, "job status changed while updating; reload and retry")
			return
		}
	}

	j, err := scanJob(h.store.QueryRowContext(r.Context(), jobSelectQuery+" WHERE id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// activeInvoiceNumber returns the number of the job's invoice unless the job
// has none or that invoice was canceled.
func (h *Handler) activeInvoiceNumber(ctx context.Context, jobID string) (string, error) {
	var number string
	err := h.store.QueryRowContext(ctx, `SELECT i.invoice_number FROM jobs j
		JOIN invoices i ON i.invoice_number = j.invoice_number
		WHERE j.id = ? AND i.status <> ?`, jobID, models.InvoiceCanceled).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return number, err
}

// DeleteJob deletes a job that was never invoiced
// @Summary      Delete job
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Failure      409  {object}  Response{error=string}
// @Router       /jobs/{id} [delete]
// @Security     BasicAuth
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var invoices int
	if err := h.store.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM invoices WHERE job_id = ?", id).
		Scan(&invoices); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if invoices > 0 {
		writeError(w, http.StatusConflict, "job has invoices; delete them first")
		return
	}

	res, err := h.store.ExecContext(r.Context(), "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	h.log.Info("job deleted", "job_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
