package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/satheeshds/garage/models"
)

const clientSelectQuery = `SELECT id, name, phone, email, address, notes, created_at, updated_at,
	(SELECT COUNT(*) FROM vehicles v WHERE v.client_id = clients.id) AS vehicle_count,
	CAST(COALESCE((SELECT SUM(i.total_amount - COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.invoice_id = i.id), 0))
		FROM invoices i JOIN jobs j ON j.id = i.job_id
		WHERE j.client_id = clients.id AND i.status IN ('issued', 'partial', 'overdue')), 0) AS BIGINT) AS outstanding
	FROM clients`

func scanClient(scanner interface{ Scan(...any) error }) (models.Client, error) {
	var c models.Client
	err := scanner.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
		&c.VehicleCount, &c.Outstanding)
	return c, err
}

// ListClients lists all clients
// @Summary      List clients
// @Description  Get all vehicle owners with vehicle counts and unpaid balances.
// @Tags         clients
// @Produce      json
// @Param        search  query     string  false  "Search by name, email, or phone"
// @Success      200     {object}  Response{data=[]models.Client}
// @Router       /clients [get]
// @Security     BasicAuth
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	query := clientSelectQuery
	var args []any

	if search := r.URL.Query().Get("search"); search != "" {
		query += " WHERE (name LIKE ? OR email LIKE ? OR phone LIKE ?)"
		s := "%" + search + "%"
		args = append(args, s, s, s)
	}
	query += " ORDER BY name"

	rows, err := h.store.QueryContext(r.Context(), query, args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		clients = append(clients, c)
	}
	writeJSON(w, http.StatusOK, clients)
}

// GetClient retrieves a single client by ID
// @Summary      Get client
// @Tags         clients
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  Response{data=models.Client}
// @Failure      404  {object}  Response{error=string}
// @Router       /clients/{id} [get]
// @Security     BasicAuth
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := scanClient(h.store.QueryRowContext(r.Context(), clientSelectQuery+" WHERE id = ?", chi.URLParam(r, "id")))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateClient creates a new client
// @Summary      Create client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        client  body      models.ClientInput  true  "Client contents"
// @Success      201     {object}  Response{data=models.Client}
// @Failure      400     {object}  Response{error=string}
// @Router       /clients [post]
// @Security     BasicAuth
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var input models.ClientInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id := uuid.NewString()
	now := h.now()
	_, err := h.store.ExecContext(r.Context(),
		`INSERT INTO clients (id, name, phone, email, address, notes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.Name, input.Phone, input.Email, input.Address, input.Notes, now, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c, err := scanClient(h.store.QueryRowContext(r.Context(), clientSelectQuery+" WHERE id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.Info("client created", "client_id", id)
	writeJSON(w, http.StatusCreated, c)
}

// UpdateClient updates an existing client
// @Summary      Update client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id      path      string              true  "Client ID"
// @Param        client  body      models.ClientInput  true  "Updated client contents"
// @Success      200     {object}  Response{data=models.Client}
// @Failure      400     {object}  Response{error=string}
// @Failure      404     {object}  Response{error=string}
// @Router       /clients/{id} [put]
// @Security     BasicAuth
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var input models.ClientInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := h.store.ExecContext(r.Context(),
		`UPDATE clients SET name = ?, phone = ?, email = ?, address = ?, notes = ?, updated_at = ? WHERE id = ?`,
		input.Name, input.Phone, input.Email, input.Address, input.Notes, h.now(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	c, err := scanClient(h.store.QueryRowContext(r.Context(), clientSelectQuery+" WHERE id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteClient deletes a client and their vehicles
// @Summary      Delete client
// @Description  Remove a client. Their vehicles are removed too; their jobs are kept without a client.
// @Tags         clients
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /clients/{id} [delete]
// @Security     BasicAuth
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.store.ExecContext(r.Context(), "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	h.log.Info("client deleted", "client_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
