package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/satheeshds/garage/models"
)

const vehicleSelectQuery = `SELECT v.id, v.client_id, v.make, v.model, v.year, v.vin, v.license_plate, v.mileage,
	v.created_at, v.updated_at, c.name
	FROM vehicles v LEFT JOIN clients c ON c.id = v.client_id`

func scanVehicle(scanner interface{ Scan(...any) error }) (models.Vehicle, error) {
	var v models.Vehicle
	err := scanner.Scan(&v.ID, &v.ClientID, &v.Make, &v.Model, &v.Year, &v.VIN, &v.LicensePlate, &v.Mileage,
		&v.CreatedAt, &v.UpdatedAt, &v.ClientName)
	return v, err
}

// exists reports whether table has a row with the given id. table is always a
// constant supplied by the caller.
func (h *Handler) exists(ctx context.Context, table, id string) (bool, error) {
	var n int
	err := h.store.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", id).Scan(&n)
	return n > 0, err
}

// ListVehicles lists vehicles
// @Summary      List vehicles
// @Tags         vehicles
// @Produce      json
// @Param        client_id  query     string  false  "Filter by owner"
// @Param        search     query     string  false  "Search by make, model, VIN or plate"
// @Success      200        {object}  Response{data=[]models.Vehicle}
// @Router       /vehicles [get]
// @Security     BasicAuth
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	query := vehicleSelectQuery
	var args []any
	var conditions []string

	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		conditions = append(conditions, "v.client_id = ?")
		args = append(args, clientID)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		conditions = append(conditions, "(v.make LIKE ? OR v.model LIKE ? OR v.vin LIKE ? OR v.license_plate LIKE ?)")
		s := "%" + search + "%"
		args = append(args, s, s, s, s)
	}
	query += where(conditions) + " ORDER BY v.make, v.model"

	rows, err := h.store.QueryContext(r.Context(), query, args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	vehicles := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		vehicles = append(vehicles, v)
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// GetVehicle retrieves a single vehicle by ID
// @Summary      Get vehicle
// @Tags         vehicles
// @Produce      json
// @Param        id   path      string  true  "Vehicle ID"
// @Success      200  {object}  Response{data=models.Vehicle}
// @Failure      404  {object}  Response{error=string}
// @Router       /vehicles/{id} [get]
// @Security     BasicAuth
func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := scanVehicle(h.store.QueryRowContext(r.Context(), vehicleSelectQuery+" WHERE v.id = ?", chi.URLParam(r, "id")))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) decodeVehicle(w http.ResponseWriter, r *http.Request) (models.VehicleInput, bool) {
	var input models.VehicleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return input, false
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return input, false
	}
	ok, err := h.exists(r.Context(), "clients", input.ClientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return input, false
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "client_id does not match a client")
		return input, false
	}
	return input, true
}

// CreateVehicle registers a vehicle to a client
// @Summary      Create vehicle
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Param        vehicle  body      models.VehicleInput  true  "Vehicle contents"
// @Success      201      {object}  Response{data=models.Vehicle}
// @Failure      400      {object}  Response{error=string}
// @Router       /vehicles [post]
// @Security     BasicAuth
func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeVehicle(w, r)
	if !ok {
		return
	}

	id := uuid.NewString()
	now := h.now()
	_, err := h.store.ExecContext(r.Context(),
		`INSERT INTO vehicles (id, client_id, make, model, year, vin, license_plate, mileage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.ClientID, input.Make, input.Model, input.Year, input.VIN, input.LicensePlate, input.Mileage, now, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	v, err := scanVehicle(h.store.QueryRowContext(r.Context(), vehicleSelectQuery+" WHERE v.id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// UpdateVehicle updates an existing vehicle
// @Summary      Update vehicle
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Vehicle ID"
// @Param        vehicle  body      models.VehicleInput  true  "Updated vehicle contents"
// @Success      200      {object}  Response{data=models.Vehicle}
// @Failure      400      {object}  Response{error=string}
// @Failure      404      {object}  Response{error=string}
// @Router       /vehicles/{id} [put]
// @Security     BasicAuth
func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	input, ok := h.decodeVehicle(w, r)
	if !ok {
		return
	}

	res, err := h.store.ExecContext(r.Context(),
		`UPDATE vehicles SET client_id = ?, make = ?, model = ?, year = ?, vin = ?, license_plate = ?, mileage = ?,
		updated_at = ? WHERE id = ?`,
		input.ClientID, input.Make, input.Model, input.Year, input.VIN, input.LicensePlate, input.Mileage, h.now(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}

	v, err := scanVehicle(h.store.QueryRowContext(r.Context(), vehicleSelectQuery+" WHERE v.id = ?", id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeleteVehicle deletes a vehicle
// @Summary      Delete vehicle
// @Tags         vehicles
// @Produce      json
// @Param        id   path      string  true  "Vehicle ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /vehicles/{id} [delete]
// @Security     BasicAuth
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.ExecContext(r.Context(), "DELETE FROM vehicles WHERE id = ?", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
