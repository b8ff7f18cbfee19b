package models

import "time"

// Vehicle belongs to exactly one client.
type Vehicle struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         *int      `json:"year"`
	VIN          *string   `json:"vin"`
	LicensePlate *string   `json:"license_plate"`
	Mileage      *int      `json:"mileage"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	// Computed fields
	ClientName *string `json:"client_name,omitempty"`
}

// VehicleInput is used for creating/updating vehicles.
type VehicleInput struct {
	ClientID     string  `json:"client_id"`
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Year         *int    `json:"year"`
	VIN          *string `json:"vin"`
	LicensePlate *string `json:"license_plate"`
	Mileage      *int    `json:"mileage"`
}

func (v *VehicleInput) Validate() string {
	if v.ClientID == "" {
		return "client_id is required"
	}
	if v.Make == "" || v.Model == "" {
		return "make and model are required"
	}
	if v.Year != nil && (*v.Year < 1886 || *v.Year > 2100) {
		return "year is out of range"
	}
	if v.Mileage != nil && *v.Mileage < 0 {
		return "mileage must be non-negative"
	}
	return ""
}
