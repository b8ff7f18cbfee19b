package models

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobInvoiced   JobStatus = "invoiced"
	JobPaid       JobStatus = "paid"
	JobCanceled   JobStatus = "canceled"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobInProgress, JobCompleted, JobInvoiced, JobPaid, JobCanceled:
		return true
	}
	return false
}

// PaymentStatus is the job-level mirror of its invoice's payment progress.
// It has no overdue or canceled value.
type PaymentStatus string

const (
	PaymentIssued  PaymentStatus = "issued"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Job is a unit of repair work on a vehicle. Status, PaymentStatus,
// PaymentMethod and InvoiceNumber are maintained by the ledger once invoiced.
type Job struct {
	ID            string         `json:"id"`
	ClientID      *string        `json:"client_id"`
	VehicleID     *string        `json:"vehicle_id"`
	Title         string         `json:"title"`
	Description   *string        `json:"description"`
	Status        JobStatus      `json:"status"`
	PaymentStatus *PaymentStatus `json:"payment_status"`
	PaymentMethod *string        `json:"payment_method"`
	InvoiceNumber *string        `json:"invoice_number"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// JobInput is used for creating/updating jobs.
type JobInput struct {
	ClientID    *string   `json:"client_id"`
	VehicleID   *string   `json:"vehicle_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      JobStatus `json:"status"`
}

func (j *JobInput) Validate() string {
	if j.Title == "" {
		return "title is required"
	}
	if j.Status != "" && !j.Status.Valid() {
		return "status must be one of: pending, in_progress, completed, invoiced, paid, canceled"
	}
	if j.Status == "" {
		j.Status = JobPending
	}
	return ""
}
