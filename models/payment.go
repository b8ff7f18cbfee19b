package models

import (
	"strings"
	"time"
)

// Payment is money received against an invoice. Payments are never edited;
// a mistaken payment is deleted and recorded again.
type Payment struct {
	ID            string    `json:"id"`
	InvoiceID     string    `json:"invoice_id"`
	Amount        Money     `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	PaymentDate   string    `json:"payment_date"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentInput is used for recording payments.
type PaymentInput struct {
	InvoiceID     string  `json:"invoice_id"`
	Amount        Money   `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	PaymentDate   string  `json:"payment_date"`
	Notes         *string `json:"notes"`
}

func (p *PaymentInput) Validate() string {
	if strings.TrimSpace(p.InvoiceID) == "" {
		return "invoice_id is required"
	}
	if p.Amount <= 0 {
		return "amount must be positive"
	}
	p.PaymentMethod = strings.TrimSpace(p.PaymentMethod)
	if p.PaymentMethod == "" {
		return "payment_method is required"
	}
	if p.PaymentDate != "" && !validDate(p.PaymentDate) {
		return "payment_date must be formatted YYYY-MM-DD"
	}
	return ""
}
