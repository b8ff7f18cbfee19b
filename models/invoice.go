package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceDraft    InvoiceStatus = "draft"
	InvoiceIssued   InvoiceStatus = "issued"
	InvoicePaid     InvoiceStatus = "paid"
	InvoicePartial  InvoiceStatus = "partial"
	InvoiceOverdue  InvoiceStatus = "overdue"
	InvoiceCanceled InvoiceStatus = "canceled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceIssued, InvoicePaid, InvoicePartial, InvoiceOverdue, InvoiceCanceled:
		return true
	}
	return false
}

// DateLayout is the calendar-date format used for issue, due and payment dates.
const DateLayout = "2006-01-02"

// Invoice represents the bill for one job.
type Invoice struct {
	ID             string          `json:"id"`
	JobID          string          `json:"job_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	IssueDate      string          `json:"issue_date"`
	DueDate        *string         `json:"due_date"`
	Status         InvoiceStatus   `json:"status"`
	Subtotal       Money           `json:"subtotal"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      Money           `json:"tax_amount"`
	DiscountAmount Money           `json:"discount_amount"`
	TotalAmount    Money           `json:"total_amount"`
	Notes          *string         `json:"notes"`
	Terms          *string         `json:"terms"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	// Computed fields
	AmountPaid Money `json:"amount_paid"`
	BalanceDue Money `json:"balance_due"`
}

// InvoiceInput is used for creating/updating invoices.
// A zero TaxAmount is computed from Subtotal and TaxRate; a zero TotalAmount is
// computed as Subtotal + TaxAmount - DiscountAmount.
type InvoiceInput struct {
	JobID          string           `json:"job_id"`
	InvoiceNumber  string           `json:"invoice_number"`
	IssueDate      string           `json:"issue_date"`
	DueDate        *string          `json:"due_date"`
	Status         InvoiceStatus    `json:"status"`
	Subtotal       Money            `json:"subtotal"`
	TaxRate        *decimal.Decimal `json:"tax_rate"`
	TaxAmount      Money            `json:"tax_amount"`
	DiscountAmount Money            `json:"discount_amount"`
	TotalAmount    Money            `json:"total_amount"`
	Notes          *string          `json:"notes"`
	Terms          *string          `json:"terms"`
}

func (i *InvoiceInput) Validate() string {
	if i.Subtotal < 0 || i.TaxAmount < 0 || i.DiscountAmount < 0 || i.TotalAmount < 0 {
		return "amounts must be non-negative"
	}
	if i.TaxRate != nil && i.TaxRate.IsNegative() {
		return "tax_rate must be non-negative"
	}
	if i.Status != "" && !i.Status.Valid() {
		return "status must be one of: draft, issued, paid, partial, overdue, canceled"
	}
	if i.IssueDate != "" && !validDate(i.IssueDate) {
		return "issue_date must be formatted YYYY-MM-DD"
	}
	if i.DueDate != nil && *i.DueDate != "" && !validDate(*i.DueDate) {
		return "due_date must be formatted YYYY-MM-DD"
	}
	if i.IssueDate != "" && i.DueDate != nil && *i.DueDate != "" && *i.DueDate < i.IssueDate {
		return "due_date must not be before issue_date"
	}
	return ""
}

// ApplyTotals fills in TaxAmount and TotalAmount when they were left at zero.
// It reports false when the resulting total would be negative.
func (i *InvoiceInput) ApplyTotals(defaultRate decimal.Decimal) bool {
	if i.TaxRate == nil {
		rate := defaultRate
		i.TaxRate = &rate
	}
	if i.TaxAmount == 0 {
		i.TaxAmount = i.Subtotal.PercentOf(*i.TaxRate)
	}
	if i.TotalAmount == 0 {
		i.TotalAmount = i.Subtotal + i.TaxAmount - i.DiscountAmount
	}
	return i.TotalAmount >= 0
}

// InvoiceUpdate is used for updating invoices. Omitted fields keep their
// current value; an empty due_date clears it.
type InvoiceUpdate struct {
	IssueDate      string           `json:"issue_date"`
	DueDate        *string          `json:"due_date"`
	Status         InvoiceStatus    `json:"status"`
	Subtotal       *Money           `json:"subtotal"`
	TaxRate        *decimal.Decimal `json:"tax_rate"`
	TaxAmount      *Money           `json:"tax_amount"`
	DiscountAmount *Money           `json:"discount_amount"`
	TotalAmount    *Money           `json:"total_amount"`
	Notes          *string          `json:"notes"`
	Terms          *string          `json:"terms"`
}

func (u *InvoiceUpdate) Validate() string {
	for _, m := range []*Money{u.Subtotal, u.TaxAmount, u.DiscountAmount, u.TotalAmount} {
		if m != nil && *m < 0 {
			return "amounts must be non-negative"
		}
	}
	if u.TaxRate != nil && u.TaxRate.IsNegative() {
		return "tax_rate must be non-negative"
	}
	if u.Status != "" && !u.Status.Valid() {
		return "status must be one of: draft, issued, paid, partial, overdue, canceled"
	}
	if u.IssueDate != "" && !validDate(u.IssueDate) {
		return "issue_date must be formatted YYYY-MM-DD"
	}
	if u.DueDate != nil && *u.DueDate != "" && !validDate(*u.DueDate) {
		return "due_date must be formatted YYYY-MM-DD"
	}
	return ""
}

// Apply returns cur with the update laid over it. Tax is recomputed when the
// subtotal or rate changes without an explicit tax amount, and the total when
// one of its parts changes without an explicit total. It reports false when the
// resulting total would be negative.
func (u *InvoiceUpdate) Apply(cur Invoice) (Invoice, bool) {
	next := cur
	if u.Status != "" {
		next.Status = u.Status
	}
	if u.IssueDate != "" {
		next.IssueDate = u.IssueDate
	}
	if u.DueDate != nil {
		next.DueDate = nil
		if *u.DueDate != "" {
			due := *u.DueDate
			next.DueDate = &due
		}
	}
	if u.Notes != nil {
		next.Notes = u.Notes
	}
	if u.Terms != nil {
		next.Terms = u.Terms
	}
	if u.Subtotal != nil {
		next.Subtotal = *u.Subtotal
	}
	if u.TaxRate != nil {
		next.TaxRate = *u.TaxRate
	}
	if u.DiscountAmount != nil {
		next.DiscountAmount = *u.DiscountAmount
	}

	switch {
	case u.TaxAmount != nil:
		next.TaxAmount = *u.TaxAmount
	case u.Subtotal != nil || u.TaxRate != nil:
		next.TaxAmount = next.Subtotal.PercentOf(next.TaxRate)
	}
	switch {
	case u.TotalAmount != nil:
		next.TotalAmount = *u.TotalAmount
	case u.Subtotal != nil || u.TaxRate != nil || u.TaxAmount != nil || u.DiscountAmount != nil:
		next.TotalAmount = next.Subtotal + next.TaxAmount - next.DiscountAmount
	}
	return next, next.TotalAmount >= 0
}

func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
