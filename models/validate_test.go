package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceInputValidate(t *testing.T) {
	due := func(s string) *string { return &s }
	neg := decimal.NewFromInt(-1)

	tests := []struct {
		name  string
		input InvoiceInput
		want  string
	}{
		{"ok", InvoiceInput{Subtotal: 100}, ""},
		{"negative discount", InvoiceInput{DiscountAmount: -1}, "amounts must be non-negative"},
		{"negative rate", InvoiceInput{TaxRate: &neg}, "tax_rate must be non-negative"},
		{"unknown status", InvoiceInput{Status: "sent"}, "status must be one of: draft, issued, paid, partial, overdue, canceled"},
		{"bad due date", InvoiceInput{DueDate: due("2024-02-30")}, "due_date must be formatted YYYY-MM-DD"},
		{"due before issue", InvoiceInput{IssueDate: "2024-03-15", DueDate: due("2024-03-01")}, "due_date must not be before issue_date"},
		{"empty due date", InvoiceInput{IssueDate: "2024-03-15", DueDate: due("")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.input.Validate())
		})
	}
}

func TestInvoiceInputApplyTotals(t *testing.T) {
	in := InvoiceInput{Subtotal: 10000, DiscountAmount: 1000}
	assert.True(t, in.ApplyTotals(decimal.RequireFromString("6.5")))
	assert.True(t, in.TaxRate.Equal(decimal.RequireFromString("6.5")))
	assert.Equal(t, Money(650), in.TaxAmount)
	assert.Equal(t, Money(9650), in.TotalAmount)

	// explicit amounts are kept
	in = InvoiceInput{Subtotal: 10000, TaxAmount: 1, TotalAmount: 5}
	assert.True(t, in.ApplyTotals(decimal.Zero))
	assert.Equal(t, Money(1), in.TaxAmount)
	assert.Equal(t, Money(5), in.TotalAmount)

	in = InvoiceInput{Subtotal: 100, DiscountAmount: 500}
	assert.False(t, in.ApplyTotals(decimal.Zero))
}

func TestPaymentInputValidate(t *testing.T) {
	p := PaymentInput{InvoiceID: "inv", Amount: 100, PaymentMethod: "  cash "}
	assert.Equal(t, "", p.Validate())
	assert.Equal(t, "cash", p.PaymentMethod)

	p = PaymentInput{InvoiceID: "inv", Amount: 0, PaymentMethod: "cash"}
	assert.Equal(t, "amount must be positive", p.Validate())
}

func TestJobInputValidateDefaultsStatus(t *testing.T) {
	j := JobInput{Title: "Oil change"}
	assert.Equal(t, "", j.Validate())
	assert.Equal(t, JobPending, j.Status)

	j = JobInput{Title: "Oil change", Status: "waiting"}
	assert.NotEqual(t, "", j.Validate())
}

func TestVehicleInputValidate(t *testing.T) {
	year := 1850
	v := VehicleInput{ClientID: "c", Make: "Ford", Model: "Model T", Year: &year}
	assert.Equal(t, "year is out of range", v.Validate())
}

func TestInvoiceUpdateApply(t *testing.T) {
	money := func(m Money) *Money { return &m }
	str := func(s string) *string { return &s }
	due := "2024-04-14"
	cur := Invoice{
		IssueDate:      "2024-03-15",
		DueDate:        &due,
		Status:         InvoiceIssued,
		Subtotal:       10000,
		TaxRate:        decimal.RequireFromString("8"),
		TaxAmount:      800,
		DiscountAmount: 500,
		TotalAmount:    10300,
		Notes:          str("keep"),
	}

	t.Run("status only", func(t *testing.T) {
		u := InvoiceUpdate{Status: InvoiceCanceled}
		next, ok := u.Apply(cur)
		assert.True(t, ok)
		assert.Equal(t, InvoiceCanceled, next.Status)
		assert.Equal(t, cur.Subtotal, next.Subtotal)
		assert.Equal(t, cur.TaxAmount, next.TaxAmount)
		assert.Equal(t, cur.TotalAmount, next.TotalAmount)
		assert.Equal(t, "keep", *next.Notes)
		assert.Equal(t, due, *next.DueDate)
	})

	t.Run("subtotal recomputes tax and total", func(t *testing.T) {
		u := InvoiceUpdate{Subtotal: money(20000)}
		next, ok := u.Apply(cur)
		assert.True(t, ok)
		assert.Equal(t, Money(1600), next.TaxAmount)
		assert.Equal(t, Money(21100), next.TotalAmount)
	})

	t.Run("explicit amounts win", func(t *testing.T) {
		u := InvoiceUpdate{Subtotal: money(20000), TaxAmount: money(0), TotalAmount: money(19000)}
		next, ok := u.Apply(cur)
		assert.True(t, ok)
		assert.Equal(t, Money(0), next.TaxAmount)
		assert.Equal(t, Money(19000), next.TotalAmount)
	})

	t.Run("empty due date clears", func(t *testing.T) {
		u := InvoiceUpdate{DueDate: str("")}
		next, _ := u.Apply(cur)
		assert.Nil(t, next.DueDate)
		assert.NotNil(t, cur.DueDate)
	})

	t.Run("negative total", func(t *testing.T) {
		u := InvoiceUpdate{DiscountAmount: money(20000)}
		_, ok := u.Apply(cur)
		assert.False(t, ok)
	})
}

func TestInvoiceUpdateValidate(t *testing.T) {
	neg := Money(-1)
	assert.Equal(t, "amounts must be non-negative", (&InvoiceUpdate{TotalAmount: &neg}).Validate())
	assert.Equal(t, "status must be one of: draft, issued, paid, partial, overdue, canceled",
		(&InvoiceUpdate{Status: "sent"}).Validate())
	assert.Equal(t, "", (&InvoiceUpdate{}).Validate())
}
