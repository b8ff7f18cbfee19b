package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/satheeshds/garage/db"
	"github.com/satheeshds/garage/models"
)

// Derive is the only place an invoice's payment status is computed. The rules
// are evaluated in order, so an invoice with a zero total derives paid.
func Derive(totalPaid, invoiceTotal models.Money) models.InvoiceStatus {
	switch {
	case totalPaid >= invoiceTotal:
		return models.InvoicePaid
	case totalPaid > 0:
		return models.InvoicePartial
	default:
		return models.InvoiceIssued
	}
}

// JobStatusFor maps a derived invoice status onto the job lifecycle.
func JobStatusFor(s models.InvoiceStatus) models.JobStatus {
	if s == models.InvoicePaid {
		return models.JobPaid
	}
	return models.JobInvoiced
}

// paymentStatusFor projects a derived invoice status onto Job.paymentStatus.
// Derive only yields issued, partial or paid, which share their names.
func paymentStatusFor(s models.InvoiceStatus) models.PaymentStatus {
	return models.PaymentStatus(s)
}

type invoiceRef struct {
	id     string
	jobID  string
	number string
	total  models.Money
}

func loadInvoiceRef(ctx context.Context, q db.Querier, id string) (invoiceRef, error) {
	ref := invoiceRef{id: id}
	err := q.QueryRowContext(ctx, `SELECT job_id, invoice_number, total_amount FROM invoices WHERE id = ?`, id).
		Scan(&ref.jobID, &ref.number, &ref.total)
	return ref, err
}

func sumPayments(ctx context.Context, q db.Querier, invoiceID string) (models.Money, error) {
	var paid models.Money
	err := q.QueryRowContext(ctx,
		`SELECT CAST(COALESCE(SUM(amount), 0) AS BIGINT) FROM payments WHERE invoice_id = ?`, invoiceID).
		Scan(&paid)
	if err != nil {
		return 0, fmt.Errorf("summing payments: %w", err)
	}
	return paid, nil
}

// reconcile recomputes the invoice status from the payments currently visible
// to q and pushes it onto the invoice and its job. A non-empty method is
// stamped onto the job as the latest payment method.
func reconcile(ctx context.Context, q db.Querier, inv invoiceRef, method string, now time.Time) (models.InvoiceStatus, error) {
	paid, err := sumPayments(ctx, q, inv.id)
	if err != nil {
		return "", err
	}
	status := Derive(paid, inv.total)

	if _, err := q.ExecContext(ctx, `UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		status, now.UTC(), inv.id); err != nil {
		return "", fmt.Errorf("updating invoice status: %w", err)
	}

	var methodArg any
	if method != "" {
		methodArg = method
	}
	if _, err := q.ExecContext(ctx, `UPDATE jobs SET payment_status = ?, status = ?,
		payment_method = COALESCE(?, payment_method), updated_at = ? WHERE id = ?`,
		paymentStatusFor(status), JobStatusFor(status), methodArg, now.UTC(), inv.jobID); err != nil {
		return "", fmt.Errorf("updating job status: %w", err)
	}
	return status, nil
}
