package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/satheeshds/garage/db"
	"github.com/satheeshds/garage/models"
)

const paymentSelectQuery = `SELECT id, invoice_id, amount, payment_method, payment_date, notes, created_at FROM payments`

func scanPayment(scanner interface{ Scan(...any) error }) (models.Payment, error) {
	var p models.Payment
	err := scanner.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaymentMethod, &p.PaymentDate, &p.Notes, &p.CreatedAt)
	return p, err
}

// AddPayment records a payment and re-derives the status of its invoice and
// job from the sum of all payments, this one included.
func (l *Ledger) AddPayment(ctx context.Context, input models.PaymentInput) (models.Payment, error) {
	const op = "add payment"

	if msg := input.Validate(); msg != "" {
		return models.Payment{}, l.fail(ctx, op, invalidInput(msg), "invoice_id", input.InvoiceID)
	}
	now := l.clock.Now()
	if input.PaymentDate == "" {
		input.PaymentDate = now.Format(models.DateLayout)
	}

	id := uuid.NewString()
	var status models.InvoiceStatus
	err := l.store.InTx(ctx, func(q db.Querier) error {
		inv, err := loadInvoiceRef(ctx, q, input.InvoiceID)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("invoice", input.InvoiceID)
		}
		if err != nil {
			return fmt.Errorf("loading invoice: %w", err)
		}

		if _, err := q.ExecContext(ctx, `INSERT INTO payments (id, invoice_id, amount, payment_method, payment_date, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, inv.id, input.Amount, input.PaymentMethod, input.PaymentDate, input.Notes, now.UTC()); err != nil {
			return fmt.Errorf("inserting payment: %w", err)
		}

		status, err = reconcile(ctx, q, inv, input.PaymentMethod, now)
		return err
	})
	if err != nil {
		return models.Payment{}, l.fail(ctx, op, err, "invoice_id", input.InvoiceID)
	}

	l.metrics.paymentRecorded("add")
	l.log.Info("payment recorded", "payment_id", id, "invoice_id", input.InvoiceID,
		"amount", input.Amount.String(), "method", input.PaymentMethod, "invoice_status", status)
	return l.GetPayment(ctx, id)
}

// DeletePayment removes a payment and re-derives its invoice and job status
// from the payments that remain. The job keeps its last payment method.
func (l *Ledger) DeletePayment(ctx context.Context, id string) (bool, error) {
	const op = "delete payment"

	now := l.clock.Now()
	var (
		found  bool
		status models.InvoiceStatus
	)
	err := l.store.InTx(ctx, func(q db.Querier) error {
		var invoiceID string
		err := q.QueryRowContext(ctx, `SELECT invoice_id FROM payments WHERE id = ?`, id).Scan(&invoiceID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading payment: %w", err)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting payment: %w", err)
		}

		inv, err := loadInvoiceRef(ctx, q, invoiceID)
		if err != nil {
			return fmt.Errorf("loading invoice: %w", err)
		}
		if status, err = reconcile(ctx, q, inv, "", now); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, l.fail(ctx, op, err, "payment_id", id)
	}
	if found {
		l.metrics.paymentRecorded("delete")
		l.log.Info("payment deleted", "payment_id", id, "invoice_status", status)
	}
	return found, nil
}

func (l *Ledger) GetPayment(ctx context.Context, id string) (models.Payment, error) {
	p, err := scanPayment(l.store.QueryRowContext(ctx, paymentSelectQuery+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, notFound("payment", id)
	}
	if err != nil {
		return models.Payment{}, l.fail(ctx, "get payment", err, "payment_id", id)
	}
	return p, nil
}

// ListPayments returns the payments against one invoice, newest first.
func (l *Ledger) ListPayments(ctx context.Context, invoiceID string) ([]models.Payment, error) {
	rows, err := l.store.QueryContext(ctx,
		paymentSelectQuery+" WHERE invoice_id = ? ORDER BY payment_date DESC, created_at DESC", invoiceID)
	if err != nil {
		return nil, l.fail(ctx, "list payments", err, "invoice_id", invoiceID)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, l.fail(ctx, "list payments", err, "invoice_id", invoiceID)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, l.fail(ctx, "list payments", err, "invoice_id", invoiceID)
	}
	return payments, nil
}
