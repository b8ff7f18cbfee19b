package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/satheeshds/garage/db"
	"github.com/satheeshds/garage/models"
)

// maxNumberAttempts bounds how often CreateInvoice regenerates a number that
// lost a race against a concurrent insert.
const maxNumberAttempts = 3

const invoiceSelectQuery = `SELECT i.id, i.job_id, i.invoice_number, i.issue_date, i.due_date, i.status,
		i.subtotal, i.tax_rate, i.tax_amount, i.discount_amount, i.total_amount, i.notes, i.terms,
		i.created_at, i.updated_at,
		CAST(COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.invoice_id = i.id), 0) AS BIGINT)
		FROM invoices i`

func scanInvoice(scanner interface{ Scan(...any) error }) (models.Invoice, error) {
	var inv models.Invoice
	err := scanner.Scan(&inv.ID, &inv.JobID, &inv.InvoiceNumber, &inv.IssueDate, &inv.DueDate, &inv.Status,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.DiscountAmount, &inv.TotalAmount, &inv.Notes, &inv.Terms,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.AmountPaid)
	if err == nil {
		inv.BalanceDue = inv.TotalAmount - inv.AmountPaid
	}
	return inv, err
}

func (l *Ledger) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	inv, err := scanInvoice(l.store.QueryRowContext(ctx, invoiceSelectQuery+" WHERE i.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invoice{}, notFound("invoice", id)
	}
	if err != nil {
		return models.Invoice{}, l.fail(ctx, "get invoice", err, "invoice_id", id)
	}
	return inv, nil
}

func (l *Ledger) GetInvoiceByNumber(ctx context.Context, number string) (models.Invoice, error) {
	inv, err := scanInvoice(l.store.QueryRowContext(ctx, invoiceSelectQuery+" WHERE i.invoice_number = ?", number))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invoice{}, notFound("invoice", number)
	}
	if err != nil {
		return models.Invoice{}, l.fail(ctx, "get invoice", err, "invoice_number", number)
	}
	return inv, nil
}

// InvoiceFilter narrows ListInvoices. Empty fields do not filter.
type InvoiceFilter struct {
	Status models.InvoiceStatus
	JobID  string
	From   string // issue_date >= From
	To     string // issue_date <= To
	Search string // invoice number, notes or job title
}

func (l *Ledger) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	query := invoiceSelectQuery
	var conditions []string
	var args []any

	if f.Status != "" {
		conditions = append(conditions, "i.status = ?")
		args = append(args, f.Status)
	}
	if f.JobID != "" {
		conditions = append(conditions, "i.job_id = ?")
		args = append(args, f.JobID)
	}
	if f.From != "" {
		conditions = append(conditions, "i.issue_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		conditions = append(conditions, "i.issue_date <= ?")
		args = append(args, f.To)
	}
	if f.Search != "" {
		conditions = append(conditions,
			"(i.invoice_number LIKE ? OR i.notes LIKE ? OR EXISTS (SELECT 1 FROM jobs j WHERE j.id = i.job_id AND j.title LIKE ?))")
		s := "%" + f.Search + "%"
		args = append(args, s, s, s)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY i.created_at DESC, i.invoice_number DESC"

	rows, err := l.store.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, l.fail(ctx, "list invoices", err)
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, l.fail(ctx, "list invoices", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, l.fail(ctx, "list invoices", err)
	}
	return invoices, nil
}

// CreateInvoice invoices a job. The invoice row and the job's invoice marker
// and status are written in one transaction. A job whose invoice_number points
// at a non-canceled invoice cannot be invoiced again.
func (l *Ledger) CreateInvoice(ctx context.Context, input models.InvoiceInput) (models.Invoice, error) {
	const op = "create invoice"

	input.JobID = strings.TrimSpace(input.JobID)
	if input.JobID == "" {
		return models.Invoice{}, l.fail(ctx, op, invalidInput("job_id is required"))
	}
	if msg := input.Validate(); msg != "" {
		return models.Invoice{}, l.fail(ctx, op, invalidInput(msg), "job_id", input.JobID)
	}
	if input.Status == "" {
		input.Status = models.InvoiceIssued
	}
	if input.Status != models.InvoiceDraft && input.Status != models.InvoiceIssued {
		return models.Invoice{}, l.fail(ctx, op, invalidInput("a new invoice must be draft or issued"), "job_id", input.JobID)
	}
	if !input.ApplyTotals(l.defaultTaxRate) {
		return models.Invoice{}, l.fail(ctx, op, invalidInput("discount_amount exceeds subtotal plus tax"), "job_id", input.JobID)
	}

	now := l.clock.Now()
	if input.IssueDate == "" {
		input.IssueDate = now.Format(models.DateLayout)
	}
	if input.DueDate == nil || *input.DueDate == "" {
		issued, err := time.Parse(models.DateLayout, input.IssueDate)
		if err != nil {
			return models.Invoice{}, l.fail(ctx, op, invalidInput("issue_date must be formatted YYYY-MM-DD"))
		}
		due := issued.AddDate(0, 0, l.termsDays).Format(models.DateLayout)
		input.DueDate = &due
	}

	id := uuid.NewString()
	generated := input.InvoiceNumber == ""

	var (
		number string
		err    error
	)
	for attempt := 1; ; attempt++ {
		err = l.store.InTx(ctx, func(q db.Querier) error {
			number = input.InvoiceNumber
			if generated {
				var genErr error
				if number, genErr = GenerateInvoiceNumber(ctx, q, now); genErr != nil {
					return genErr
				}
			}
			return insertInvoice(ctx, q, id, number, input, now)
		})
		if err == nil || !generated || !db.IsUniqueViolation(err) || attempt == maxNumberAttempts {
			break
		}
		l.metrics.numberRetried()
		l.log.Warn("invoice number taken, retrying", "invoice_number", number, "attempt", attempt)
	}
	if err != nil {
		if !generated && db.IsUniqueViolation(err) {
			err = fmt.Errorf("%w: %s", ErrDuplicateInvoiceNumber, number)
		}
		return models.Invoice{}, l.fail(ctx, op, err, "job_id", input.JobID)
	}

	l.metrics.invoiceCreated()
	l.log.Info("invoice created", "invoice_id", id, "invoice_number", number, "job_id", input.JobID,
		"total", input.TotalAmount.String())
	return l.GetInvoice(ctx, id)
}

func insertInvoice(ctx context.Context, q db.Querier, id, number string, in models.InvoiceInput, now time.Time) error {
	var current sql.NullString
	err := q.QueryRowContext(ctx, `SELECT invoice_number FROM jobs WHERE id = ?`, in.JobID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("job", in.JobID)
	}
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}

	if current.Valid && current.String != "" {
		var status models.InvoiceStatus
		err := q.QueryRowContext(ctx, `SELECT status FROM invoices WHERE invoice_number = ?`, current.String).Scan(&status)
		switch {
		case err == nil && status != models.InvoiceCanceled:
			return fmt.Errorf("%w: %s", ErrActiveInvoice, current.String)
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("loading active invoice: %w", err)
		}
	}

	ts := now.UTC()
	_, err = q.ExecContext(ctx, `INSERT INTO invoices (id, job_id, invoice_number, issue_date, due_date, status,
		subtotal, tax_rate, tax_amount, discount_amount, total_amount, notes, terms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.JobID, number, in.IssueDate, in.DueDate, in.Status,
		in.Subtotal, *in.TaxRate, in.TaxAmount, in.DiscountAmount, in.TotalAmount, in.Notes, in.Terms, ts, ts)
	if err != nil {
		return fmt.Errorf("inserting invoice: %w", err)
	}

	_, err = q.ExecContext(ctx, `UPDATE jobs SET invoice_number = ?, status = ?, payment_status = ?, updated_at = ?
		WHERE id = ?`,
		number, models.JobInvoiced, models.PaymentIssued, ts, in.JobID)
	if err != nil {
		return fmt.Errorf("marking job invoiced: %w", err)
	}
	return nil
}

// UpdateInvoice applies the supplied fields to an invoice and keeps the rest.
// Job id and invoice number are fixed at creation. Setting status paid marks
// the job paid; setting partial marks only its payment status. Any other status
// leaves the job alone.
func (l *Ledger) UpdateInvoice(ctx context.Context, id string, input models.InvoiceUpdate) (models.Invoice, error) {
	const op = "update invoice"

	if msg := input.Validate(); msg != "" {
		return models.Invoice{}, l.fail(ctx, op, invalidInput(msg), "invoice_id", id)
	}

	now := l.clock.Now().UTC()
	var next models.Invoice
	err := l.store.InTx(ctx, func(q db.Querier) error {
		cur, err := scanInvoice(q.QueryRowContext(ctx, invoiceSelectQuery+" WHERE i.id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("invoice", id)
		}
		if err != nil {
			return fmt.Errorf("loading invoice: %w", err)
		}

		var ok bool
		next, ok = input.Apply(cur)
		if next.DueDate != nil && *next.DueDate < next.IssueDate {
			return invalidInput("due_date must not be before issue_date")
		}
		if !ok {
			return invalidInput("discount_amount exceeds subtotal plus tax")
		}

		if _, err := q.ExecContext(ctx, `UPDATE invoices SET issue_date = ?, due_date = ?, status = ?,
			subtotal = ?, tax_rate = ?, tax_amount = ?, discount_amount = ?, total_amount = ?,
			notes = ?, terms = ?, updated_at = ? WHERE id = ?`,
			next.IssueDate, next.DueDate, next.Status,
			next.Subtotal, next.TaxRate, next.TaxAmount, next.DiscountAmount, next.TotalAmount,
			next.Notes, next.Terms, now, id); err != nil {
			return fmt.Errorf("updating invoice: %w", err)
		}

		switch input.Status {
		case models.InvoicePaid:
			_, err = q.ExecContext(ctx, `UPDATE jobs SET status = ?, payment_status = ?, updated_at = ? WHERE id = ?`,
				models.JobPaid, models.PaymentPaid, now, cur.JobID)
		case models.InvoicePartial:
			_, err = q.ExecContext(ctx, `UPDATE jobs SET payment_status = ?, updated_at = ? WHERE id = ?`,
				models.PaymentPartial, now, cur.JobID)
		}
		if err != nil {
			return fmt.Errorf("updating job status: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Invoice{}, l.fail(ctx, op, err, "invoice_id", id)
	}

	l.log.Info("invoice updated", "invoice_id", id, "status", next.Status, "total", next.TotalAmount.String())
	return l.GetInvoice(ctx, id)
}

// DeleteInvoice removes an invoice together with its payments and reports
// false when there was nothing to delete. The job returns to completed only if
// it is still invoiced under this invoice's number; a job that has moved on
// (paid, or re-invoiced) keeps its state.
func (l *Ledger) DeleteInvoice(ctx context.Context, id string) (bool, error) {
	const op = "delete invoice"

	now := l.clock.Now().UTC()
	found := false
	err := l.store.InTx(ctx, func(q db.Querier) error {
		inv, err := loadInvoiceRef(ctx, q, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading invoice: %w", err)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM payments WHERE invoice_id = ?`, id); err != nil {
			return fmt.Errorf("deleting payments: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting invoice: %w", err)
		}
		if _, err := q.ExecContext(ctx, `UPDATE jobs SET invoice_number = NULL, payment_status = NULL, status = ?,
			updated_at = ? WHERE id = ? AND status = ? AND invoice_number = ?`,
			models.JobCompleted, now, inv.jobID, models.JobInvoiced, inv.number); err != nil {
			return fmt.Errorf("reverting job: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return false, l.fail(ctx, op, err, "invoice_id", id)
	}
	if found {
		l.metrics.invoiceDeleted()
		l.log.Info("invoice deleted", "invoice_id", id)
	}
	return found, nil
}

// MarkOverdueInvoices moves every issued or partial invoice whose due date is
// before today to overdue and returns how many changed. Paid, canceled, draft
// and already overdue invoices are never touched, so a second run with no
// newly late invoices changes nothing. Job fields are left as they are.
func (l *Ledger) MarkOverdueInvoices(ctx context.Context) (int64, error) {
	const op = "mark overdue invoices"

	now := l.clock.Now()
	today := now.Format(models.DateLayout)
	res, err := l.store.ExecContext(ctx, `UPDATE invoices SET status = ?, updated_at = ?
		WHERE status IN (?, ?) AND due_date IS NOT NULL AND due_date < ?`,
		models.InvoiceOverdue, now.UTC(), models.InvoiceIssued, models.InvoicePartial, today)
	if err != nil {
		return 0, l.fail(ctx, op, err, "today", today)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, l.fail(ctx, op, err, "today", today)
	}

	l.metrics.invoicesOverdue(n)
	if n > 0 {
		l.log.Info("invoices marked overdue", "count", n, "today", today)
	}
	return n, nil
}
