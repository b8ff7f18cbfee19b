package ledger

import (
	"context"

	"github.com/satheeshds/garage/models"
)

// Summary is the receivables picture shown on the dashboard.
type Summary struct {
	InvoiceCount int                          `json:"invoice_count"`
	ByStatus     map[models.InvoiceStatus]int `json:"by_status"`
	// Outstanding is total minus paid over issued, partial and overdue invoices.
	Outstanding models.Money `json:"outstanding"`
	// OverdueAmount is the part of Outstanding that is past due.
	OverdueAmount models.Money `json:"overdue_amount"`
	Collected     models.Money `json:"collected"`
}

func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	const op = "summary"

	s := Summary{ByStatus: map[models.InvoiceStatus]int{}}

	if err := l.store.QueryRowContext(ctx,
		`SELECT CAST(COALESCE(SUM(amount), 0) AS BIGINT) FROM payments`).Scan(&s.Collected); err != nil {
		return Summary{}, l.fail(ctx, op, err)
	}

	rows, err := l.store.QueryContext(ctx, `SELECT i.status, COUNT(*),
		CAST(COALESCE(SUM(i.total_amount - COALESCE(
			(SELECT SUM(p.amount) FROM payments p WHERE p.invoice_id = i.id), 0)), 0) AS BIGINT)
		FROM invoices i GROUP BY i.status`)
	if err != nil {
		return Summary{}, l.fail(ctx, op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status  models.InvoiceStatus
			count   int
			balance models.Money
		)
		if err := rows.Scan(&status, &count, &balance); err != nil {
			return Summary{}, l.fail(ctx, op, err)
		}
		s.ByStatus[status] = count
		s.InvoiceCount += count
		switch status {
		case models.InvoiceIssued, models.InvoicePartial:
			s.Outstanding += balance
		case models.InvoiceOverdue:
			s.Outstanding += balance
			s.OverdueAmount += balance
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, l.fail(ctx, op, err)
	}
	return s, nil
}
