package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satheeshds/garage/db"
)

const invoiceNumberPrefix = "INV-"

// GenerateInvoiceNumber returns the next INV-YYYYMMDD-NNNN for the day of now,
// one past the greatest numeric suffix already stored for that day. Suffixes
// are compared as numbers, so a day that outgrows four digits continues at
// 10000 and up.
//
// Two transactions running this concurrently can both read the same maximum;
// the unique index on invoice_number rejects the loser.
func GenerateInvoiceNumber(ctx context.Context, q db.Querier, now time.Time) (string, error) {
	prefix := invoiceNumberPrefix + now.Format("20060102") + "-"

	rows, err := q.QueryContext(ctx,
		`SELECT invoice_number FROM invoices WHERE invoice_number LIKE ?`,
		prefix+"%")
	if err != nil {
		return "", fmt.Errorf("reading invoice numbers: %w", err)
	}
	defer rows.Close()

	last := 0
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return "", fmt.Errorf("reading invoice numbers: %w", err)
		}
		// hand-entered numbers with a non-numeric tail are skipped
		if n, err := strconv.Atoi(strings.TrimPrefix(number, prefix)); err == nil && n > last {
			last = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading invoice numbers: %w", err)
	}

	return fmt.Sprintf("%s%04d", prefix, last+1), nil
}

// GenerateInvoiceNumber previews the number the next invoice created today would get.
func (l *Ledger) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	number, err := GenerateInvoiceNumber(ctx, l.store, l.clock.Now())
	if err != nil {
		return "", l.fail(ctx, "generate invoice number", err)
	}
	return number, nil
}
