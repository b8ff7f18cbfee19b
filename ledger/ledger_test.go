package ledger

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/satheeshds/garage/clock"
	"github.com/satheeshds/garage/config"
	"github.com/satheeshds/garage/db"
	"github.com/satheeshds/garage/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type fixture struct {
	ctx    context.Context
	store  *db.Store
	clock  *clock.FakeClock
	ledger *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := db.Open(config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, db.Migrate(context.Background(), store))

	clk := clock.NewFakeClock(testNow)
	return &fixture{
		ctx:   context.Background(),
		store: store,
		clock: clk,
		ledger: New(Params{
			Store:            store,
			Clock:            clk,
			Log:              slog.New(slog.NewTextHandler(io.Discard, nil)),
			PaymentTermsDays: 30,
		}),
	}
}

// newJob inserts a completed job and returns its id.
func (f *fixture) newJob(t *testing.T, title string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := f.store.ExecContext(f.ctx,
		`INSERT INTO jobs (id, title, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, title, models.JobCompleted, testNow, testNow)
	require.NoError(t, err)
	return id
}

// newInvoice invoices a fresh job for total cents with no tax.
func (f *fixture) newInvoice(t *testing.T, total models.Money) models.Invoice {
	t.Helper()
	inv, err := f.ledger.CreateInvoice(f.ctx, models.InvoiceInput{
		JobID:    f.newJob(t, "Brake pads"),
		Subtotal: total,
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) pay(t *testing.T, invoiceID string, amount models.Money, method string) models.Payment {
	t.Helper()
	p, err := f.ledger.AddPayment(f.ctx, models.PaymentInput{
		InvoiceID:     invoiceID,
		Amount:        amount,
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return p
}

type jobState struct {
	Status        models.JobStatus
	PaymentStatus sql.NullString
	PaymentMethod sql.NullString
	InvoiceNumber sql.NullString
}

func (f *fixture) job(t *testing.T, id string) jobState {
	t.Helper()
	var j jobState
	err := f.store.QueryRowContext(f.ctx,
		`SELECT status, payment_status, payment_method, invoice_number FROM jobs WHERE id = ?`, id).
		Scan(&j.Status, &j.PaymentStatus, &j.PaymentMethod, &j.InvoiceNumber)
	require.NoError(t, err)
	return j
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.store.QueryRowContext(f.ctx, query, args...).Scan(&n))
	return n
}

func rate(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func cents(m models.Money) *models.Money { return &m }
