// Package ledger keeps invoices, payments and the invoiced job consistent.
//
// Every write that changes what has been paid against an invoice recomputes the
// invoice status from scratch with Derive and mirrors it onto the job in the
// same transaction. The overdue sweep is the only time-driven transition.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/satheeshds/garage/clock"
	"github.com/satheeshds/garage/db"
	"github.com/shopspring/decimal"
)

// Store is the record store the ledger writes through. InTx must run fn
// atomically and roll back everything fn did when it returns an error.
type Store interface {
	db.Querier
	InTx(ctx context.Context, fn func(q db.Querier) error) error
}

type Params struct {
	Store   Store
	Clock   clock.Clock
	Log     *slog.Logger
	Metrics *Metrics

	// PaymentTermsDays sets the default due date relative to the issue date.
	PaymentTermsDays int
	// DefaultTaxRate, in percent, applies to invoice inputs without a tax rate.
	DefaultTaxRate decimal.Decimal
}

type Ledger struct {
	store          Store
	clock          clock.Clock
	log            *slog.Logger
	metrics        *Metrics
	termsDays      int
	defaultTaxRate decimal.Decimal
}

func New(p Params) *Ledger {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Ledger{
		store:          p.Store,
		clock:          clk,
		log:            log.With("component", "ledger"),
		metrics:        p.Metrics,
		termsDays:      p.PaymentTermsDays,
		defaultTaxRate: p.DefaultTaxRate,
	}
}

// fail logs err where it was caught and hands it back to the caller.
func (l *Ledger) fail(ctx context.Context, op string, err error, args ...any) error {
	level := slog.LevelError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrActiveInvoice) || errors.Is(err, ErrDuplicateInvoiceNumber) {
		level = slog.LevelWarn
	}
	l.log.Log(ctx, level, op+" failed", append(args, "error", err)...)
	return err
}
