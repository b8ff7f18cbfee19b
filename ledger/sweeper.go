package ledger

import (
	"context"
	"log/slog"
	"time"
)

type SweeperParams struct {
	Ledger   *Ledger
	Interval time.Duration
	Log      *slog.Logger
}

// Sweeper runs MarkOverdueInvoices on a fixed interval.
type Sweeper struct {
	ledger   *Ledger
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(p SweeperParams) *Sweeper {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		ledger:   p.Ledger,
		interval: p.Interval,
		log:      log.With("component", "sweeper"),
	}
}

// RunOnce performs a single overdue sweep and returns how many invoices moved.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.ledger.MarkOverdueInvoices(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Debug("overdue sweep finished", "marked", n, "duration", time.Since(start))
	return n, nil
}

// RunForever sweeps immediately and then once per interval until ctx is done.
// A failed sweep is logged and retried on the next tick.
func (s *Sweeper) RunForever(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("overdue sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("overdue sweeper started", "interval", s.interval)
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("overdue sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.log.Info("overdue sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
