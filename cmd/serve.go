package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/satheeshds/garage/clock"
	"github.com/satheeshds/garage/handlers"
	"github.com/satheeshds/garage/ledger"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the overdue sweeper",
	Example: `  garage serve --port 9090
  GARAGE_DB_DRIVER=postgres GARAGE_DB_URL=postgres://... garage serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "8080", "HTTP listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	log := slog.Default()
	clk := clock.New()
	l := ledger.New(ledger.Params{
		Store:            store,
		Clock:            clk,
		Log:              log,
		Metrics:          ledger.NewMetrics(registry),
		PaymentTermsDays: cfg.Invoice.PaymentTermsDays,
		DefaultTaxRate:   cfg.Invoice.DefaultTaxRate,
	})

	sweeper := ledger.NewSweeper(ledger.SweeperParams{Ledger: l, Interval: cfg.Sweep.Interval, Log: log})
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.RunForever(ctx)
	}()

	h := handlers.New(handlers.Params{Store: store, Ledger: l, Clock: clk, Log: log})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(handlers.BasicAuth(cfg.Auth.User, cfg.Auth.Pass))
		h.Routes(r)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	// The UI finds doc.json once `go generate` has run swag init and the
	// generated docs package is imported from main.
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		<-sweepDone
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-sweepDone
	slog.Info("server stopped")
	return nil
}
