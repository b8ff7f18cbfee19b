package cmd

import (
	"fmt"
	"log/slog"

	"github.com/satheeshds/garage/ledger"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark issued and partial invoices past their due date as overdue",
	Long: `Run a single overdue sweep and exit. Useful from cron when the server
runs with sweep.interval set to 0.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	l := ledger.New(ledger.Params{Store: store, Log: slog.Default()})
	n, err := ledger.NewSweeper(ledger.SweeperParams{Ledger: l, Log: slog.Default()}).RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d invoice(s) marked overdue\n", n)
	return nil
}
