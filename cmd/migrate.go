package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/satheeshds/garage/config"
	"github.com/satheeshds/garage/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply, roll back or list database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	action := "up"
	if len(args) == 1 {
		action = args[0]
	}

	store, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	switch action {
	case "up":
		return db.Migrate(ctx, store)
	case "down":
		return db.Rollback(ctx, store)
	default:
		states, err := db.MigrationStatus(ctx, store)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tFILE\tAPPLIED")
		for _, s := range states {
			fmt.Fprintf(tw, "%d\t%s\t%t\n", s.Version, s.File, s.Applied)
		}
		if cfg.DB.Driver == config.DriverSQLite {
			fmt.Fprintf(tw, "\ndatabase: %s\n", cfg.DB.Path)
		}
		return tw.Flush()
	}
}
