// Package cmd wires configuration, logging and the store into the garage CLI.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/satheeshds/garage/config"
	"github.com/satheeshds/garage/db"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "1.0.0"

var (
	cfgFile string
	v       *viper.Viper
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "garage",
	Short: "Garage - job, invoice and payment ledger for an auto-repair shop",
	Long: `Garage keeps clients, vehicles and repair jobs together with the invoices
and payments raised against them. Recording or deleting a payment re-derives
the invoice status and mirrors it onto the job.

Configuration is read from garage.yml (., $HOME/.garage, /etc/garage),
GARAGE_* environment variables and the flags below, in increasing priority.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v = config.New(cfgFile)
		for key, flag := range map[string]string{
			"log.level": "log-level",
			"db.driver": "db-driver",
			"db.path":   "db-path",
		} {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
		if f := cmd.Flags().Lookup("port"); f != nil {
			if err := v.BindPFlag("http.port", f); err != nil {
				return fmt.Errorf("binding --port: %w", err)
			}
		}

		var err error
		if cfg, err = config.Load(v); err != nil {
			return err
		}
		slog.SetDefault(newLogger(cfg.Log, os.Stdout))
		if used := v.ConfigFileUsed(); used != "" {
			slog.Debug("config file loaded", "file", used)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: garage.yml in the search path)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("db-driver", config.DriverSQLite, "database driver: sqlite or postgres")
	rootCmd.PersistentFlags().String("db-path", "./data/garage.db", "sqlite database file")
}

// newLogger builds the process logger. An unknown level falls back to info.
func newLogger(c config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore opens the configured database and brings its schema up to date.
func openStore(cmd *cobra.Command) (*db.Store, error) {
	store, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(cmd.Context(), store); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
