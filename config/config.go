package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	DB      DBConfig
	HTTP    HTTPConfig
	Auth    AuthConfig
	Log     LogConfig
	Sweep   SweepConfig
	Invoice InvoiceConfig
}

type DBConfig struct {
	Driver string // sqlite, postgres
	Path   string // sqlite file path
	URL    string // postgres connection string
}

type HTTPConfig struct {
	Port string
}

type AuthConfig struct {
	User string
	Pass string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type SweepConfig struct {
	// Interval between overdue sweeps while serving. Zero disables the background sweeper.
	Interval time.Duration
}

type InvoiceConfig struct {
	PaymentTermsDays int
	DefaultTaxRate   decimal.Decimal
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal-style reads even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.path", "./data/garage.db")
	v.SetDefault("db.url", "")
	v.SetDefault("http.port", "8080")
	v.SetDefault("auth.user", "")
	v.SetDefault("auth.pass", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("sweep.interval", time.Hour)
	v.SetDefault("invoice.payment_terms_days", 30)
	v.SetDefault("invoice.default_tax_rate", "0")
}

// New returns a viper instance wired for GARAGE_* environment variables and an
// optional garage.yml. When file is non-empty it is used instead of the search path.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("garage")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.garage")
		v.AddConfigPath("/etc/garage")
	}

	v.SetEnvPrefix("GARAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (a missing file is not an error) and builds a validated Config.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	rate, err := decimal.NewFromString(v.GetString("invoice.default_tax_rate"))
	if err != nil {
		return Config{}, fmt.Errorf("invoice.default_tax_rate: %w", err)
	}

	cfg := Config{
		DB: DBConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("db.driver"))),
			Path:   v.GetString("db.path"),
			URL:    strings.TrimSpace(v.GetString("db.url")),
		},
		HTTP: HTTPConfig{
			Port: v.GetString("http.port"),
		},
		Auth: AuthConfig{
			User: v.GetString("auth.user"),
			Pass: v.GetString("auth.pass"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Sweep: SweepConfig{
			Interval: v.GetDuration("sweep.interval"),
		},
		Invoice: InvoiceConfig{
			PaymentTermsDays: v.GetInt("invoice.payment_terms_days"),
			DefaultTaxRate:   rate,
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return errors.New("db.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DB.URL == "" {
			return errors.New("db.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("db.driver must be one of: %s, %s", DriverSQLite, DriverPostgres)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("log.format must be one of: text, json")
	}
	if c.Sweep.Interval < 0 {
		return errors.New("sweep.interval must not be negative")
	}
	if c.Invoice.PaymentTermsDays < 0 {
		return errors.New("invoice.payment_terms_days must not be negative")
	}
	if c.Invoice.DefaultTaxRate.IsNegative() {
		return errors.New("invoice.default_tax_rate must not be negative")
	}
	return nil
}
