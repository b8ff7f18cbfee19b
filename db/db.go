package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/satheeshds/garage/config"
	_ "modernc.org/sqlite"
)

// Querier is the statement surface shared by the connection pool and an open
// transaction. Queries are written with ? placeholders for every driver.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store is the record store handle owned by the application's startup sequence.
type Store struct {
	db     *sql.DB
	driver string
}

// Open creates a database connection for the configured driver.
//
// For sqlite the file lives at cfg.Path (its directory is created when missing) and the
// connection runs in WAL mode with foreign keys on. Write transactions take the lock up
// front and the pool is capped at one connection, so the store serializes writers.
func Open(cfg config.DBConfig) (*Store, error) {
	var (
		sqlDB *sql.DB
		err   error
	)

	switch cfg.Driver {
	case config.DriverSQLite:
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
		dsn := "file:" + cfg.Path +
			"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" +
			"&_txlock=immediate&_time_format=sqlite"
		sqlDB, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	case config.DriverPostgres:
		sqlDB, err = sql.Open("pgx", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		slog.Info("database connected", "driver", cfg.Driver, "path", cfg.Path)
	} else {
		slog.Info("database connected", "driver", cfg.Driver)
	}
	return &Store{db: sqlDB, driver: cfg.Driver}, nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Driver() string { return s.driver }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

// InTx runs fn inside a single transaction. Any error returned by fn, or a panic,
// rolls back every statement fn issued; otherwise the transaction is committed.
func (s *Store) InTx(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&txQuerier{tx: tx, store: s}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txQuerier struct {
	tx    *sql.Tx
	store *Store
}

func (q *txQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.tx.ExecContext(ctx, q.store.rebind(query), args...)
}

func (q *txQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return q.tx.QueryRowContext(ctx, q.store.rebind(query), args...)
}

func (q *txQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.tx.QueryContext(ctx, q.store.rebind(query), args...)
}

func (s *Store) rebind(query string) string {
	if s.driver != config.DriverPostgres {
		return query
	}
	return Rebind(query)
}

// Rebind rewrites ? placeholders into $1, $2, ... skipping quoted literals.
func Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
