// Package postgres is the Postgres ledger store, built on pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
	"kharcha/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	insertEntrySQL = `INSERT INTO ledger_entries
		(item_name, amount, category, kind, entry_date, emoji, source_note)
		VALUES ($1, $2::numeric, $3, $4, $5::date, $6, $7)
		RETURNING id`
	selectEntriesSQL = `SELECT id, item_name, amount::text, category, kind, to_char(entry_date, 'YYYY-MM-DD'), emoji, source_note
		FROM ledger_entries
		ORDER BY entry_date DESC, id DESC`
	deleteEntrySQL = `DELETE FROM ledger_entries WHERE id = $1`
)

// Store is a ledger.Store over a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

var _ ledger.Store = (*Store)(nil)

// Open connects to dsn, applies migrations and returns a ready Store.
func Open(ctx context.Context, dsn string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger.WithComponent(log.ComponentStorage).With(log.FieldBackend, "postgres"),
	}, nil
}

// RunMigrations applies the embedded schema through golang-migrate's pgx driver.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrationURL(dsn))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// MigrationURL rewrites a postgres:// DSN to the pgx5:// scheme the migrate
// driver registers.
func MigrationURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Append inserts the batch in one transaction.
func (s *Store) Append(ctx context.Context, entries []core.LedgerEntry) ([]core.LedgerEntry, error) {
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	out := make([]core.LedgerEntry, len(entries))
	for i, e := range entries {
		var id int64
		err := tx.QueryRow(ctx, insertEntrySQL,
			e.ItemName, e.Amount.String(), e.Category, string(e.Kind),
			e.Date.String(), e.Emoji, e.SourceNote).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert entry %d: %w", i, err)
		}
		e.ID = strconv.FormatInt(id, 10)
		out[i] = e
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.InfoContext(ctx, "Ledger entries saved",
		log.FieldOperation, log.OpAppend,
		log.FieldCount, len(out))
	return out, nil
}

// Query returns every entry, newest first.
func (s *Store) Query(ctx context.Context) ([]core.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, selectEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.LedgerEntry, error) {
		var (
			id                 int64
			amount, kind, date string
			e                  core.LedgerEntry
		)
		if err := row.Scan(&id, &e.ItemName, &amount, &e.Category, &kind, &date, &e.Emoji, &e.SourceNote); err != nil {
			return e, fmt.Errorf("scan entry: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return e, fmt.Errorf("entry %d: parse amount %q: %w", id, amount, err)
		}
		parsed, err := core.ParseDate(date)
		if err != nil {
			return e, fmt.Errorf("entry %d: %w", id, err)
		}
		e.ID = strconv.FormatInt(id, 10)
		e.Amount = d
		e.Kind = core.Kind(kind)
		e.Date = parsed
		return e, nil
	})
}

// Delete removes the entry with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return core.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, deleteEntrySQL, n)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	s.logger.InfoContext(ctx, "Ledger entry deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldEntryID, id)
	return nil
}
