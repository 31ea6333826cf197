// Package storage is the SQLite ledger store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
	"kharcha/internal/log"

	_ "modernc.org/sqlite"
)

const (
	insertEntrySQL = `INSERT INTO ledger_entries
		(item_name, amount, category, kind, entry_date, emoji, source_note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	selectEntriesSQL = `SELECT id, item_name, amount, category, kind, entry_date, emoji, source_note
		FROM ledger_entries
		ORDER BY entry_date DESC, id DESC`
	deleteEntrySQL = `DELETE FROM ledger_entries WHERE id = ?`
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps transactions simple.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage).With(log.FieldBackend, "sqlite")
	logger.Debug("Ledger schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append inserts the batch in one transaction.
func (r *SQLiteRepository) Append(ctx context.Context, entries []core.LedgerEntry) ([]core.LedgerEntry, error) {
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertEntrySQL)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	out := make([]core.LedgerEntry, len(entries))
	for i, e := range entries {
		res, err := stmt.ExecContext(ctx,
			e.ItemName, e.Amount.String(), e.Category, string(e.Kind),
			e.Date.String(), e.Emoji, e.SourceNote)
		if err != nil {
			return nil, fmt.Errorf("insert entry %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		e.ID = strconv.FormatInt(id, 10)
		out[i] = e
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	r.logger.InfoContext(ctx, "Ledger entries saved",
		log.FieldOperation, log.OpAppend,
		log.FieldCount, len(out))
	return out, nil
}

// Query returns every entry, newest first.
func (r *SQLiteRepository) Query(ctx context.Context) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// Delete removes the entry with the given id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return core.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, deleteEntrySQL, n)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Ledger entry deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldEntryID, id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (core.LedgerEntry, error) {
	var (
		id                 int64
		amount, kind, date string
		e                  core.LedgerEntry
	)
	if err := s.Scan(&id, &e.ItemName, &amount, &e.Category, &kind, &date, &e.Emoji, &e.SourceNote); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, core.ErrNotFound
		}
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
}
