/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package sqlite provides a SQLite-backed datastore.Store.
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/suparena/recoveryregistry/datastore"
	"github.com/suparena/recoveryregistry/datastore/sqlite/migrations"
	"github.com/suparena/recoveryregistry/errors"
	"github.com/suparena/recoveryregistry/keyspace"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const migrationTable = "schema_migrations"

// Store persists named keys and slots in SQLite. Each Update is one
// immediate-mode SQL transaction, so writers are serialized by the database.
// View and NamedKeys use a separate query-only handle with deferred
// transactions, so readers never take the write lock.
type Store struct {
	sqlDB  *sql.DB
	readDB *sql.DB
	newRef func() datastore.SlotRef
}

const (
	commonPragmas = "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	writerParams  = "?_txlock=immediate&_pragma=journal_mode(WAL)" + commonPragmas
	readerParams  = "?_txlock=deferred&_pragma=query_only(1)" + commonPragmas
)

// Open opens a SQLite slot store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	path = filepath.Clean(path)

	sqlDB, err := openDB(path + writerParams)
	if err != nil {
		return nil, err
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// opened after migrations so the file is already in WAL mode
	readDB, err := openDB(path + readerParams)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &Store{sqlDB: sqlDB, readDB: readDB, newRef: datastore.NewSlotRef}, nil
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

// Close closes both SQLite handles.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	var readErr error
	if s.readDB != nil {
		readErr = s.readDB.Close()
	}
	if err := s.sqlDB.Close(); err != nil {
		return err
	}
	return readErr
}

// Update implements datastore.Store.
func (s *Store) Update(ctx context.Context, fn func(tx datastore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}
	if err := fn(&tx{sqlTx: sqlTx, newRef: s.newRef}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// View implements datastore.Store.
func (s *Store) View(ctx context.Context, fn func(r datastore.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.readDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sqlTx, err := s.readDB.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}
	defer func() { _ = sqlTx.Rollback() }()
	return fn(&tx{sqlTx: sqlTx, readOnly: true})
}

// NamedKeys implements datastore.Store.
func (s *Store) NamedKeys(ctx context.Context) ([]datastore.NamedKey, error) {
	rows, err := s.readDB.QueryContext(ctx, `SELECT name, slot_ref FROM named_keys ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list named keys: %w", err)
	}
	defer rows.Close()

	var out []datastore.NamedKey
	for rows.Next() {
		var name, ref string
		if err := rows.Scan(&name, &ref); err != nil {
			return nil, fmt.Errorf("scan named key: %w", err)
		}
		out = append(out, datastore.NamedKey{Name: keyspace.SlotName(name), Ref: datastore.SlotRef(ref)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate named keys: %w", err)
	}
	return out, nil
}

type tx struct {
	sqlTx    *sql.Tx
	readOnly bool
	newRef   func() datastore.SlotRef
}

func (t *tx) GetKey(ctx context.Context, name keyspace.SlotName) (datastore.SlotRef, bool, error) {
	var ref string
	err := t.sqlTx.QueryRowContext(ctx, `SELECT slot_ref FROM named_keys WHERE name = ?`, string(name)).Scan(&ref)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select named key: %w", err)
	}
	return datastore.SlotRef(ref), true, nil
}

func (t *tx) Read(ctx context.Context, ref datastore.SlotRef) ([]byte, bool, error) {
	var value []byte
	err := t.sqlTx.QueryRowContext(ctx, `SELECT value FROM slots WHERE slot_ref = ?`, string(ref)).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select slot: %w", err)
	}
	return value, true, nil
}

func (t *tx) NewSlot(ctx context.Context) (datastore.SlotRef, error) {
	if t.readOnly {
		return "", errors.NewValidationError("tx", "read-only transaction")
	}
	ref := t.newRef()
	if _, err := t.sqlTx.ExecContext(ctx, `INSERT INTO slots (slot_ref, value) VALUES (?, x'')`, string(ref)); err != nil {
		return "", classify("insert slot", err)
	}
	return ref, nil
}

func (t *tx) PutKey(ctx context.Context, name keyspace.SlotName, ref datastore.SlotRef) error {
	if t.readOnly {
		return errors.NewValidationError("tx", "read-only transaction")
	}
	_, err := t.sqlTx.ExecContext(ctx,
		`INSERT INTO named_keys (name, slot_ref) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET slot_ref = excluded.slot_ref`,
		string(name), string(ref))
	if err != nil {
		return classify("put named key", err)
	}
	return nil
}

func (t *tx) Write(ctx context.Context, ref datastore.SlotRef, value []byte) error {
	if t.readOnly {
		return errors.NewValidationError("tx", "read-only transaction")
	}
	if value == nil {
		value = []byte{}
	}
	res, err := t.sqlTx.ExecContext(ctx, `UPDATE slots SET value = ? WHERE slot_ref = ?`, value, string(ref))
	if err != nil {
		return classify("update slot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if n == 0 {
		return errors.NewNotFoundError("slot", string(ref))
	}
	return nil
}

// classify maps SQLite contention to a condition failure so callers can tell
// a lost race from a broken database.
func classify(op string, err error) error {
	var sqliteErr *msqlite.Error
	if stderrors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w", op, errors.NewConditionFailedError(op, "database is locked"))
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%s: %w", op, errors.NewConditionFailedError(op, "unique key"))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// applyMigrations executes embedded migrations at most once per file.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)`, migrationTable)
	if _, err := sqlDB.Exec(createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if !stderrors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		upSQL := extractUp(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		mtx, err := sqlDB.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("begin migration transaction %s: %w", file, err)
		}
		if _, err := mtx.Exec(upSQL); err != nil {
			_ = mtx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := mtx.Exec(
			"INSERT OR IGNORE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = mtx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := mtx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// extractUp returns the SQL in the -- +migrate Up section.
func extractUp(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	upIdx := strings.Index(content, up)
	if upIdx == -1 {
		return content
	}
	rest := content[upIdx+len(up):]
	if downIdx := strings.Index(rest, down); downIdx != -1 {
		return rest[:downIdx]
	}
	return rest
}
