package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quantmind-br/modctl/internal/core"
)

// DB is the durable store for one game installation: the install-log
// ledger, the active-mod set, the mod registry, and the pending add-queue.
// It keeps separate read/write pools; the write pool is capped at one
// connection so every mutation is serialized at the database level.
type DB struct {
	write *sql.DB
	read  *sql.DB
	path  string
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(ctx context.Context, dbPath string) (*DB, error) {
	// WAL keeps a half-written transaction from ever being visible after a
	// crash, which the ledger depends on.
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)

	write, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open write connection: %w", err)
	}
	write.SetMaxOpenConns(1)
	write.SetMaxIdleConns(1)
	write.SetConnMaxIdleTime(time.Minute)
	write.SetConnMaxLifetime(time.Hour)

	read, err := sql.Open("sqlite", connStr)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("open read connection: %w", err)
	}
	read.SetMaxOpenConns(10)
	read.SetMaxIdleConns(5)
	read.SetConnMaxIdleTime(time.Minute)
	read.SetConnMaxLifetime(time.Hour)

	db := &DB{write: write, read: read, path: dbPath}

	if err := db.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes both connection pools.
func (db *DB) Close() error {
	writeErr := db.write.Close()
	readErr := db.read.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

func (db *DB) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS ledger_entries (
    destination TEXT NOT NULL,
    position INTEGER NOT NULL,
    mod_key TEXT NOT NULL,
    source TEXT NOT NULL,
    PRIMARY KEY (destination, position)
);

CREATE INDEX IF NOT EXISTS idx_ledger_mod ON ledger_entries(mod_key);

CREATE TABLE IF NOT EXISTS active_mods (
    mod_key TEXT PRIMARY KEY,
    pinned INTEGER NOT NULL DEFAULT 0,
    activated_at DATETIME
);

CREATE TABLE IF NOT EXISTS mods (
    mod_key TEXT PRIMARY KEY,
    repo_id TEXT,
    name TEXT NOT NULL,
    version TEXT,
    category_id INTEGER NOT NULL DEFAULT 0,
    custom_category_id INTEGER NOT NULL DEFAULT -1,
    install_date DATETIME,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mods_name ON mods(name);

CREATE TABLE IF NOT EXISTS pending_packages (
    request_id TEXT PRIMARY KEY,
    location TEXT NOT NULL UNIQUE,
    enqueued_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    description TEXT
);
	`

	if _, err := db.write.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	_, err := db.write.ExecContext(ctx,
		"INSERT OR IGNORE INTO schema_migrations (version, description) VALUES (1, 'initial schema')")
	if err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return nil
}

// LedgerEntry is one row of a destination path's precedence stack,
// position 0 being the oldest layer.
type LedgerEntry struct {
	ModKey string
	Source string
}

// ReplacePathEntries replaces the whole stack stored for destination in one
// transaction. An empty slice clears the path.
func (db *DB) ReplacePathEntries(ctx context.Context, destination string, entries []LedgerEntry) error {
	tx, err := db.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM ledger_entries WHERE destination = ?", destination); err != nil {
		return fmt.Errorf("clear path entries: %w", err)
	}

	for i, e := range entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO ledger_entries (destination, position, mod_key, source) VALUES (?, ?, ?, ?)",
			destination, i, e.ModKey, e.Source)
		if err != nil {
			return fmt.Errorf("insert path entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit path entries: %w", err)
	}
	return nil
}

// LoadLedger reads every destination's stack, ordered by position.
func (db *DB) LoadLedger(ctx context.Context) (map[string][]LedgerEntry, error) {
	rows, err := db.read.QueryContext(ctx,
		"SELECT destination, mod_key, source FROM ledger_entries ORDER BY destination, position")
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	ledger := make(map[string][]LedgerEntry)
	for rows.Next() {
		var dest string
		var e LedgerEntry
		if err := rows.Scan(&dest, &e.ModKey, &e.Source); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		ledger[dest] = append(ledger[dest], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ledger, nil
}

// ActiveMod is one row of the active-mod set. Pinned marks mods explicitly
// activated, which stay active even when they own zero files.
type ActiveMod struct {
	ModKey      string
	Pinned      bool
	ActivatedAt time.Time
}

// UpsertActive inserts or updates an active-mod row.
func (db *DB) UpsertActive(ctx context.Context, mod ActiveMod) error {
	_, err := db.write.ExecContext(ctx,
		`INSERT INTO active_mods (mod_key, pinned, activated_at) VALUES (?, ?, ?)
		 ON CONFLICT(mod_key) DO UPDATE SET pinned = excluded.pinned, activated_at = excluded.activated_at`,
		mod.ModKey, mod.Pinned, mod.ActivatedAt)
	if err != nil {
		return fmt.Errorf("upsert active mod: %w", err)
	}
	return nil
}

// DeleteActive removes a mod from the active set. Missing rows are not an
// error.
func (db *DB) DeleteActive(ctx context.Context, modKey string) error {
	if _, err := db.write.ExecContext(ctx, "DELETE FROM active_mods WHERE mod_key = ?", modKey); err != nil {
		return fmt.Errorf("delete active mod: %w", err)
	}
	return nil
}

// LoadActive reads the persisted active-mod set.
func (db *DB) LoadActive(ctx context.Context) ([]ActiveMod, error) {
	rows, err := db.read.QueryContext(ctx, "SELECT mod_key, pinned, activated_at FROM active_mods")
	if err != nil {
		return nil, fmt.Errorf("query active mods: %w", err)
	}
	defer rows.Close()

	var mods []ActiveMod
	for rows.Next() {
		var m ActiveMod
		var at sql.NullTime
		if err := rows.Scan(&m.ModKey, &m.Pinned, &at); err != nil {
			return nil, fmt.Errorf("scan active mod: %w", err)
		}
		if at.Valid {
			m.ActivatedAt = at.Time
		}
		mods = append(mods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return mods, nil
}

// SaveMod inserts or updates a registry record. The payload is stored as
// JSON alongside the scalar columns.
func (db *DB) SaveMod(ctx context.Context, mod *core.Mod) error {
	payloadJSON, err := json.Marshal(mod.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var installDate sql.NullTime
	if mod.InstallDate != nil {
		installDate = sql.NullTime{Time: *mod.InstallDate, Valid: true}
	}

	_, err = db.write.ExecContext(ctx,
		`INSERT INTO mods (mod_key, repo_id, name, version, category_id, custom_category_id, install_date, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(mod_key) DO UPDATE SET
		   repo_id = excluded.repo_id, name = excluded.name, version = excluded.version,
		   category_id = excluded.category_id, custom_category_id = excluded.custom_category_id,
		   install_date = excluded.install_date, payload = excluded.payload`,
		mod.Key, mod.ID, mod.Name, mod.Version, mod.CategoryID, mod.CustomCategoryID,
		installDate, string(payloadJSON))
	if err != nil {
		return fmt.Errorf("save mod: %w", err)
	}
	return nil
}

// GetMod retrieves one registry record by key.
func (db *DB) GetMod(ctx context.Context, modKey string) (*core.Mod, error) {
	row := db.read.QueryRowContext(ctx,
		`SELECT mod_key, repo_id, name, version, category_id, custom_category_id, install_date, payload
		 FROM mods WHERE mod_key = ?`, modKey)

	mod, err := scanMod(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query mod: %w", err)
	}
	return mod, nil
}

// ListMods retrieves every registry record, name order.
func (db *DB) ListMods(ctx context.Context) ([]*core.Mod, error) {
	rows, err := db.read.QueryContext(ctx,
		`SELECT mod_key, repo_id, name, version, category_id, custom_category_id, install_date, payload
		 FROM mods ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query mods: %w", err)
	}
	defer rows.Close()

	var mods []*core.Mod
	for rows.Next() {
		mod, err := scanMod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mod: %w", err)
		}
		mods = append(mods, mod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return mods, nil
}

// DeleteMod removes a registry record.
func (db *DB) DeleteMod(ctx context.Context, modKey string) error {
	result, err := db.write.ExecContext(ctx, "DELETE FROM mods WHERE mod_key = ?", modKey)
	if err != nil {
		return fmt.Errorf("delete mod: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMod(row rowScanner) (*core.Mod, error) {
	var mod core.Mod
	var repoID, version sql.NullString
	var installDate sql.NullTime
	var payloadJSON string

	err := row.Scan(&mod.Key, &repoID, &mod.Name, &version, &mod.CategoryID,
		&mod.CustomCategoryID, &installDate, &payloadJSON)
	if err != nil {
		return nil, err
	}

	mod.ID = repoID.String
	mod.Version = version.String
	if installDate.Valid {
		t := installDate.Time
		mod.InstallDate = &t
	}
	if err := json.Unmarshal([]byte(payloadJSON), &mod.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	return &mod, nil
}

// PendingPackage is one persisted add-queue row.
type PendingPackage struct {
	RequestID  string
	Location   string
	EnqueuedAt time.Time
}

// EnqueuePending persists an add-queue entry. A row left behind by an
// earlier failed attempt at the same location is reclaimed by the new
// request, so a same-session retry re-queues instead of tripping the
// UNIQUE constraint.
func (db *DB) EnqueuePending(ctx context.Context, requestID, location string) error {
	_, err := db.write.ExecContext(ctx,
		`INSERT INTO pending_packages (request_id, location) VALUES (?, ?)
		 ON CONFLICT(location) DO UPDATE SET request_id = excluded.request_id`, requestID, location)
	if err != nil {
		return fmt.Errorf("enqueue package: %w", err)
	}
	return nil
}

// DeletePending removes a processed add-queue entry.
func (db *DB) DeletePending(ctx context.Context, requestID string) error {
	if _, err := db.write.ExecContext(ctx, "DELETE FROM pending_packages WHERE request_id = ?", requestID); err != nil {
		return fmt.Errorf("delete pending package: %w", err)
	}
	return nil
}

// ListPending reads persisted add-queue entries in arrival order.
func (db *DB) ListPending(ctx context.Context) ([]PendingPackage, error) {
	rows, err := db.read.QueryContext(ctx,
		"SELECT request_id, location, enqueued_at FROM pending_packages ORDER BY enqueued_at")
	if err != nil {
		return nil, fmt.Errorf("query pending packages: %w", err)
	}
	defer rows.Close()

	var pending []PendingPackage
	for rows.Next() {
		var p PendingPackage
		if err := rows.Scan(&p.RequestID, &p.Location, &p.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("scan pending package: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return pending, nil
}
