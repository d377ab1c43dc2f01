package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"go-amadeus/internal/models"
)

type Database struct {
	db *sql.DB
}

// Open creates the database file if needed, applies pragmas and brings the
// schema up to date. Calling it again on an existing file is a no-op for the
// schema.
func Open(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY between concurrent handlers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	d := &Database{db: db}

	if err := d.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := d.migrateColumns(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate columns: %w", err)
	}

	return d, nil
}

// IsConnected checks if database connection is alive
func (d *Database) IsConnected(ctx context.Context) bool {
	return d != nil && d.db != nil && d.db.PingContext(ctx) == nil
}

func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Database) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS warns (
		user_id TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS moderation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		user_id TEXT NOT NULL,
		moderator_id TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_moderation_logs_user ON moderation_logs(user_id);

	CREATE TABLE IF NOT EXISTS tickets (
		channel_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets(user_id);

	CREATE TABLE IF NOT EXISTS message_stats (
		user_id TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reaction_roles (
		message_id TEXT NOT NULL,
		emoji TEXT NOT NULL,
		role_id TEXT NOT NULL,
		PRIMARY KEY (message_id, emoji)
	);

	CREATE TABLE IF NOT EXISTS user_levels (
		user_id TEXT PRIMARY KEY,
		xp INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 0,
		last_message_time INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_user_levels_xp ON user_levels(xp DESC);

	CREATE TABLE IF NOT EXISTS level_rewards (
		level INTEGER PRIMARY KEY,
		role_id TEXT NOT NULL,
		role_name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS welcome_channels (
		channel_type TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		channel_name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS voice_settings (
		user_id TEXT PRIMARY KEY,
		channel_name TEXT NOT NULL DEFAULT '',
		user_limit INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := d.db.Exec(schema)
	return err
}

type schemaColumn struct {
	table      string
	column     string
	definition string
}

// Columns added after the first release. Each is applied only when missing,
// so older database files are upgraded in place.
var addedColumns = []schemaColumn{
	{table: "welcome_channels", column: "description", definition: "TEXT NOT NULL DEFAULT ''"},
	{table: "voice_settings", column: "is_locked", definition: "INTEGER NOT NULL DEFAULT 0"},
}

func (d *Database) migrateColumns() error {
	for _, col := range addedColumns {
		exists, err := d.columnExists(col.table, col.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.column, col.definition)
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to add %s.%s: %w", col.table, col.column, err)
		}
	}
	return nil
}

func (d *Database) columnExists(table, column string) (bool, error) {
	rows, err := d.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func storageErr(err error, format string, args ...interface{}) error {
	return errors.Wrapf(models.ErrStorage, "%s: %v", fmt.Sprintf(format, args...), err)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
