// Package persistence stores world snapshots in SQLite.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; the engine goroutine is the only caller.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS religions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		domain TEXT NOT NULL,
		visibility TEXT NOT NULL,
		founder_id TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		members_json TEXT NOT NULL,
		bans_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS role_books (
		religion_id TEXT PRIMARY KEY,
		roles_json TEXT NOT NULL,
		assignments_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS religion_invites (
		id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL,
		religion_id TEXT NOT NULL,
		inviter_id TEXT NOT NULL,
		issued_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS departed_players (
		player_id TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS civilizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		founder_religion_id TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		members_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS civilization_invites (
		id TEXT PRIMARY KEY,
		religion_id TEXT NOT NULL,
		civilization_id TEXT NOT NULL,
		inviter_id TEXT NOT NULL,
		issued_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS relations (
		civ_a TEXT NOT NULL,
		civ_b TEXT NOT NULL,
		status TEXT NOT NULL,
		established_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		violations INTEGER NOT NULL,
		break_at INTEGER NOT NULL,
		break_by TEXT NOT NULL,
		PRIMARY KEY (civ_a, civ_b)
	);

	CREATE TABLE IF NOT EXISTS proposals (
		id TEXT PRIMARY KEY,
		from_civ TEXT NOT NULL,
		to_civ TEXT NOT NULL,
		status TEXT NOT NULL,
		proposer_id TEXT NOT NULL,
		issued_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS favor (
		player_id TEXT PRIMARY KEY,
		favor INTEGER NOT NULL,
		total INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS prestige (
		religion_id TEXT PRIMARY KEY,
		prestige INTEGER NOT NULL,
		total INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		time INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		meta_json TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_religion_invites_player ON religion_invites(player_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// saveMeta stores a key-value pair in world metadata.
func saveMeta(ex sqlx.Execer, key, value string) error {
	_, err := ex.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// HasState reports whether a snapshot has been saved.
func (db *DB) HasState() (bool, error) {
	_, err := db.GetMeta("tick")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// SavedTick returns the tick recorded with the last snapshot.
func (db *DB) SavedTick() (uint64, error) {
	v, err := db.GetMeta("tick")
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}
