// Package store provides SQLite-backed campaign state storage: the
// settings singleton, population records, the goods catalog, per-week
// region and family states, weekly economy output, the gold ledger, and
// the battle log.
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection for campaign state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

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
	CREATE TABLE IF NOT EXISTS app_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		current_week INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS economy_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		tax_rate REAL,
		player_share REAL,
		economy_scale REAL,
		rand_min REAL,
		rand_max REAL,
		war_severity REAL,
		price_elasticity REAL,
		spend_per_capita REAL,
		target_payout REAL,
		base_price_index REAL,
		calibrated INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS population_state (
		week INTEGER PRIMARY KEY,
		population INTEGER NOT NULL,
		grain_needed REAL NOT NULL,
		water_needed REAL NOT NULL,
		grain_produced INTEGER NOT NULL,
		water_produced INTEGER NOT NULL,
		survival_ratio REAL NOT NULL,
		growth INTEGER NOT NULL DEFAULT 0,
		deaths_starvation INTEGER NOT NULL DEFAULT 0,
		deaths_war INTEGER NOT NULL DEFAULT 0,
		note TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS gathering_items (
		name TEXT PRIMARY KEY,
		tier INTEGER NOT NULL DEFAULT 1,
		rarity TEXT NOT NULL DEFAULT 'common',
		base_price_gp REAL NOT NULL DEFAULT 0,
		region TEXT NOT NULL DEFAULT '',
		family TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS region_week_state (
		week INTEGER NOT NULL,
		region TEXT NOT NULL,
		production_score REAL NOT NULL DEFAULT 0,
		dm_modifier REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (week, region)
	);

	CREATE TABLE IF NOT EXISTS family_week_state (
		week INTEGER NOT NULL,
		family TEXT NOT NULL,
		reputation_score REAL NOT NULL DEFAULT 0,
		dm_modifier REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (week, family)
	);

	CREATE TABLE IF NOT EXISTS economy_week_summary (
		week INTEGER PRIMARY KEY,
		population INTEGER NOT NULL,
		grain_needed REAL NOT NULL,
		water_needed REAL NOT NULL,
		grain_produced INTEGER NOT NULL,
		water_produced INTEGER NOT NULL,
		survival_ratio REAL NOT NULL,
		gross_value REAL NOT NULL,
		tax_rate REAL NOT NULL,
		tax_income REAL NOT NULL,
		player_share REAL NOT NULL,
		player_payout REAL NOT NULL,
		upkeep_total REAL NOT NULL DEFAULT 0,
		price_index REAL NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS economy_week_output (
		week INTEGER NOT NULL,
		item_name TEXT NOT NULL,
		qty INTEGER NOT NULL,
		effective_price REAL NOT NULL,
		gross_value REAL NOT NULL,
		rarity TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		family TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		week INTEGER NOT NULL,
		direction TEXT NOT NULL,
		amount REAL NOT NULL,
		category TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS battle_log (
		id TEXT PRIMARY KEY,
		fought_at TEXT NOT NULL,
		winner TEXT NOT NULL,
		ally_power REAL NOT NULL,
		enemy_power REAL NOT NULL,
		ally_remaining TEXT NOT NULL,
		enemy_remaining TEXT NOT NULL,
		ally_casualties TEXT NOT NULL,
		enemy_casualties TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS military_units (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		class TEXT NOT NULL DEFAULT 'other',
		upkeep REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS military_roster (
		unit_id TEXT PRIMARY KEY,
		quantity INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS infrastructure (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		upkeep REAL NOT NULL DEFAULT 0,
		effect_kind TEXT NOT NULL DEFAULT '',
		effect_target TEXT NOT NULL DEFAULT '',
		effect_value REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS infrastructure_owned (
		infrastructure_id TEXT PRIMARY KEY,
		owned INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_week_output_week ON economy_week_output(week);
	CREATE INDEX IF NOT EXISTS idx_ledger_week ON ledger_entries(week);
	`
	_, err := db.conn.Exec(schema)
	return err
}
