package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while a pass is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS passes (
			id            TEXT PRIMARY KEY,
			pass_id       TEXT NOT NULL,
			timestamp     INTEGER NOT NULL,
			version       INTEGER,
			positions     INTEGER,
			deployed_unit REAL,
			capacity      INTEGER,
			fraction      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passes_ts ON passes(timestamp)`,

		`CREATE TABLE IF NOT EXISTS position_states (
			id            TEXT PRIMARY KEY,
			pass_id       TEXT NOT NULL,
			position      TEXT NOT NULL,
			units_held    REAL,
			buy_status    TEXT,
			buy_price     REAL,
			rescue_status TEXT,
			rescue_price  REAL,
			sell_status   TEXT,
			buy_gear      REAL,
			sell_gear     REAL,
			rec_buy_gear  REAL,
			rec_sell_gear REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_position_states_pass ON position_states(pass_id)`,

		`CREATE TABLE IF NOT EXISTS applies (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			position    TEXT NOT NULL,
			action      TEXT,
			buy_points  REAL,
			sell_points REAL,
			buy_gear    REAL,
			sell_gear   REAL,
			traits      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_applies_position ON applies(position, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Unix()
}

// RecordPass writes the pass row and its position rows in one transaction.
func (r *SQLiteRecorder) RecordPass(evt *PassEvent, positions []PositionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO passes
		(id, pass_id, timestamp, version, positions, deployed_unit, capacity, fraction)
		VALUES (?,?,?,?,?,?,?,?)`,
		ulid.Make().String(), evt.PassID, stamp(evt.At), evt.Version, evt.Positions,
		evt.DeployedUnit, evt.Capacity, evt.Fraction,
	); err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}

	for _, p := range positions {
		if _, err := tx.Exec(`INSERT INTO position_states
			(id, pass_id, position, units_held, buy_status, buy_price, rescue_status, rescue_price,
			 sell_status, buy_gear, sell_gear, rec_buy_gear, rec_sell_gear)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			ulid.Make().String(), evt.PassID, p.Position, p.UnitsHeld,
			p.BuyStatus, p.BuyPrice, p.RescueStatus, p.RescuePrice, p.SellStatus,
			p.BuyGear, p.SellGear, p.RecBuyGear, p.RecSellGear,
		); err != nil {
			return fmt.Errorf("insert position %s: %w", p.Position, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordApply(evt *ApplyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO applies
		(id, timestamp, position, action, buy_points, sell_points, buy_gear, sell_gear, traits)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		ulid.Make().String(), stamp(evt.At), evt.Position, evt.Action,
		evt.BuyPoints, evt.SellPoints, evt.BuyGear, evt.SellGear, evt.Traits,
	)
	return err
}

// Applies returns the most recent apply events for a position, newest first.
func (r *SQLiteRecorder) Applies(position string, limit int) ([]ApplyEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, position, action, buy_points, sell_points,
		buy_gear, sell_gear, traits FROM applies WHERE position = ?
		ORDER BY timestamp DESC, id DESC LIMIT ?`, position, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApplyEvent
	for rows.Next() {
		var (
			e  ApplyEvent
			ts int64
		)
		if err := rows.Scan(&ts, &e.Position, &e.Action, &e.BuyPoints, &e.SellPoints,
			&e.BuyGear, &e.SellGear, &e.Traits); err != nil {
			return nil, err
		}
		e.At = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountPasses returns how many passes have been recorded.
func (r *SQLiteRecorder) CountPasses() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM passes`).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
