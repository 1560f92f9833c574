// Package storage provides SQLite-backed persistence for snapshots,
// predictions, signals, the admission ledger rows, and the watchlist.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cryptomagiciian/sali-bot/internal/models"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/salibot/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "salibot", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			ts            INTEGER NOT NULL,
			ticker        TEXT NOT NULL,
			yes_bid       INTEGER,
			no_bid        INTEGER,
			yes_ask       INTEGER,
			no_ask        INTEGER,
			volume        INTEGER NOT NULL DEFAULT 0,
			open_interest INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (ts, ticker)
		)`,
		`CREATE TABLE IF NOT EXISTS agent_outputs (
			ts       INTEGER NOT NULL,
			ticker   TEXT NOT NULL,
			vertical TEXT NOT NULL,
			payload  TEXT NOT NULL,
			PRIMARY KEY (ts, ticker)
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			ts         INTEGER NOT NULL,
			ticker     TEXT NOT NULL,
			p_market   REAL NOT NULL,
			p_model    REAL NOT NULL,
			edge       REAL NOT NULL,
			confidence REAL NOT NULL,
			PRIMARY KEY (ts, ticker)
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id           TEXT PRIMARY KEY,
			ts           INTEGER NOT NULL,
			ticker       TEXT NOT NULL,
			payload      TEXT NOT NULL,
			signal_score REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_score ON signals(signal_score DESC)`,
		`CREATE TABLE IF NOT EXISTS last_alert (
			ticker TEXT PRIMARY KEY,
			ts     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alert_log (
			ticker TEXT NOT NULL,
			ts     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_log_ts ON alert_log(ts)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			ticker   TEXT PRIMARY KEY,
			vertical TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot appends one price observation for a ticker.
func (s *Storage) SaveSnapshot(snap models.Snapshot) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO snapshots
			(ts, ticker, yes_bid, no_bid, yes_ask, no_ask, volume, open_interest)
		VALUES (?,?,?,?,?,?,?,?)`,
		snap.Timestamp.UnixNano(), snap.Ticker,
		nullableInt(snap.YesBid), nullableInt(snap.NoBid),
		nullableInt(snap.YesAsk), nullableInt(snap.NoAsk),
		snap.Volume, snap.OpenInterest,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// RecentSnapshots returns snapshots for a ticker within the window,
// ordered newest first.
func (s *Storage) RecentSnapshots(ticker string, window time.Duration) ([]models.Snapshot, error) {
	cutoff := time.Now().Add(-window).UnixNano()
	rows, err := s.db.Query(`
		SELECT ts, ticker, yes_bid, no_bid, yes_ask, no_ask, volume, open_interest
		FROM snapshots
		WHERE ticker = ? AND ts > ?
		ORDER BY ts DESC`, ticker, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		var ts int64
		var yesBid, noBid, yesAsk, noAsk sql.NullInt64
		if err := rows.Scan(&ts, &snap.Ticker, &yesBid, &noBid, &yesAsk, &noAsk,
			&snap.Volume, &snap.OpenInterest); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.Timestamp = time.Unix(0, ts)
		snap.YesBid = intPtr(yesBid)
		snap.NoBid = intPtr(noBid)
		snap.YesAsk = intPtr(yesAsk)
		snap.NoAsk = intPtr(noAsk)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// SaveAgentOutput persists a feature computation result as JSON.
func (s *Storage) SaveAgentOutput(out models.AgentOutput) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal agent output: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO agent_outputs (ts, ticker, vertical, payload)
		VALUES (?,?,?,?)`,
		out.Timestamp.UnixNano(), out.Ticker, out.Vertical, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert agent output: %w", err)
	}
	return nil
}

// SavePrediction persists one forecaster result.
func (s *Storage) SavePrediction(ts time.Time, ticker string, pMarket, pModel, edge, confidence float64) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO predictions (ts, ticker, p_market, p_model, edge, confidence)
		VALUES (?,?,?,?,?,?)`,
		ts.UnixNano(), ticker, pMarket, pModel, edge, confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// SaveSignal persists an emitted or ranked signal.
func (s *Storage) SaveSignal(sig *models.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO signals (id, ts, ticker, payload, signal_score)
		VALUES (?,?,?,?,?)`,
		sig.ID, sig.Timestamp.UnixNano(), sig.Ticker, string(payload), sig.SignalScore,
	)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}
	return nil
}

// TopSignals returns the most recent signals ordered by score descending.
func (s *Storage) TopSignals(limit int) ([]models.Signal, error) {
	rows, err := s.db.Query(`
		SELECT payload FROM signals
		ORDER BY signal_score DESC, ts DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		var sig models.Signal
		if err := json.Unmarshal([]byte(payload), &sig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signal: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// LastAlertTime returns the last alert timestamp for a ticker. ok is
// false when the ticker has never alerted.
func (s *Storage) LastAlertTime(ticker string) (t time.Time, ok bool, err error) {
	row := s.db.QueryRow(`SELECT ts FROM last_alert WHERE ticker = ?`, ticker)
	var ts int64
	if err := row.Scan(&ts); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read last alert: %w", err)
	}
	return time.Unix(0, ts), true, nil
}

// RecordAlert overwrites the ticker's last-alert row and appends to the
// alert log in one transaction.
func (s *Storage) RecordAlert(ticker string, ts time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`INSERT OR REPLACE INTO last_alert (ticker, ts) VALUES (?,?)`,
		ticker, ts.UnixNano()); err != nil {
		return fmt.Errorf("failed to update last alert: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO alert_log (ticker, ts) VALUES (?,?)`,
		ticker, ts.UnixNano()); err != nil {
		return fmt.Errorf("failed to append alert log: %w", err)
	}
	return tx.Commit()
}

// AlertCountSince returns the number of alerts recorded after cutoff,
// across all tickers.
func (s *Storage) AlertCountSince(cutoff time.Time) (int, error) {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM alert_log WHERE ts > ?`, cutoff.UnixNano())
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

// WatchlistAdd inserts or replaces a watchlist entry.
func (s *Storage) WatchlistAdd(ticker, vertical string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO watchlist (ticker, vertical) VALUES (?,?)`,
		ticker, vertical)
	if err != nil {
		return fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	return nil
}

// WatchlistRemove deletes a watchlist entry, reporting whether it existed.
func (s *Storage) WatchlistRemove(ticker string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM watchlist WHERE ticker = ?`, ticker)
	if err != nil {
		return false, fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// WatchlistAll returns the full ticker→vertical watchlist mapping.
func (s *Storage) WatchlistAll() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT ticker, vertical FROM watchlist`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var ticker, vertical string
		if err := rows.Scan(&ticker, &vertical); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		out[ticker] = vertical
	}
	return out, rows.Err()
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
