package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"FxSentinel/internal/model"
)

// SQLiteRecorder persists evaluations and decisions to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evaluations (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp          INTEGER NOT NULL,
			symbol             TEXT NOT NULL,
			stage              TEXT NOT NULL,
			accepted           INTEGER NOT NULL,
			reason             TEXT,
			direction          TEXT,
			score              REAL,
			reversal_confirmed INTEGER,
			reversal_quorum    INTEGER,
			zone_timeframe     TEXT,
			decision_id        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_ts ON evaluations(timestamp)`,

		`CREATE TABLE IF NOT EXISTS timeframe_verdicts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			evaluation_id INTEGER NOT NULL REFERENCES evaluations(id),
			timeframe     TEXT NOT NULL,
			status        TEXT NOT NULL,
			reasons       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_eval ON timeframe_verdicts(evaluation_id)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			direction      TEXT NOT NULL,
			confidence     REAL NOT NULL,
			price          REAL,
			zone_timeframe TEXT,
			reasons        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordEvaluation stores one evaluation row plus its per-timeframe reversal
// verdicts in a single transaction.
func (r *SQLiteRecorder) RecordEvaluation(ev *model.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var confirmed, quorum sql.NullInt64
	if ev.Consensus != nil {
		confirmed = sql.NullInt64{Int64: int64(ev.Consensus.Confirmed), Valid: true}
		quorum = sql.NullInt64{Int64: int64(ev.Consensus.Quorum), Valid: true}
	}
	var zoneTF string
	if ev.ZoneScan != nil {
		zoneTF = string(ev.ZoneScan.Timeframe)
	}
	var decisionID string
	if ev.Decision != nil {
		decisionID = ev.Decision.ID
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO evaluations
		(timestamp, symbol, stage, accepted, reason, direction, score,
		 reversal_confirmed, reversal_quorum, zone_timeframe, decision_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		at.Unix(), ev.Symbol, string(ev.Stage), ev.Accepted, ev.Reason,
		string(ev.Direction), ev.Score, confirmed, quorum, zoneTF, decisionID,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}

	if ev.Consensus != nil {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("evaluation id: %w", err)
		}
		for _, v := range ev.Consensus.Verdicts {
			if _, err := tx.Exec(`INSERT INTO timeframe_verdicts
				(evaluation_id, timeframe, status, reasons) VALUES (?,?,?,?)`,
				id, string(v.Timeframe), string(v.Status), strings.Join(v.Reasons, "; "),
			); err != nil {
				return fmt.Errorf("insert verdict %s: %w", v.Timeframe, err)
			}
		}
	}
	return tx.Commit()
}

// RecordDecision stores an accepted decision keyed by its ID.
func (r *SQLiteRecorder) RecordDecision(d *model.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reasons, err := json.Marshal(d.Reasons)
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO decisions
		(id, timestamp, symbol, direction, confidence, price, zone_timeframe, reasons)
		VALUES (?,?,?,?,?,?,?,?)`,
		d.ID, d.CreatedAt.Unix(), d.Symbol, string(d.Direction), d.Confidence,
		d.Price, string(d.ZoneTimeframe), string(reasons),
	)
	return err
}

// RecentDecisions returns up to limit decisions, newest first.
func (r *SQLiteRecorder) RecentDecisions(limit int) ([]model.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, symbol, direction, confidence, price, zone_timeframe, reasons
		FROM decisions ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []model.Decision
	for rows.Next() {
		var (
			d         model.Decision
			ts        int64
			direction string
			zoneTF    string
			reasons   string
		)
		if err := rows.Scan(&d.ID, &ts, &d.Symbol, &direction, &d.Confidence, &d.Price, &zoneTF, &reasons); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.CreatedAt = time.Unix(ts, 0).UTC()
		d.Direction = model.Direction(direction)
		d.ZoneTimeframe = model.Timeframe(zoneTF)
		if reasons != "" {
			if err := json.Unmarshal([]byte(reasons), &d.Reasons); err != nil {
				return nil, fmt.Errorf("decode reasons for %s: %w", d.ID, err)
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
