package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"BiasSentinel/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the service writes.
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
		`CREATE TABLE IF NOT EXISTS analyses (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL UNIQUE,
			symbol         TEXT NOT NULL,
			timeframe      TEXT,
			analyzed_at    INTEGER NOT NULL,
			price          REAL,
			bar_count      INTEGER,
			corrections    INTEGER,
			label          TEXT,
			confidence     REAL,
			weighted_score REAL,
			trend          TEXT,
			insufficient   INTEGER NOT NULL DEFAULT 0,
			scores         TEXT,
			report         TEXT,
			verified       INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_ts ON analyses(analyzed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_pending ON analyses(verified, analyzed_at)`,

		`CREATE TABLE IF NOT EXISTS verifications (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL UNIQUE,
			symbol      TEXT NOT NULL,
			analyzed_at INTEGER NOT NULL,
			verified_at INTEGER NOT NULL,
			entry_price REAL,
			exit_price  REAL,
			predicted   TEXT,
			actual      TEXT,
			correct     INTEGER NOT NULL,
			scores      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verifications_ts ON verifications(analyzed_at)`,

		`CREATE TABLE IF NOT EXISTS weights_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			ran       INTEGER NOT NULL,
			reason    TEXT,
			accuracy  REAL,
			gap       REAL,
			samples   INTEGER,
			weights_before TEXT,
			weights_after  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_weights_ts ON weights_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(ctx context.Context, rep *model.AnalysisReport) error {
	scores, err := encodeJSON(rep.Result.PerIndicatorScores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	full, err := encodeJSON(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO analyses
		(run_id, symbol, timeframe, analyzed_at, price, bar_count, corrections,
		 label, confidence, weighted_score, trend, insufficient, scores, report)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rep.RunID, rep.Symbol, rep.Timeframe, rep.AnalyzedAt.Unix(), rep.Price,
		rep.BarCount, rep.Corrections,
		string(rep.Result.Label), rep.Result.Confidence, rep.Result.WeightedScore,
		string(rep.Result.TrendContext), boolToInt(rep.Result.InsufficientData),
		scores, full,
	)
	return err
}

func (r *SQLiteRecorder) PendingVerifications(ctx context.Context, cutoff time.Time, limit int) ([]model.PendingPrediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT run_id, symbol, analyzed_at, price, label, scores
		FROM analyses
		WHERE verified = 0 AND insufficient = 0 AND analyzed_at <= ?
		ORDER BY analyzed_at ASC
		LIMIT ?`, cutoff.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PendingPrediction
	for rows.Next() {
		var (
			p      model.PendingPrediction
			ts     int64
			label  string
			scores sql.NullString
		)
		if err := rows.Scan(&p.RunID, &p.Symbol, &ts, &p.EntryPrice, &label, &scores); err != nil {
			return nil, err
		}
		p.AnalyzedAt = time.Unix(ts, 0).UTC()
		p.Predicted = model.BiasLabel(label)
		if p.IndicatorScores, err = decodeScores([]byte(scores.String)); err != nil {
			return nil, fmt.Errorf("decode scores for %s: %w", p.RunID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) RecordVerification(ctx context.Context, v *model.VerifiedPrediction) error {
	scores, err := encodeJSON(v.IndicatorScores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO verifications
		(run_id, symbol, analyzed_at, verified_at, entry_price, exit_price, predicted, actual, correct, scores)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		v.RunID, v.Symbol, v.AnalyzedAt.Unix(), v.VerifiedAt.Unix(), v.EntryPrice, v.ExitPrice,
		string(v.Predicted), string(v.Actual), boolToInt(v.Correct), scores,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE analyses SET verified = 1 WHERE run_id = ?`, v.RunID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecentVerified(ctx context.Context, limit int) ([]model.VerifiedPrediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT run_id, symbol, analyzed_at, verified_at, entry_price, exit_price,
			predicted, actual, correct, scores
		FROM verifications
		ORDER BY analyzed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.VerifiedPrediction
	for rows.Next() {
		var (
			v                 model.VerifiedPrediction
			analyzed, checked int64
			predicted, actual string
			correct           int
			scores            sql.NullString
		)
		if err := rows.Scan(&v.RunID, &v.Symbol, &analyzed, &checked, &v.EntryPrice, &v.ExitPrice,
			&predicted, &actual, &correct, &scores); err != nil {
			return nil, err
		}
		v.AnalyzedAt = time.Unix(analyzed, 0).UTC()
		v.VerifiedAt = time.Unix(checked, 0).UTC()
		v.Predicted = model.BiasLabel(predicted)
		v.Actual = model.BiasLabel(actual)
		v.Correct = correct != 0
		if v.IndicatorScores, err = decodeScores([]byte(scores.String)); err != nil {
			return nil, fmt.Errorf("decode scores for %s: %w", v.RunID, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) RecordWeightsEvent(ctx context.Context, evt *WeightsEvent) error {
	before, err := encodeJSON(evt.Before)
	if err != nil {
		return err
	}
	after, err := encodeJSON(evt.After)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO weights_events
		(timestamp, ran, reason, accuracy, gap, samples, weights_before, weights_after)
		VALUES (?,?,?,?,?,?,?,?)`,
		evt.Time.Unix(), boolToInt(evt.Ran), evt.Reason, evt.Accuracy, evt.Gap, evt.Samples,
		before, after,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
