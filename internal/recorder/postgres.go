package recorder

import (
	"context"
	"fmt"
	"time"

	"BiasSentinel/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PoolConfig sizes the Postgres connection pool.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolConfig returns conservative pool limits.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

// PostgresRecorder persists the same history as SQLiteRecorder to Postgres.
type PostgresRecorder struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresRecorder connects, verifies the connection and runs migrations.
func NewPostgresRecorder(ctx context.Context, databaseURL string, cfg PoolConfig, logger zerolog.Logger) (*PostgresRecorder, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 && cfg.MinConns <= poolCfg.MaxConns {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &PostgresRecorder{pool: pool, logger: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r.logger.Info().Msg("postgres recorder opened")
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		`create table if not exists analyses (
			id bigserial primary key,
			run_id text not null unique,
			symbol text not null,
			timeframe text not null default '',
			analyzed_at timestamptz not null,
			price double precision not null default 0,
			bar_count int not null default 0,
			corrections int not null default 0,
			label text not null,
			confidence double precision not null default 0,
			weighted_score double precision not null default 0,
			trend text not null default 'neutral',
			insufficient boolean not null default false,
			scores jsonb not null default '{}'::jsonb,
			report jsonb,
			verified boolean not null default false
		);`,
		`create index if not exists analyses_pending_idx on analyses(verified, analyzed_at);`,
		`create index if not exists analyses_symbol_ts_idx on analyses(symbol, analyzed_at desc);`,
		`create table if not exists verifications (
			id bigserial primary key,
			run_id text not null unique,
			symbol text not null,
			analyzed_at timestamptz not null,
			verified_at timestamptz not null,
			entry_price double precision not null,
			exit_price double precision not null,
			predicted text not null,
			actual text not null,
			correct boolean not null,
			scores jsonb not null default '{}'::jsonb
		);`,
		`create index if not exists verifications_ts_idx on verifications(analyzed_at desc);`,
		`create table if not exists weights_events (
			id bigserial primary key,
			occurred_at timestamptz not null,
			ran boolean not null,
			reason text not null default '',
			accuracy double precision not null default 0,
			gap double precision not null default 0,
			samples int not null default 0,
			weights_before jsonb,
			weights_after jsonb
		);`,
	}

	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRecorder) RecordAnalysis(ctx context.Context, rep *model.AnalysisReport) error {
	scores, err := encodeJSON(rep.Result.PerIndicatorScores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	full, err := encodeJSON(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		insert into analyses(
			run_id, symbol, timeframe, analyzed_at, price, bar_count, corrections,
			label, confidence, weighted_score, trend, insufficient, scores, report
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::jsonb,$14::jsonb)
	`,
		rep.RunID, rep.Symbol, rep.Timeframe, rep.AnalyzedAt, rep.Price, rep.BarCount, rep.Corrections,
		string(rep.Result.Label), rep.Result.Confidence, rep.Result.WeightedScore,
		string(rep.Result.TrendContext), rep.Result.InsufficientData, scores, full,
	)
	return err
}

func (r *PostgresRecorder) PendingVerifications(ctx context.Context, cutoff time.Time, limit int) ([]model.PendingPrediction, error) {
	rows, err := r.pool.Query(ctx, `
		select run_id, symbol, analyzed_at, price, label, scores::text
		from analyses
		where not verified and not insufficient and analyzed_at <= $1
		order by analyzed_at asc
		limit $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PendingPrediction
	for rows.Next() {
		var (
			p      model.PendingPrediction
			label  string
			scores string
		)
		if err := rows.Scan(&p.RunID, &p.Symbol, &p.AnalyzedAt, &p.EntryPrice, &label, &scores); err != nil {
			return nil, err
		}
		p.Predicted = model.BiasLabel(label)
		if p.IndicatorScores, err = decodeScores([]byte(scores)); err != nil {
			return nil, fmt.Errorf("decode scores for %s: %w", p.RunID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRecorder) RecordVerification(ctx context.Context, v *model.VerifiedPrediction) error {
	scores, err := encodeJSON(v.IndicatorScores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		insert into verifications(
			run_id, symbol, analyzed_at, verified_at, entry_price, exit_price,
			predicted, actual, correct, scores
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb)
	`,
		v.RunID, v.Symbol, v.AnalyzedAt, v.VerifiedAt, v.EntryPrice, v.ExitPrice,
		string(v.Predicted), string(v.Actual), v.Correct, scores,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `update analyses set verified = true where run_id = $1`, v.RunID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRecorder) RecentVerified(ctx context.Context, limit int) ([]model.VerifiedPrediction, error) {
	rows, err := r.pool.Query(ctx, `
		select run_id, symbol, analyzed_at, verified_at, entry_price, exit_price,
			predicted, actual, correct, scores::text
		from verifications
		order by analyzed_at desc, id desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.VerifiedPrediction
	for rows.Next() {
		var (
			v                 model.VerifiedPrediction
			predicted, actual string
			scores            string
		)
		if err := rows.Scan(&v.RunID, &v.Symbol, &v.AnalyzedAt, &v.VerifiedAt, &v.EntryPrice, &v.ExitPrice,
			&predicted, &actual, &v.Correct, &scores); err != nil {
			return nil, err
		}
		v.Predicted = model.BiasLabel(predicted)
		v.Actual = model.BiasLabel(actual)
		if v.IndicatorScores, err = decodeScores([]byte(scores)); err != nil {
			return nil, fmt.Errorf("decode scores for %s: %w", v.RunID, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PostgresRecorder) RecordWeightsEvent(ctx context.Context, evt *WeightsEvent) error {
	before, err := encodeJSON(evt.Before)
	if err != nil {
		return err
	}
	after, err := encodeJSON(evt.After)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		insert into weights_events(occurred_at, ran, reason, accuracy, gap, samples, weights_before, weights_after)
		values ($1,$2,$3,$4,$5,$6,$7::jsonb,$8::jsonb)
	`, evt.Time, evt.Ran, evt.Reason, evt.Accuracy, evt.Gap, evt.Samples, before, after)
	return err
}

func (r *PostgresRecorder) Close() error {
	r.logger.Info().Msg("closing postgres recorder")
	r.pool.Close()
	return nil
}
