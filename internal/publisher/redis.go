package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"BiasSentinel/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultKeyPrefix = "bias:latest:"
	DefaultChannel   = "bias:updates"
)

// ErrNotFound is returned by Latest when no report is stored for a symbol.
var ErrNotFound = errors.New("no report stored")

// RedisOptions configures the Redis publisher.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Channel   string
	TTL       time.Duration // 0 keeps the latest report forever
}

// RedisPublisher stores the full latest report per symbol under
// <prefix><SYMBOL> and broadcasts an Update on the channel.
type RedisPublisher struct {
	client *redis.Client
	opts   RedisOptions
	logger zerolog.Logger
}

// NewRedisPublisher connects and pings Redis.
func NewRedisPublisher(ctx context.Context, opts RedisOptions, logger zerolog.Logger) (*RedisPublisher, error) {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	p := &RedisPublisher{
		client: client,
		opts:   opts,
		logger: logger.With().Str("component", "publisher").Logger(),
	}
	p.logger.Info().Str("addr", opts.Addr).Str("channel", opts.Channel).Msg("redis connected")
	return p, nil
}

// Key returns the storage key for symbol.
func (p *RedisPublisher) Key(symbol string) string { return p.opts.KeyPrefix + symbol }

// Publish stores rep and announces it in one transaction.
func (p *RedisPublisher) Publish(ctx context.Context, rep *model.AnalysisReport) error {
	full, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	update, err := json.Marshal(NewUpdate(rep))
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.Key(rep.Symbol), full, p.opts.TTL)
	pipe.Publish(ctx, p.opts.Channel, update)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", rep.Symbol, err)
	}
	p.logger.Debug().Str("symbol", rep.Symbol).Str("run_id", rep.RunID).Msg("report published")
	return nil
}

// Latest reads back the stored report for symbol.
func (p *RedisPublisher) Latest(ctx context.Context, symbol string) (*model.AnalysisReport, error) {
	data, err := p.client.Get(ctx, p.Key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", symbol, err)
	}
	var rep model.AnalysisReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decode %s: %w", symbol, err)
	}
	return &rep, nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
