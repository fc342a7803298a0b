package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/safanavk/smileshop-backend/pkg/config"
)

// Client wraps the shared Redis connection.
type Client struct {
	conn *goredis.Client
}

// New dials Redis from configuration and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	var opts *goredis.Options
	if cfg.URL != "" {
		parsed, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		if cfg.Address == "" {
			return nil, fmt.Errorf("redis address is required")
		}
		opts = &goredis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	conn := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := conn.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Raw exposes the underlying go-redis client.
func (c *Client) Raw() *goredis.Client {
	return c.conn
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.conn.Close()
}

// IdempotencyStore marks event ids so webhook deliveries are processed at
// most once per retention window.
type IdempotencyStore struct {
	conn *goredis.Client
	ttl  time.Duration
}

// NewIdempotencyStore builds a store on top of an existing client.
func NewIdempotencyStore(client *Client, ttl time.Duration) (*IdempotencyStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("idempotency ttl must be positive")
	}
	return &IdempotencyStore{conn: client.conn, ttl: ttl}, nil
}

func (s *IdempotencyStore) key(eventID string) string {
	return "webhook:event:" + eventID
}

// CheckAndMark atomically claims an event id. It returns true when this call
// is the first claim and the event should be processed.
func (s *IdempotencyStore) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	ok, err := s.conn.SetNX(ctx, s.key(eventID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming webhook event: %w", err)
	}
	return ok, nil
}

// Release drops the claim so a failed event can be retried by the gateway.
func (s *IdempotencyStore) Release(ctx context.Context, eventID string) error {
	if err := s.conn.Del(ctx, s.key(eventID)).Err(); err != nil {
		return fmt.Errorf("releasing webhook event: %w", err)
	}
	return nil
}
