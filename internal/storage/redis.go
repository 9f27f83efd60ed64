package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr        string
	Username    string
	Password    string
	DB          int
	Prefix      string // ex: "quickmark:"
	PingTimeout time.Duration
}

// RedisKV implements KV on top of redis string keys.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV connects to redis and verifies the connection with a ping.
func NewRedisKV(ctx context.Context, opts RedisOptions) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis unavailable at %s: %w", opts.Addr, err)
	}

	return NewRedisKVWithClient(client, opts.Prefix), nil
}

// NewRedisKVWithClient wraps an existing client.
func NewRedisKVWithClient(client *redis.Client, prefix string) *RedisKV {
	return &RedisKV{client: client, prefix: prefix}
}

// Key returns the redis key holding an application key.
func (s *RedisKV) Key(key string) string {
	return s.prefix + key
}

// Get reads a single value.
func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes all entries inside MULTI/EXEC.
func (s *RedisKV) Set(ctx context.Context, entries map[string][]byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, s.Key(key), value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// Clear deletes the application keys inside MULTI/EXEC.
// Other keys in the database are never touched, whatever the prefix.
func (s *RedisKV) Clear(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.Key(KeyBookmarks), s.Key(KeySettings))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisKV) Close() error {
	return s.client.Close()
}
