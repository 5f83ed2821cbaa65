package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	derivativePrefix = "gopix:derivative:"
	keyPrefix        = "gopix:key:"
)

// RedisStore keeps derivatives in Redis hashes that expire after a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis server at addr. A zero ttl keeps
// derivatives until they are deleted.
func NewRedisStore(addr string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		// plain host:port
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Put(ctx context.Context, d *Derivative) (string, error) {
	prepare(d)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, derivativePrefix+d.ID, map[string]any{
			"key":          d.Key,
			"preset":       d.Preset,
			"content_type": d.ContentType,
			"width":        d.Width,
			"height":       d.Height,
			"body":         d.Body,
			"created_at":   d.CreatedAt.UnixNano(),
		})
		if d.Key != "" {
			pipe.Set(ctx, keyPrefix+d.Key, d.ID, s.ttl)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, derivativePrefix+d.ID, s.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store derivative: %w", err)
	}
	return d.ID, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Derivative, error) {
	fields, err := s.client.HGetAll(ctx, derivativePrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read derivative: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	d := &Derivative{
		ID:          id,
		Key:         fields["key"],
		Preset:      fields["preset"],
		ContentType: fields["content_type"],
		Body:        []byte(fields["body"]),
	}
	d.Width, _ = strconv.Atoi(fields["width"])
	d.Height, _ = strconv.Atoi(fields["height"])
	if created, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		d.CreatedAt = time.Unix(0, created).UTC()
	}
	return d, nil
}

func (s *RedisStore) GetByKey(ctx context.Context, key string) (*Derivative, error) {
	id, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up derivative key: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, derivativePrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete derivative: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
