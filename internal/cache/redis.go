package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
	"github.com/rajasatyajit/apikey-authorizer/internal/keys"
)

// redisEntry is the JSON document stored under each key
type redisEntry struct {
	ID        string            `json:"id"`
	Value     string            `json:"value"`
	Timestamp int64             `json:"timestamp"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// RedisStore stores entries as JSON strings in Redis
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and verifies the connection
func NewRedisStore(redisURL, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{redis: client, prefix: prefix}, nil
}

func (s *RedisStore) Close() error { return s.redis.Close() }

func (s *RedisStore) key(value string) string { return s.prefix + value }

func (s *RedisStore) Get(ctx context.Context, value string) (Entry, bool, error) {
	raw, err := s.redis.Get(ctx, s.key(value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, apperrors.ServiceError{Service: "redis", Operation: "GET", Err: err}
	}

	var doc redisEntry
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return Entry{
		Record:    keys.Record{ID: doc.ID, Value: doc.Value, Tags: doc.Tags},
		Timestamp: doc.Timestamp,
	}, true, nil
}

func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	raw, err := json.Marshal(redisEntry{
		ID:        entry.Record.ID,
		Value:     entry.Record.Value,
		Timestamp: entry.Timestamp,
		Tags:      entry.Record.Tags,
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	// No TTL: staleness is judged from the stored timestamp.
	if err := s.redis.Set(ctx, s.key(entry.Record.Value), raw, 0).Err(); err != nil {
		return apperrors.ServiceError{Service: "redis", Operation: "SET", Err: err}
	}
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return apperrors.ServiceError{Service: "redis", Operation: "PING", Err: err}
	}
	return nil
}
