package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the tier-2 connection settings. An empty URL disables
// the tier.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// redisStore is the tier-2 shared store. Entries are serialized as JSON
// envelopes under a prefixed key; the Redis expiration mirrors the entry
// TTL so the server drops stale entries on its own.
type redisStore struct {
	rdb    *redis.Client
	prefix string
}

func newRedisStore(cfg RedisConfig) (*redisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "lottopipe"
	}
	return &redisStore{rdb: rdb, prefix: prefix}, nil
}

func (s *redisStore) Level() string { return LevelRedis }

func (s *redisStore) redisKey(key string) string {
	return s.prefix + ":" + key
}

func (s *redisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// A corrupt envelope is a miss, not an error. Drop it.
		_ = s.rdb.Del(ctx, s.redisKey(key)).Err()
		return nil, nil
	}
	return &e, nil
}

func (s *redisStore) Set(ctx context.Context, key string, e *Entry) error {
	cp := *e
	cp.Level = LevelRedis
	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := s.rdb.Set(ctx, s.redisKey(key), data, e.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.redisKey(key)).Err()
}

func (s *redisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix+":"))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

func (s *redisStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	// Redis expires envelopes itself; the sweep only clears entries whose
	// envelope TTL is shorter than the server expiration would suggest.
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, k := range keys {
		e, err := s.Get(ctx, k)
		if err != nil || e == nil {
			continue
		}
		if e.Expired(now) {
			if err := s.Delete(ctx, k); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Close releases the underlying connection.
func (s *redisStore) Close() error {
	return s.rdb.Close()
}
