package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/lottopipe/lottopipe/internal/core/domain"
	"github.com/lottopipe/lottopipe/internal/metrics"
)

// store is one cache tier. Get returns (nil, nil) on a miss.
type store interface {
	Level() string
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, e *Entry) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Config selects which tiers run and how often the sweep fires.
type Config struct {
	Redis         RedisConfig   `yaml:"redis"`
	FileDir       string        `yaml:"file_dir"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Stats is the read-only counter snapshot exposed to callers.
type Stats struct {
	Hits        map[string]int64 `json:"hits"`
	Misses      int64            `json:"misses"`
	HitRate     float64          `json:"hit_rate"`
	MemoryBytes int64            `json:"memory_bytes"`
	LastCleanup time.Time        `json:"last_cleanup"`
	Keys        []string         `json:"keys"`
}

// Manager walks the tier chain on reads, writes through on sets and runs
// the periodic expiry sweep. It treats keys as opaque strings; key
// construction belongs to the caller.
type Manager struct {
	memory *memoryStore
	tiers  []store // ordered fastest first, always starts with memory

	sweepEvery time.Duration
	now        func() time.Time

	statsMu     sync.Mutex
	hits        map[string]int64
	misses      int64
	lastCleanup time.Time

	closeFns []func() error
}

// NewManager builds a manager with the configured tiers. The memory tier
// always runs; Redis and file tiers are enabled by their config.
func NewManager(cfg Config) (*Manager, error) {
	mem := newMemoryStore()
	m := &Manager{
		memory:     mem,
		tiers:      []store{mem},
		sweepEvery: cfg.SweepInterval,
		now:        time.Now,
		hits:       make(map[string]int64),
	}
	if m.sweepEvery <= 0 {
		m.sweepEvery = 5 * time.Minute
	}

	if cfg.Redis.URL != "" {
		rs, err := newRedisStore(cfg.Redis)
		if err != nil {
			return nil, err
		}
		m.tiers = append(m.tiers, rs)
		m.closeFns = append(m.closeFns, rs.Close)
	}
	if cfg.FileDir != "" {
		fs, err := newFileStore(cfg.FileDir)
		if err != nil {
			return nil, err
		}
		m.tiers = append(m.tiers, fs)
	}

	return m, nil
}

// WithClock replaces the time source. Test hook.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Get walks the tiers fastest-first. A hit on a deeper tier backfills
// every faster tier before returning so the next read is served from
// tier 1. Expired entries are dropped where they are found.
func (m *Manager) Get(ctx context.Context, key string) (*Entry, bool) {
	now := m.now()

	for i, tier := range m.tiers {
		e, err := tier.Get(ctx, key)
		if err != nil {
			slog.Warn("Cache tier read failed", "tier", tier.Level(), "key", key, "error", err)
			continue
		}
		if e == nil {
			continue
		}
		if e.Expired(now) {
			if err := tier.Delete(ctx, key); err != nil {
				slog.Warn("Failed to evict expired entry", "tier", tier.Level(), "key", key, "error", err)
			}
			continue
		}

		e.Touch(now)
		if i == 0 {
			m.memory.touch(key, now)
		}

		// Backfill faster tiers with the found value.
		for j := 0; j < i; j++ {
			if err := m.tiers[j].Set(ctx, key, e); err != nil {
				slog.Warn("Cache backfill failed", "tier", m.tiers[j].Level(), "key", key, "error", err)
			}
		}

		m.recordHit(tier.Level())
		return e, true
	}

	m.recordMiss()
	return nil, false
}

// Set writes through every enabled tier. Failures on the durable tiers
// are logged and swallowed: the cache is an optimization and a slow disk
// or unreachable Redis must not fail the overall operation.
func (m *Manager) Set(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) {
	e := &Entry{
		Key:       key,
		Data:      data,
		Timestamp: m.now(),
		TTL:       ttl,
	}
	for _, tier := range m.tiers {
		if err := tier.Set(ctx, key, e); err != nil {
			serr := &domain.StorageError{Tier: tier.Level(), Key: key, Err: err}
			slog.Warn("Cache tier write failed", "error", serr)
		}
	}
}

// Invalidate removes the key from every tier.
func (m *Manager) Invalidate(ctx context.Context, key string) {
	for _, tier := range m.tiers {
		if err := tier.Delete(ctx, key); err != nil {
			slog.Warn("Cache invalidation failed", "tier", tier.Level(), "key", key, "error", err)
		}
	}
}

// InvalidatePattern removes every key matching the regular expression
// from every tier. Linear in the number of keys, which stays small here.
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	for _, tier := range m.tiers {
		keys, err := tier.Keys(ctx)
		if err != nil {
			slog.Warn("Cache key scan failed", "tier", tier.Level(), "error", err)
			continue
		}
		for _, k := range keys {
			if re.MatchString(k) {
				if err := tier.Delete(ctx, k); err != nil {
					slog.Warn("Cache invalidation failed", "tier", tier.Level(), "key", k, "error", err)
				}
			}
		}
	}
	return nil
}

// Stats returns a counter snapshot plus the tier-1 key inventory.
func (m *Manager) Stats(ctx context.Context) Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	hits := make(map[string]int64, len(m.hits))
	var totalHits int64
	for k, v := range m.hits {
		hits[k] = v
		totalHits += v
	}

	s := Stats{
		Hits:        hits,
		Misses:      m.misses,
		MemoryBytes: m.memory.sizeBytes(),
		LastCleanup: m.lastCleanup,
	}
	if total := totalHits + m.misses; total > 0 {
		s.HitRate = float64(totalHits) / float64(total)
	}
	if keys, err := m.memory.Keys(ctx); err == nil {
		s.Keys = keys
	}
	return s
}

// StartSweeper launches the periodic expiry sweep over the non-lazy
// tiers. It stops when ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep(ctx)
			}
		}
	}()
}

func (m *Manager) sweep(ctx context.Context) {
	now := m.now()
	for _, tier := range m.tiers {
		removed, err := tier.Sweep(ctx, now)
		if err != nil {
			slog.Warn("Cache sweep failed", "tier", tier.Level(), "error", err)
			continue
		}
		if removed > 0 {
			slog.Debug("Cache sweep evicted entries", "tier", tier.Level(), "removed", removed)
		}
	}
	m.statsMu.Lock()
	m.lastCleanup = now
	m.statsMu.Unlock()
}

// Close releases tier resources.
func (m *Manager) Close() error {
	var firstErr error
	for _, fn := range m.closeFns {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) recordHit(tier string) {
	metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	m.statsMu.Lock()
	m.hits[tier]++
	m.statsMu.Unlock()
}

func (m *Manager) recordMiss() {
	metrics.CacheMissesTotal.Inc()
	m.statsMu.Lock()
	m.misses++
	m.statsMu.Unlock()
}

// Get unmarshals the cached value for key into T. The second return is
// false on a miss.
func Get[T any](ctx context.Context, m *Manager, key string) (T, bool) {
	var zero T
	e, ok := m.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		slog.Warn("Cached value does not decode, invalidating", "key", key, "error", err)
		m.Invalidate(ctx, key)
		return zero, false
	}
	return v, true
}

// Set marshals v and writes it through every tier under key.
func Set[T any](ctx context.Context, m *Manager, key string, v T, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal value for cache", "key", key, "error", err)
		return
	}
	m.Set(ctx, key, data, ttl)
}
