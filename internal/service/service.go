// Package service is the domain cache facade: it derives cache keys per
// query shape and orchestrates cache reads, acquisition, validation and
// write-back.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lottopipe/lottopipe/internal/cache"
	"github.com/lottopipe/lottopipe/internal/core/analysis"
	"github.com/lottopipe/lottopipe/internal/core/domain"
	"github.com/lottopipe/lottopipe/internal/core/resilience"
	"github.com/lottopipe/lottopipe/internal/core/validate"
	"github.com/lottopipe/lottopipe/internal/metrics"
)

// Source is the acquisition component the facade drives on cache misses.
type Source interface {
	FetchLatest(ctx context.Context) (domain.DrawResult, error)
	FetchRange(ctx context.Context, startRound, endRound int) ([]domain.DrawResult, error)
	FetchRecent(ctx context.Context, count int) ([]domain.DrawResult, error)
}

// Archive is the optional durable draw store. Draws are immutable, so
// archived rounds never need re-scraping.
type Archive interface {
	SaveBatch(ctx context.Context, draws []domain.DrawResult) error
	Range(ctx context.Context, startRound, endRound int) ([]domain.DrawResult, error)
}

// TTLConfig carries the shape-specific expirations. Latest entries
// expire fastest; history and statistics change only weekly.
type TTLConfig struct {
	Latest     time.Duration `yaml:"latest"`
	History    time.Duration `yaml:"history"`
	Statistics time.Duration `yaml:"statistics"`
	Frequency  time.Duration `yaml:"frequency"`
}

func (c *TTLConfig) applyDefaults() {
	if c.Latest <= 0 {
		c.Latest = 10 * time.Minute
	}
	if c.History <= 0 {
		c.History = 6 * time.Hour
	}
	if c.Statistics <= 0 {
		c.Statistics = 12 * time.Hour
	}
	if c.Frequency <= 0 {
		c.Frequency = 12 * time.Hour
	}
}

// Service is the read facade consumed by the generation heuristics and
// the UI layer. All dependencies are injected; construct once at process
// start.
type Service struct {
	cache   *cache.Manager
	source  Source
	archive Archive // nil when the archive is disabled
	retry   resilience.RetryConfig
	ttl     TTLConfig

	// Concurrent misses on one key coalesce into a single acquisition.
	flights singleflight.Group
}

// New builds the facade.
func New(cacheMgr *cache.Manager, source Source, archive Archive, retry resilience.RetryConfig, ttl TTLConfig) *Service {
	ttl.applyDefaults()
	if retry.MaxAttempts == 0 {
		retry = resilience.DefaultScrapeRetry
	}
	return &Service{
		cache:   cacheMgr,
		source:  source,
		archive: archive,
		retry:   retry,
		ttl:     ttl,
	}
}

// Latest returns the newest validated draw.
func (s *Service) Latest(ctx context.Context) (domain.DrawResult, error) {
	key := KeyLatest()
	if v, ok := cache.Get[domain.DrawResult](ctx, s.cache, key); ok {
		return v, nil
	}

	v, err, _ := s.flights.Do(key, func() (any, error) {
		if v, ok := cache.Get[domain.DrawResult](ctx, s.cache, key); ok {
			return v, nil
		}

		raw, err := resilience.Retry(ctx, s.retry, "fetch latest draw", s.source.FetchLatest)
		if err != nil {
			return nil, err
		}
		draw, err := validate.Validate(raw)
		if err != nil {
			return nil, err
		}

		s.archiveSave(ctx, []domain.DrawResult{draw})
		cache.Set(ctx, s.cache, key, draw, s.ttl.Latest)
		metrics.LatestRound.Set(float64(draw.Round))
		return draw, nil
	})
	if err != nil {
		return domain.DrawResult{}, err
	}
	return v.(domain.DrawResult), nil
}

// History returns the trailing count draws, newest first.
func (s *Service) History(ctx context.Context, count int) ([]domain.DrawResult, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	key := KeyHistory(count)
	return s.cachedDraws(ctx, key, s.ttl.History, func(ctx context.Context) ([]domain.DrawResult, error) {
		latest, err := s.Latest(ctx)
		if err != nil {
			return nil, err
		}
		start := latest.Round - count + 1
		if start < 1 {
			start = 1
		}
		return s.rangeDraws(ctx, start, latest.Round)
	})
}

// HistoryRange returns draws for an explicit round range, newest first.
func (s *Service) HistoryRange(ctx context.Context, startRound, endRound int) ([]domain.DrawResult, error) {
	if startRound < 1 || endRound < startRound {
		return nil, fmt.Errorf("invalid round range %d-%d", startRound, endRound)
	}
	key := KeyHistoryRange(startRound, endRound)
	return s.cachedDraws(ctx, key, s.ttl.History, func(ctx context.Context) ([]domain.DrawResult, error) {
		return s.rangeDraws(ctx, startRound, endRound)
	})
}

// Statistics returns the rolling statistics over the trailing rounds.
func (s *Service) Statistics(ctx context.Context, rounds int, extended bool) (analysis.Statistics, error) {
	if rounds < 1 {
		return analysis.Statistics{}, fmt.Errorf("rounds must be positive, got %d", rounds)
	}
	key := KeyStatistics(rounds, extended)
	if v, ok := cache.Get[analysis.Statistics](ctx, s.cache, key); ok {
		return v, nil
	}

	v, err, _ := s.flights.Do(key, func() (any, error) {
		if v, ok := cache.Get[analysis.Statistics](ctx, s.cache, key); ok {
			return v, nil
		}
		draws, err := s.History(ctx, rounds)
		if err != nil {
			return nil, err
		}
		stats := analysis.Summarize(draws, extended)
		cache.Set(ctx, s.cache, key, stats, s.ttl.Statistics)
		return stats, nil
	})
	if err != nil {
		return analysis.Statistics{}, err
	}
	return v.(analysis.Statistics), nil
}

// Frequency returns the number-frequency analysis over the trailing
// rounds.
func (s *Service) Frequency(ctx context.Context, rounds int, typ analysis.FrequencyType) (analysis.Frequency, error) {
	if rounds < 1 {
		return analysis.Frequency{}, fmt.Errorf("rounds must be positive, got %d", rounds)
	}
	switch typ {
	case analysis.FrequencyMain, analysis.FrequencyBonus, analysis.FrequencyAll:
	default:
		return analysis.Frequency{}, fmt.Errorf("unknown frequency type %q", typ)
	}

	key := KeyFrequency(rounds, typ)
	if v, ok := cache.Get[analysis.Frequency](ctx, s.cache, key); ok {
		return v, nil
	}

	v, err, _ := s.flights.Do(key, func() (any, error) {
		if v, ok := cache.Get[analysis.Frequency](ctx, s.cache, key); ok {
			return v, nil
		}
		draws, err := s.History(ctx, rounds)
		if err != nil {
			return nil, err
		}
		freq := analysis.Frequencies(draws, typ)
		cache.Set(ctx, s.cache, key, freq, s.ttl.Frequency)
		return freq, nil
	})
	if err != nil {
		return analysis.Frequency{}, err
	}
	return v.(analysis.Frequency), nil
}

// InvalidateNewRound clears the latest key and the whole derived
// namespace. Call it whenever a new round is confirmed so the next read
// of each shape recomputes from a validated fresh fetch.
func (s *Service) InvalidateNewRound(ctx context.Context) error {
	s.cache.Invalidate(ctx, KeyLatest())
	return s.cache.InvalidatePattern(ctx, PatternDerived)
}

// Invalidate removes one exact key.
func (s *Service) Invalidate(ctx context.Context, key string) {
	s.cache.Invalidate(ctx, key)
}

// InvalidatePattern removes every key matching the pattern.
func (s *Service) InvalidatePattern(ctx context.Context, pattern string) error {
	return s.cache.InvalidatePattern(ctx, pattern)
}

// CacheStatus exposes the cache counters read-only.
func (s *Service) CacheStatus(ctx context.Context) cache.Stats {
	return s.cache.Stats(ctx)
}

// cachedDraws is the shared read path for the draw-list shapes.
func (s *Service) cachedDraws(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]domain.DrawResult, error)) ([]domain.DrawResult, error) {
	if v, ok := cache.Get[[]domain.DrawResult](ctx, s.cache, key); ok {
		return v, nil
	}

	v, err, _ := s.flights.Do(key, func() (any, error) {
		if v, ok := cache.Get[[]domain.DrawResult](ctx, s.cache, key); ok {
			return v, nil
		}
		draws, err := load(ctx)
		if err != nil {
			return nil, err
		}
		cache.Set(ctx, s.cache, key, draws, ttl)
		return draws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.DrawResult), nil
}

// rangeDraws assembles [startRound, endRound] from the archive first and
// scrapes only the rounds the archive lacks. The final CleanBatch pass
// enforces newest-first ordering and the draw invariants regardless of
// where each round came from.
func (s *Service) rangeDraws(ctx context.Context, startRound, endRound int) ([]domain.DrawResult, error) {
	byRound := make(map[int]domain.DrawResult, endRound-startRound+1)

	if s.archive != nil {
		archived, err := s.archive.Range(ctx, startRound, endRound)
		if err != nil {
			slog.Warn("Archive read failed, falling back to the source", "error", err)
		} else {
			for _, d := range archived {
				byRound[d.Round] = d
			}
		}
	}

	for _, seg := range missingSegments(byRound, startRound, endRound) {
		fetched, err := resilience.Retry(ctx, s.retry, "fetch draw range",
			func(ctx context.Context) ([]domain.DrawResult, error) {
				return s.source.FetchRange(ctx, seg.start, seg.end)
			})
		if err != nil {
			return nil, err
		}
		clean := validate.CleanBatch(fetched)
		s.archiveSave(ctx, clean)
		for _, d := range clean {
			byRound[d.Round] = d
		}
	}

	all := make([]domain.DrawResult, 0, len(byRound))
	for _, d := range byRound {
		all = append(all, d)
	}
	return validate.CleanBatch(all), nil
}

type segment struct {
	start, end int
}

// missingSegments lists the contiguous round runs absent from byRound.
func missingSegments(byRound map[int]domain.DrawResult, startRound, endRound int) []segment {
	var segs []segment
	inRun := false
	for r := startRound; r <= endRound; r++ {
		if _, ok := byRound[r]; ok {
			inRun = false
			continue
		}
		if inRun {
			segs[len(segs)-1].end = r
		} else {
			segs = append(segs, segment{start: r, end: r})
			inRun = true
		}
	}
	return segs
}

// archiveSave persists validated draws best-effort. The archive is an
// optimization like the cache: failures are logged, never surfaced.
func (s *Service) archiveSave(ctx context.Context, draws []domain.DrawResult) {
	if s.archive == nil || len(draws) == 0 {
		return
	}
	if err := s.archive.SaveBatch(ctx, draws); err != nil {
		slog.Warn("Failed to archive draws", "count", len(draws), "error", err)
	}
}
