// Package fetch acquires draw records from the external source. The
// source renders HTML only, so every fetch is a page load followed by
// structural extraction.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lottopipe/lottopipe/internal/core/domain"
	"github.com/lottopipe/lottopipe/internal/core/resilience"
	"github.com/lottopipe/lottopipe/internal/metrics"
)

// SourceConfig holds the external source settings.
type SourceConfig struct {
	BaseURL      string        `yaml:"base_url"`
	LatestPath   string        `yaml:"latest_path"`
	RoundPath    string        `yaml:"round_path"` // printf format with one %d
	Timeout      time.Duration `yaml:"timeout"`
	RequestDelay time.Duration `yaml:"request_delay"`
}

func (c *SourceConfig) applyDefaults() {
	if c.LatestPath == "" {
		c.LatestPath = "/results/latest"
	}
	if c.RoundPath == "" {
		c.RoundPath = "/results/round/%d"
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.RequestDelay <= 0 {
		c.RequestDelay = 500 * time.Millisecond
	}
}

// Fetcher drives page loads against the source, guarded by a circuit
// breaker that it owns exclusively. Network errors propagate to the
// retry layer above; structural failures degrade per round.
type Fetcher struct {
	cfg       SourceConfig
	extractor Extractor
	breaker   *resilience.Breaker
}

// NewFetcher creates a fetcher for the configured source.
func NewFetcher(cfg SourceConfig, extractor Extractor, breaker *resilience.Breaker) *Fetcher {
	cfg.applyDefaults()
	return &Fetcher{cfg: cfg, extractor: extractor, breaker: breaker}
}

// session is the transport for one logical operation. Clients are never
// reused across unrelated calls; release closes idle connections.
func (f *Fetcher) session() (*http.Client, func()) {
	client := &http.Client{
		Timeout: f.cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	}
	return client, client.CloseIdleConnections
}

// FetchLatest loads the "latest results" view and extracts one record.
// A structural failure here is a hard failure: no partial latest result
// is acceptable.
func (f *Fetcher) FetchLatest(ctx context.Context) (domain.DrawResult, error) {
	session, release := f.session()
	defer release()

	op := "latest"
	log := slog.With("op", op, "session", uuid.New().String())

	draw, err := f.loadPage(ctx, session, f.cfg.BaseURL+f.cfg.LatestPath, op)
	if err != nil {
		return domain.DrawResult{}, err
	}
	log.Debug("Fetched latest draw", "round", draw.Round)
	return draw, nil
}

// FetchRange loads each round's page in ascending order. Rounds whose
// page lacks the expected structure are skipped, not failed, so a single
// bad page never aborts a historical fetch. A delay between requests
// keeps the load on the source low.
func (f *Fetcher) FetchRange(ctx context.Context, startRound, endRound int) ([]domain.DrawResult, error) {
	if startRound < 1 {
		startRound = 1
	}
	if endRound < startRound {
		return nil, fmt.Errorf("invalid range %d-%d", startRound, endRound)
	}

	session, release := f.session()
	defer release()

	op := "range"
	log := slog.With("op", op, "session", uuid.New().String(), "start", startRound, "end", endRound)

	results := make([]domain.DrawResult, 0, endRound-startRound+1)
	for round := startRound; round <= endRound; round++ {
		url := f.cfg.BaseURL + fmt.Sprintf(f.cfg.RoundPath, round)
		draw, err := f.loadPage(ctx, session, url, op)
		if err != nil {
			var perr *domain.ParseError
			if errors.As(err, &perr) {
				log.Warn("Skipping round without parseable data", "round", round, "error", err)
				continue
			}
			return nil, err
		}
		results = append(results, draw)

		if round < endRound {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.cfg.RequestDelay):
			}
		}
	}

	log.Debug("Fetched round range", "fetched", len(results))
	return results, nil
}

// FetchRecent resolves the latest round first, then delegates to
// FetchRange for the trailing count rounds.
func (f *Fetcher) FetchRecent(ctx context.Context, count int) ([]domain.DrawResult, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	latest, err := f.FetchLatest(ctx)
	if err != nil {
		return nil, err
	}
	return f.FetchRange(ctx, latest.Round-count+1, latest.Round)
}

// loadPage performs one guarded page load plus extraction. The breaker
// sees network outcomes only; a parse failure is not a source outage.
func (f *Fetcher) loadPage(ctx context.Context, client *http.Client, url, op string) (domain.DrawResult, error) {
	if !f.breaker.Allow() {
		metrics.FetchErrorsTotal.WithLabelValues(op, "circuit_open").Inc()
		return domain.DrawResult{}, domain.ErrCircuitOpen
	}

	start := time.Now()
	metrics.FetchesTotal.WithLabelValues(op).Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.breaker.RecordFailure()
		metrics.FetchErrorsTotal.WithLabelValues(op, "request").Inc()
		return domain.DrawResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "lottopipe/1.0")

	resp, err := client.Do(req)
	if err != nil {
		f.breaker.RecordFailure()
		metrics.FetchErrorsTotal.WithLabelValues(op, "network").Inc()
		return domain.DrawResult{}, fmt.Errorf("navigation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.breaker.RecordFailure()
		metrics.FetchErrorsTotal.WithLabelValues(op, "status").Inc()
		return domain.DrawResult{}, fmt.Errorf("source returned %d for %s", resp.StatusCode, url)
	}

	f.breaker.RecordSuccess()
	metrics.FetchLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	draw, err := f.extractor.Extract(resp.Body)
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(op, "parse").Inc()
		return domain.DrawResult{}, err
	}
	return draw, nil
}
