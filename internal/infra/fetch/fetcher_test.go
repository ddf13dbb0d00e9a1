package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lottopipe/lottopipe/internal/core/domain"
	"github.com/lottopipe/lottopipe/internal/core/resilience"
)

func testBreaker() *resilience.Breaker {
	return resilience.NewBreaker(resilience.BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
	})
}

func testFetcher(baseURL string) *Fetcher {
	return NewFetcher(SourceConfig{
		BaseURL:      baseURL,
		Timeout:      2 * time.Second,
		RequestDelay: time.Millisecond,
	}, NewPageExtractor(), testBreaker())
}

// drawServer serves fixture pages for rounds [1, latest]; rounds listed
// in broken serve structurally empty pages.
func drawServer(t *testing.T, latest int, broken map[int]bool, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	page := func(round int) string {
		return resultPage(round, "2026-08-22", [6]int{3, 11, 17, 24, 38, 45}, 7)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/results/latest", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, page(latest))
	})
	mux.HandleFunc("/results/round/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var round int
		fmt.Sscanf(r.URL.Path, "/results/round/%d", &round)
		if round < 1 || round > latest {
			http.NotFound(w, r)
			return
		}
		if broken[round] {
			fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
			return
		}
		fmt.Fprint(w, page(round))
	})
	return httptest.NewServer(mux)
}

func TestFetchLatest(t *testing.T) {
	var calls atomic.Int64
	srv := drawServer(t, 1184, nil, &calls)
	defer srv.Close()

	draw, err := testFetcher(srv.URL).FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if draw.Round != 1184 {
		t.Errorf("round = %d, want 1184", draw.Round)
	}
	if calls.Load() != 1 {
		t.Errorf("network calls = %d, want 1", calls.Load())
	}
}

func TestFetchLatestParseFailureIsHard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>redesigned page</body></html>`)
	}))
	defer srv.Close()

	_, err := testFetcher(srv.URL).FetchLatest(context.Background())
	var perr *domain.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *domain.ParseError", err)
	}
}

func TestFetchRangeSkipsBrokenRounds(t *testing.T) {
	var calls atomic.Int64
	srv := drawServer(t, 100, map[int]bool{98: true}, &calls)
	defer srv.Close()

	results, err := testFetcher(srv.URL).FetchRange(context.Background(), 96, 100)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}

	wantRounds := []int{96, 97, 99, 100} // ascending order, 98 skipped
	if len(results) != len(wantRounds) {
		t.Fatalf("got %d results, want %d", len(results), len(wantRounds))
	}
	for i, r := range wantRounds {
		if results[i].Round != r {
			t.Errorf("results[%d].Round = %d, want %d", i, results[i].Round, r)
		}
	}
}

func TestFetchRangeNetworkErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testFetcher(srv.URL).FetchRange(context.Background(), 1, 3)
	if err == nil {
		t.Fatal("expected a network error to abort the range fetch")
	}
	var perr *domain.ParseError
	if errors.As(err, &perr) {
		t.Fatalf("status error surfaced as ParseError: %v", err)
	}
}

func TestFetchRecentDelegatesToRange(t *testing.T) {
	var calls atomic.Int64
	srv := drawServer(t, 50, nil, &calls)
	defer srv.Close()

	results, err := testFetcher(srv.URL).FetchRecent(context.Background(), 5)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	if results[0].Round != 46 || results[4].Round != 50 {
		t.Errorf("rounds = %d..%d, want 46..50", results[0].Round, results[4].Round)
	}
	// One latest resolve plus five round pages.
	if calls.Load() != 6 {
		t.Errorf("network calls = %d, want 6", calls.Load())
	}
}

func TestOpenBreakerFailsFastWithoutNetworkCall(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := testFetcher(srv.URL)

	// Three consecutive failures open the breaker.
	for i := 0; i < 3; i++ {
		if _, err := f.FetchLatest(context.Background()); err == nil {
			t.Fatal("expected failure from 503")
		}
	}
	before := calls.Load()

	_, err := f.FetchLatest(context.Background())
	if !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if calls.Load() != before {
		t.Errorf("open breaker still hit the network: %d calls, want %d", calls.Load(), before)
	}
}

func TestFetchRecentRejectsNonPositiveCount(t *testing.T) {
	f := testFetcher("http://127.0.0.1:0")
	if _, err := f.FetchRecent(context.Background(), 0); err == nil {
		t.Fatal("expected an error for count 0")
	}
}
