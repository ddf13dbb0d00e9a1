package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, clock *testClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{FileDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m.WithClock(clock.now)
}

func TestSetThenGet(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	Set(ctx, m, "lotto:latest", map[string]int{"round": 1184}, time.Minute)

	got, ok := Get[map[string]int](ctx, m, "lotto:latest")
	if !ok {
		t.Fatal("Get missed immediately after Set")
	}
	if got["round"] != 1184 {
		t.Errorf("round = %d, want 1184", got["round"])
	}
}

func TestGetAfterTTLExpiresIsMiss(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	Set(ctx, m, "k", "value", time.Minute)

	clock.advance(59 * time.Second)
	if _, ok := Get[string](ctx, m, "k"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	clock.advance(2 * time.Second)
	if _, ok := Get[string](ctx, m, "k"); ok {
		t.Fatal("entry survived past its TTL")
	}
}

func TestDeepTierHitBackfillsMemory(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	Set(ctx, m, "k", 42, time.Hour)

	// Drop the memory copy; the file tier still holds the record.
	if err := m.memory.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}

	if got, ok := Get[int](ctx, m, "k"); !ok || got != 42 {
		t.Fatalf("file tier read = (%d, %v), want (42, true)", got, ok)
	}

	// The hit must have backfilled tier 1.
	e, err := m.memory.Get(ctx, "k")
	if err != nil || e == nil {
		t.Fatal("memory tier was not backfilled after a file tier hit")
	}
}

func TestInvalidateRemovesAllTiers(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	Set(ctx, m, "k", "v", time.Hour)
	m.Invalidate(ctx, "k")

	if _, ok := Get[string](ctx, m, "k"); ok {
		t.Fatal("entry survived Invalidate")
	}
	for _, tier := range m.tiers {
		if e, _ := tier.Get(ctx, "k"); e != nil {
			t.Errorf("tier %s still holds the entry", tier.Level())
		}
	}
}

func TestInvalidatePattern(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	Set(ctx, m, "lotto:history:10", 1, time.Hour)
	Set(ctx, m, "lotto:history:20", 2, time.Hour)
	Set(ctx, m, "lotto:latest", 3, time.Hour)

	if err := m.InvalidatePattern(ctx, `^lotto:history:`); err != nil {
		t.Fatal(err)
	}

	for _, tier := range m.tiers {
		for _, key := range []string{"lotto:history:10", "lotto:history:20"} {
			if e, _ := tier.Get(ctx, key); e != nil {
				t.Errorf("tier %s: matching key %s survived", tier.Level(), key)
			}
		}
		if e, _ := tier.Get(ctx, "lotto:latest"); e == nil {
			t.Errorf("tier %s: non-matching key was removed", tier.Level())
		}
	}
}

func TestInvalidatePatternRejectsBadRegex(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	if err := m.InvalidatePattern(context.Background(), "("); err == nil {
		t.Fatal("expected an error for an invalid pattern")
	}
}

func TestSweepEvictsExpiredFromMemory(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	Set(ctx, m, "short", "v", time.Second)
	Set(ctx, m, "long", "v", time.Hour)

	clock.advance(time.Minute)
	m.sweep(ctx)

	keys, err := m.memory.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "long" {
		t.Errorf("memory keys after sweep = %v, want [long]", keys)
	}

	stats := m.Stats(ctx)
	if !stats.LastCleanup.Equal(clock.now()) {
		t.Errorf("LastCleanup = %v, want %v", stats.LastCleanup, clock.now())
	}
}

func TestStatsCountersAndHitRate(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	Set(ctx, m, "k", "v", time.Hour)
	Get[string](ctx, m, "k")
	Get[string](ctx, m, "k")
	Get[string](ctx, m, "absent")

	stats := m.Stats(ctx)
	if stats.Hits[LevelMemory] != 2 {
		t.Errorf("memory hits = %d, want 2", stats.Hits[LevelMemory])
	}
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
	if want := 2.0 / 3.0; stats.HitRate < want-0.001 || stats.HitRate > want+0.001 {
		t.Errorf("hit rate = %f, want %f", stats.HitRate, want)
	}
	if stats.MemoryBytes <= 0 {
		t.Error("memory footprint not reported")
	}
}

func TestReadRefreshesMetadataNotTimestamp(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	Set(ctx, m, "k", "v", time.Hour)
	created := clock.now()

	clock.advance(10 * time.Second)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("unexpected miss")
	}

	e, err := m.memory.Get(ctx, "k")
	if err != nil || e == nil {
		t.Fatal("entry disappeared")
	}
	if !e.Timestamp.Equal(created) {
		t.Errorf("read moved Timestamp from %v to %v", created, e.Timestamp)
	}
	if e.Meta.Hits != 1 {
		t.Errorf("hits = %d, want 1", e.Meta.Hits)
	}
	if !e.Meta.LastAccess.Equal(clock.now()) {
		t.Errorf("LastAccess = %v, want %v", e.Meta.LastAccess, clock.now())
	}
}

func TestFileTierPersistsSelfDescribingRecord(t *testing.T) {
	dir := t.TempDir()
	fs, err := newFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	e := &Entry{
		Key:       "lotto:latest",
		Data:      json.RawMessage(`{"round":1184}`),
		Timestamp: time.Unix(1_700_000_000, 0),
		TTL:       time.Hour,
	}
	if err := fs.Set(ctx, e.Key, e); err != nil {
		t.Fatal(err)
	}

	got, err := fs.Get(ctx, "lotto:latest")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("file tier missed a stored key")
	}
	if got.Key != e.Key || got.TTL != e.TTL || !got.Timestamp.Equal(e.Timestamp) {
		t.Errorf("record fields drifted: %+v", got)
	}

	// Absent file is a miss, not an error.
	missing, err := fs.Get(ctx, "never-written")
	if err != nil || missing != nil {
		t.Errorf("absent file: got (%v, %v), want (nil, nil)", missing, err)
	}
}
