package service

import (
	"fmt"

	"github.com/lottopipe/lottopipe/internal/core/analysis"
)

// Key namespace. The facade is the sole producer of cache keys; the
// cache manager treats them as opaque.
const (
	keyPrefix = "lotto"

	// PatternDerived matches every key that must be recomputed once a
	// new round is confirmed.
	PatternDerived = `^lotto:(history|stats|freq):`
)

// KeyLatest is the cache key for the latest draw.
func KeyLatest() string {
	return keyPrefix + ":latest"
}

// KeyHistory keys the trailing-count history query.
func KeyHistory(count int) string {
	return fmt.Sprintf("%s:history:%d", keyPrefix, count)
}

// KeyHistoryRange keys an explicit round-range history query.
func KeyHistoryRange(startRound, endRound int) string {
	return fmt.Sprintf("%s:history:%d-%d", keyPrefix, startRound, endRound)
}

// KeyStatistics keys the rolling-statistics query.
func KeyStatistics(rounds int, extended bool) string {
	mode := "basic"
	if extended {
		mode = "extended"
	}
	return fmt.Sprintf("%s:stats:%d:%s", keyPrefix, rounds, mode)
}

// KeyFrequency keys the frequency-analysis query.
func KeyFrequency(rounds int, typ analysis.FrequencyType) string {
	return fmt.Sprintf("%s:freq:%d:%s", keyPrefix, rounds, typ)
}
