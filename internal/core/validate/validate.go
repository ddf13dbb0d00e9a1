// Package validate checks candidate draw records against the domain
// invariants before they are allowed anywhere near the cache.
package validate

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lottopipe/lottopipe/internal/core/domain"
)

// ValidNumber reports whether n is a legal draw number.
func ValidNumber(n int) bool {
	return n >= domain.MinNumber && n <= domain.MaxNumber
}

// ValidNumberSet reports whether xs is exactly six distinct legal numbers.
func ValidNumberSet(xs []int) bool {
	if len(xs) != domain.NumberCount {
		return false
	}
	seen := make(map[int]bool, len(xs))
	for _, n := range xs {
		if !ValidNumber(n) || seen[n] {
			return false
		}
		seen[n] = true
	}
	return true
}

// ValidDate reports whether s is a YYYY-MM-DD date that round-trips
// through parsing without field drift (rejects e.g. 2024-02-31).
func ValidDate(s string) bool {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return false
	}
	return t.Format(domain.DateLayout) == s
}

// ValidRound reports whether r is a plausible round identifier.
func ValidRound(r int) bool {
	return r > 0 && r < domain.MaxRound
}

// Validate checks every draw invariant on a candidate and returns it
// unchanged on success. Violations are never repaired.
func Validate(c domain.DrawResult) (domain.DrawResult, error) {
	if !ValidRound(c.Round) {
		return domain.DrawResult{}, &domain.ValidationError{Round: c.Round, Field: "round", Reason: "must be a positive integer below the sanity ceiling"}
	}
	if !ValidDate(c.Date) {
		return domain.DrawResult{}, &domain.ValidationError{Round: c.Round, Field: "date", Reason: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", c.Date)}
	}
	if !ValidNumberSet(c.Numbers) {
		return domain.DrawResult{}, &domain.ValidationError{Round: c.Round, Field: "numbers", Reason: "need exactly 6 distinct numbers in [1,45]"}
	}
	if !ValidNumber(c.Bonus) {
		return domain.DrawResult{}, &domain.ValidationError{Round: c.Round, Field: "bonus", Reason: "bonus out of [1,45]"}
	}
	if c.HasNumber(c.Bonus) {
		return domain.DrawResult{}, &domain.ValidationError{Round: c.Round, Field: "bonus", Reason: "bonus collides with a main number"}
	}
	if len(c.Prizes) != domain.PrizeTierCount {
		return domain.DrawResult{}, &domain.ValidationError{Round: c.Round, Field: "prizes", Reason: fmt.Sprintf("expected %d tiers, got %d", domain.PrizeTierCount, len(c.Prizes))}
	}
	for _, p := range c.Prizes {
		if p.Winners < 0 || p.Amount < 0 {
			return domain.DrawResult{}, &domain.ValidationError{Round: c.Round, Field: "prizes", Reason: fmt.Sprintf("tier %d has a negative field", p.Rank)}
		}
	}
	return c, nil
}

// CleanBatch filters invalid candidates (each failure is logged, not
// raised), sorts by round descending and deduplicates by round, keeping
// the first occurrence of each. Safe for concurrent use.
func CleanBatch(candidates []domain.DrawResult) []domain.DrawResult {
	out := make([]domain.DrawResult, 0, len(candidates))
	for _, c := range candidates {
		d, err := Validate(c)
		if err != nil {
			slog.Warn("Dropping invalid draw candidate", "round", c.Round, "error", err)
			continue
		}
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Round > out[j].Round })

	deduped := out[:0]
	var lastRound int
	for i, d := range out {
		if i > 0 && d.Round == lastRound {
			continue
		}
		deduped = append(deduped, d)
		lastRound = d.Round
	}
	return deduped
}
