package domain

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned without touching the network when the breaker
// guarding the source is open. Callers can match it to show a "temporarily
// unavailable" state instead of a generic failure.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrNoData marks a round whose page lacks the expected structure. Range
// fetches treat it as "skip this round"; a latest fetch propagates it.
var ErrNoData = errors.New("no draw data on page")

// ParseError reports that a page was reachable but did not contain the
// expected structure at the expected positions.
type ParseError struct {
	Round int // 0 when the round is not yet known
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Round > 0 {
		return fmt.Sprintf("parse round %d: %s: %v", e.Round, e.Field, e.Err)
	}
	return fmt.Sprintf("parse: %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a candidate record that violates a draw
// invariant. The record is dropped, never corrected or retried.
type ValidationError struct {
	Round  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid draw %d: %s: %s", e.Round, e.Field, e.Reason)
}

// StorageError wraps a failed cache tier write. These are logged and
// swallowed: the cache is an optimization, not a correctness requirement.
type StorageError struct {
	Tier string
	Key  string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache tier %s: key %s: %v", e.Tier, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
