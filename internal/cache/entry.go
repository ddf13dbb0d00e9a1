// Package cache implements the three-tier read-through store: a volatile
// in-process map, a Redis tier shared across processes, and a file tier
// persisting self-describing records under a base directory.
package cache

import (
	"encoding/json"
	"time"
)

// Tier names, ordered fastest first.
const (
	LevelMemory = "memory"
	LevelRedis  = "redis"
	LevelFile   = "file"
)

// Metadata tracks read activity on an entry. Reads refresh metadata but
// never the creation timestamp or TTL.
type Metadata struct {
	Hits       int64     `json:"hits"`
	LastAccess time.Time `json:"last_access"`
	Source     string    `json:"source,omitempty"`
}

// Entry wraps one stored value together with its lifecycle fields.
type Entry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
	Level     string          `json:"level"`
	Meta      Metadata        `json:"meta"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// Touch refreshes read metadata.
func (e *Entry) Touch(now time.Time) {
	e.Meta.Hits++
	e.Meta.LastAccess = now
}
