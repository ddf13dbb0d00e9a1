package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fileStore is the tier-3 durable floor. Each entry lives as one
// self-describing JSON record at a path derived from its key under the
// base directory. A missing file is a miss, never an error; expiry is
// checked lazily on read, the periodic sweep skips this tier.
type fileStore struct {
	baseDir string
}

func newFileStore(baseDir string) (*fileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &fileStore{baseDir: baseDir}, nil
}

func (s *fileStore) Level() string { return LevelFile }

// path maps a cache key to a file name. Key separators become
// underscores so keys stay flat under the base directory.
func (s *fileStore) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	return filepath.Join(s.baseDir, name+".json")
}

func (s *fileStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Corrupt record: treat as miss and remove it.
		_ = os.Remove(s.path(key))
		return nil, nil
	}
	return &e, nil
}

func (s *fileStore) Set(ctx context.Context, key string, e *Entry) error {
	cp := *e
	cp.Level = LevelFile
	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

func (s *fileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *fileStore) Keys(ctx context.Context) ([]string, error) {
	glob, err := filepath.Glob(filepath.Join(s.baseDir, "*.json"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(glob))
	for _, p := range glob {
		e, err := s.readRecord(p)
		if err != nil {
			continue
		}
		keys = append(keys, e.Key)
	}
	return keys, nil
}

func (s *fileStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	// Lazy tier: expired records are dropped on read.
	return 0, nil
}

func (s *fileStore) readRecord(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
