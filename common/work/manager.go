package work

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/redis"
)

const (
	runStateKeyPrefix = "collection:running:"
	// runTimeout sets how long a run holds its source lock before it's considered stale.
	// This prevents runs that died without proper cleanup from blocking their source forever.
	runTimeout = 2 * time.Hour
)

// ErrAlreadyRunning is returned when a source already has a run in flight.
var ErrAlreadyRunning = errors.New("collection already running for source")

// RunManager enforces one collection run per source at a time. The lock
// lives in Redis so the guarantee holds across instances; without Redis it
// degrades to a process-local map, which is enough for a single instance.
type RunManager struct {
	redis *redis.RedisClient

	mu    sync.Mutex
	local map[string]string
}

// NewRunManager creates a new RunManager. The redis parameter can be nil; in
// that case run state is only tracked in this process.
func NewRunManager(redisClient *redis.RedisClient) *RunManager {
	return &RunManager{
		redis: redisClient,
		local: make(map[string]string),
	}
}

// getRunKey returns the Redis key for a given source.
func (rm *RunManager) getRunKey(source string) string {
	return fmt.Sprintf("%s%s", runStateKeyPrefix, source)
}

// Start claims the source for a run. The stored value is the run ID so the
// status surface can report which run holds the source. Returns
// ErrAlreadyRunning when another run got there first.
func (rm *RunManager) Start(ctx context.Context, source, runID string) error {
	if rm.redis == nil {
		rm.mu.Lock()
		defer rm.mu.Unlock()
		if _, held := rm.local[source]; held {
			return fmt.Errorf("%w: %s", ErrAlreadyRunning, source)
		}
		rm.local[source] = runID
		return nil
	}

	key := rm.getRunKey(source)
	// SetNX to prevent starting a run while one is in flight.
	ok, err := rm.redis.SetNX(ctx, key, runID, runTimeout)
	if err != nil {
		return fmt.Errorf("failed to claim source %s: %w", source, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, source)
	}
	return nil
}

// IsRunning checks if a source currently has a run in flight.
func (rm *RunManager) IsRunning(ctx context.Context, source string) (bool, error) {
	if rm.redis == nil {
		rm.mu.Lock()
		defer rm.mu.Unlock()
		_, held := rm.local[source]
		return held, nil
	}

	runID, err := rm.HeldBy(ctx, source)
	if err != nil {
		return false, err
	}
	return runID != "", nil
}

// HeldBy returns the run ID holding the source, or "" when idle.
func (rm *RunManager) HeldBy(ctx context.Context, source string) (string, error) {
	if rm.redis == nil {
		rm.mu.Lock()
		defer rm.mu.Unlock()
		return rm.local[source], nil
	}

	runID, err := rm.redis.Get(ctx, rm.getRunKey(source))
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get run state for %s: %w", source, err)
	}
	return runID, nil
}

// Complete releases the source. Safe to call when the source is already
// idle, so collectors can defer it unconditionally.
func (rm *RunManager) Complete(ctx context.Context, source string) error {
	if rm.redis == nil {
		rm.mu.Lock()
		defer rm.mu.Unlock()
		delete(rm.local, source)
		return nil
	}

	if err := rm.redis.Delete(ctx, rm.getRunKey(source)); err != nil {
		return fmt.Errorf("failed to release source %s: %w", source, err)
	}
	return nil
}

// ListRunning returns source -> run ID for every run currently in flight.
// Used by the status endpoint and on startup to spot stale locks.
func (rm *RunManager) ListRunning(ctx context.Context) (map[string]string, error) {
	if rm.redis == nil {
		rm.mu.Lock()
		defer rm.mu.Unlock()
		running := make(map[string]string, len(rm.local))
		for source, runID := range rm.local {
			running[source] = runID
		}
		return running, nil
	}

	keys, err := rm.redis.ScanKeys(ctx, runStateKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for running collections: %w", err)
	}

	running := make(map[string]string, len(keys))
	for _, key := range keys {
		source := strings.TrimPrefix(key, runStateKeyPrefix)
		runID, err := rm.redis.Get(ctx, key)
		if err != nil {
			if errors.Is(err, redisv9.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to read run state for %s: %w", source, err)
		}
		running[source] = runID
	}
	return running, nil
}

// Release force-clears a source lock regardless of holder. Used by the
// restart operation so a wedged run cannot block future collections.
func (rm *RunManager) Release(ctx context.Context, source string) {
	if err := rm.Complete(ctx, source); err != nil {
		log.Warn().Err(err).Str("source", source).Msg("Failed to release source lock")
	}
}
