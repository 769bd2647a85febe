// Package limiter throttles repeated login attempts per identifier with a
// sliding window: at most MaxAttempts checks succeed in any trailing Window.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

var ErrRateLimited = errors.New("rate limited")

// RateLimitedError is returned by Check when a key has used up its window.
type RateLimitedError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%v: too many attempts, retry after %d seconds", ErrRateLimited, e.RetryAfterSeconds())
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

func (e *RateLimitedError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 300 * time.Second
	DefaultShards      = 32

	// a shard sweeps itself after this many keys have been added to it
	sweepEvery = 128
)

type Config struct {
	MaxAttempts int
	Window      time.Duration
	Shards      int
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		Window:      DefaultWindow,
		Shards:      DefaultShards,
	}
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// KeyHash identifies key in logs without revealing it.
func KeyHash(key string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

type shard struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	added    int
}

// Limiter is safe for concurrent use. The read-prune-append for one key
// happens under that key's shard lock; keys on different shards never
// contend.
type Limiter struct {
	maxAttempts int
	window      time.Duration
	shards      []*shard
	now         func() time.Time
	logger      *slog.Logger
}

func New(
	cfg Config,
	opts ...Option,
) (
	*Limiter,
	error,
) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %v", cfg.Window)
	}
	if cfg.Shards <= 0 {
		cfg.Shards = DefaultShards
	}

	l := &Limiter{
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
		shards:      make([]*shard, cfg.Shards),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for i := range l.shards {
		l.shards[i] = &shard{attempts: make(map[string][]time.Time)}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) Window() time.Duration { return l.window }
func (l *Limiter) MaxAttempts() int      { return l.maxAttempts }

// Check records an attempt for key, or returns a *RateLimitedError without
// recording anything if key already has MaxAttempts inside the window.
func (l *Limiter) Check(key string) error {
	s := l.shardFor(key)
	now := l.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	times, tracked := s.attempts[key]
	times = l.prune(times, now)

	if len(times) >= l.maxAttempts {
		s.attempts[key] = times
		l.logger.Warn("login rate limit exceeded", "key_hash", KeyHash(key), "attempts", len(times))
		return &RateLimitedError{Key: key, RetryAfter: l.window}
	}

	s.attempts[key] = append(times, now)
	if !tracked {
		s.added++
		if s.added >= sweepEvery {
			s.added = 0
			l.sweepShard(s, now)
		}
	}
	return nil
}

// Reset forgets every attempt recorded for key.
func (l *Limiter) Reset(key string) {
	s := l.shardFor(key)
	s.mu.Lock()
	delete(s.attempts, key)
	s.mu.Unlock()
}

// Sweep drops keys whose attempts have all aged out of the window and
// returns how many were removed. Such keys already behave as unseen; this
// only reclaims their memory.
func (l *Limiter) Sweep() int {
	now := l.now()
	removed := 0
	for _, s := range l.shards {
		s.mu.Lock()
		removed += l.sweepShard(s, now)
		s.mu.Unlock()
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				l.logger.Debug("limiter sweep", "removed", n, "tracked", l.Len())
			}
		}
	}
}

// Len reports how many keys are currently tracked, stale or not.
func (l *Limiter) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += len(s.attempts)
		s.mu.Unlock()
	}
	return n
}

// caller holds s.mu
func (l *Limiter) sweepShard(s *shard, now time.Time) int {
	removed := 0
	for key, times := range s.attempts {
		times = l.prune(times, now)
		if len(times) == 0 {
			delete(s.attempts, key)
			removed++
			continue
		}
		s.attempts[key] = times
	}
	return removed
}

// prune drops the leading timestamps whose age is at least the window.
// Timestamps are appended in order, so the survivors are a suffix.
func (l *Limiter) prune(times []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(times) && now.Sub(times[i]) >= l.window {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0], times[i:]...)
}

func (l *Limiter) shardFor(key string) *shard {
	return l.shards[xxhash.Sum64String(key)%uint64(len(l.shards))]
}
