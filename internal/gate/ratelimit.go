package gate

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of a rate-limit check. RetryAfter carries the
// recommended wait when the request is denied.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// LimiterStore decides whether a request from the given key (client IP) is
// allowed right now.
type LimiterStore interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiterStore is a per-key fixed-window counter. The count resets once
// the window elapses; a window that blows through the ceiling puts the key
// into a blocked state for a cooldown, and repeated violations stretch the
// cooldown.
type MemoryLimiterStore struct {
	mu       sync.Mutex
	records  map[string]*limitRecord
	max      int
	window   time.Duration
	cooldown time.Duration
	now      func() time.Time
}

type limitRecord struct {
	count        int
	windowStart  time.Time
	blockedUntil time.Time
	strikes      int
	lastSeen     time.Time
}

const maxStrikes = 5

func NewMemoryLimiterStore(max int, window, cooldown time.Duration) *MemoryLimiterStore {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	if cooldown <= 0 {
		cooldown = window
	}
	return &MemoryLimiterStore{
		records:  make(map[string]*limitRecord),
		max:      max,
		window:   window,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Allow implements LimiterStore.
func (s *MemoryLimiterStore) Allow(_ context.Context, key string) (Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = &limitRecord{windowStart: now}
		s.records[key] = rec
	}
	rec.lastSeen = now

	if now.Before(rec.blockedUntil) {
		return Decision{RetryAfter: rec.blockedUntil.Sub(now)}, nil
	}

	if now.Sub(rec.windowStart) >= s.window {
		rec.windowStart = now
		rec.count = 0
	}

	if rec.count >= s.max {
		if rec.strikes < maxStrikes {
			rec.strikes++
		}
		rec.blockedUntil = now.Add(s.cooldown * time.Duration(rec.strikes))
		return Decision{RetryAfter: rec.blockedUntil.Sub(now)}, nil
	}

	rec.count++
	return Decision{Allowed: true}, nil
}

// Sweep drops records idle past the cutoff so the map stays bounded.
func (s *MemoryLimiterStore) Sweep(idleTTL time.Duration) {
	cutoff := s.now().Add(-idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, rec := range s.records {
		if rec.lastSeen.Before(cutoff) && rec.blockedUntil.Before(cutoff) {
			delete(s.records, k)
		}
	}
}

// StartJanitor sweeps idle records every interval until ctx is done.
func (s *MemoryLimiterStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	idleTTL := s.window
	if s.cooldown > idleTTL {
		idleTTL = s.cooldown
	}
	idleTTL *= maxStrikes

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep(idleTTL)
			}
		}
	}()
}
