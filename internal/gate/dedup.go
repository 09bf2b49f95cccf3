package gate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DedupKey builds a content-addressed key from the client request id and raw
// prompt. Two submissions collide only when both parts match.
func DedupKey(requestID, prompt string) string {
	h := sha256.New()
	h.Write([]byte(requestID))
	h.Write([]byte{'\n'})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// DedupStore answers whether a key was already seen within the dedup window.
// Seen records the key as a side effect when it was not.
type DedupStore interface {
	Seen(ctx context.Context, key string) (bool, error)
}

// MemoryDedupStore is the in-process implementation: a time-bounded seen-set
// with periodic sweeping.
type MemoryDedupStore struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewMemoryDedupStore(window time.Duration) *MemoryDedupStore {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &MemoryDedupStore{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// Seen implements DedupStore. The check and the insert happen under one lock.
func (s *MemoryDedupStore) Seen(_ context.Context, key string) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if at, ok := s.seen[key]; ok && now.Sub(at) <= s.window {
		return true, nil
	}
	s.seen[key] = now
	return false, nil
}

// Sweep drops entries older than the dedup window.
func (s *MemoryDedupStore) Sweep() {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, k)
		}
	}
}

// StartJanitor sweeps stale entries every interval until ctx is done.
func (s *MemoryDedupStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}
