package gate

import "sync"

// PendingSet tracks prompts with an in-flight upstream request. Acquire is a
// single atomic insert-if-absent, so two near-simultaneous submissions of the
// same prompt cannot both proceed.
type PendingSet struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewPendingSet() *PendingSet {
	return &PendingSet{pending: make(map[string]struct{})}
}

// Acquire marks key as in flight. Returns false if it already was.
func (p *PendingSet) Acquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[key]; ok {
		return false
	}
	p.pending[key] = struct{}{}
	return true
}

// Release clears the in-flight mark. Safe to call for keys never acquired.
func (p *PendingSet) Release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, key)
}

// Contains reports whether key is currently in flight.
func (p *PendingSet) Contains(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[key]
	return ok
}
