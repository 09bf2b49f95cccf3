package guard

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// State is the bookkeeping mirrored outside the process so a UI reload does
// not reset the cooldown or the session counter.
type State struct {
	LastRequestAt time.Time `json:"last_request_at"`
	Used          int       `json:"used"`
}

// StateStore persists guard state between sessions. Implementations are
// best effort; a failed save never blocks a request.
type StateStore interface {
	Load() (State, bool)
	Save(State)
}

// MemoryStateStore keeps state for the lifetime of the process. Useful as a
// default and in tests.
type MemoryStateStore struct {
	mu    sync.Mutex
	state State
	set   bool
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

func (m *MemoryStateStore) Load() (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.set
}

func (m *MemoryStateStore) Save(st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	m.set = true
}

// FileStateStore mirrors state into a JSON file, the process-level analog of
// the browser's session storage.
type FileStateStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

func (f *FileStateStore) Load() (State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return State{}, false
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false
	}
	return st, true
}

func (f *FileStateStore) Save(st State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	_ = os.WriteFile(f.path, data, 0o600)
}
