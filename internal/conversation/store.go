package conversation

import "sync"

// Store keeps interaction state in memory. Lock serializes everything touching one
// chat's state across concurrent update handlers and scheduled jobs.
type Store interface {
	Get(key Key) (State, bool)
	Set(key Key, state State)
	Clear(key Key)
	// Lock acquires the chat lock and returns its release function.
	Lock(chatID int64) (unlock func())
}

type memoryStore struct {
	mu     sync.RWMutex
	states map[Key]State

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewMemoryStore returns an empty Store.
func NewMemoryStore() Store {
	return &memoryStore{
		states: make(map[Key]State),
		locks:  make(map[int64]*sync.Mutex),
	}
}

func (s *memoryStore) Get(key Key) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	return st, ok
}

func (s *memoryStore) Set(key Key, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = state
}

func (s *memoryStore) Clear(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
}

func (s *memoryStore) Lock(chatID int64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[chatID] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}
