package assistant

import "sync"

// ThreadStore maps a sender to its assistant thread.
type ThreadStore interface {
	Get(senderID string) (threadID string, ok bool)
	Put(senderID, threadID string)
}

// MemoryThreadStore keeps the mapping in process memory. Entries never
// expire and are lost on restart.
//
// Thread Safety:
// MemoryThreadStore is safe for concurrent use.
type MemoryThreadStore struct {
	mu      sync.RWMutex
	threads map[string]string
}

// NewMemoryThreadStore creates an empty store.
func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{threads: make(map[string]string)}
}

// Get returns the thread for senderID.
func (s *MemoryThreadStore) Get(senderID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.threads[senderID]
	return id, ok
}

// Put records the thread for senderID, replacing any previous one.
func (s *MemoryThreadStore) Put(senderID, threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[senderID] = threadID
}

// Len returns the number of mapped senders.
func (s *MemoryThreadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
