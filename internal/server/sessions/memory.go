package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/imghost/internal/common"
)

type memoryEntry struct {
	session Session
	chunks  map[int][]byte
}

// MemoryStore keeps sessions in process memory. Suitable for a single
// instance; a multi-instance deployment needs the redis store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// get returns the live entry or nil if absent/expired. Caller holds mu.
func (s *MemoryStore) get(id string) *memoryEntry {
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	if s.now().After(e.session.ExpiresAt) {
		delete(s.entries, id)
		return nil
	}
	return e
}

func (s *MemoryStore) Create(_ context.Context, sess *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.ExpiresAt = s.now().Add(ttl)
	s.entries[sess.ID] = &memoryEntry{session: cp, chunks: make(map[int][]byte)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(id)
	if e == nil {
		return nil, common.ErrorSessionNotFound
	}
	cp := e.session
	return &cp, nil
}

func (s *MemoryStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(id)
	if e == nil {
		return common.ErrorSessionNotFound
	}
	e.session.ExpiresAt = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) PutChunk(_ context.Context, id string, index int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(id)
	if e == nil {
		return common.ErrorSessionNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	e.chunks[index] = buf
	return nil
}

func (s *MemoryStore) ChunkCount(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(id)
	if e == nil {
		return 0, common.ErrorSessionNotFound
	}
	return len(e.chunks), nil
}

func (s *MemoryStore) Chunks(_ context.Context, id string) (map[int][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(id)
	if e == nil {
		return nil, common.ErrorSessionNotFound
	}
	out := make(map[int][]byte, len(e.chunks))
	for i, c := range e.chunks {
		out[i] = c
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if now.After(e.session.ExpiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}
