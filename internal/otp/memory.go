package otp

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	rec     Record
	evictAt time.Time
}

// MemoryStore is a process-local Store. Codes are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, phone string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[phone] = &memoryEntry{rec: rec, evictAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, phone string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(phone)
	if !ok {
		return Record{}, ErrNotFound
	}
	return e.rec, nil
}

func (s *MemoryStore) IncrAttempts(_ context.Context, phone string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(phone)
	if !ok {
		return 0, ErrNotFound
	}
	e.rec.Attempts++
	return e.rec.Attempts, nil
}

func (s *MemoryStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, phone)
	return nil
}

// Len reports the number of entries, expired ones included until swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops every entry whose TTL has elapsed.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for phone, e := range s.entries {
		if !now.Before(e.evictAt) {
			delete(s.entries, phone)
		}
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// live must be called with mu held.
func (s *MemoryStore) live(phone string) (*memoryEntry, bool) {
	e, ok := s.entries[phone]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.evictAt) {
		delete(s.entries, phone)
		return nil, false
	}
	return e, true
}

var _ Store = (*MemoryStore)(nil)
