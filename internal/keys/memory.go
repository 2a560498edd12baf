package keys

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory Store used for tests and for running without a
// durable key database.
type MemStore struct {
	mu      sync.RWMutex
	byID    map[string]*Record
	byDig   map[string]string // digest -> id
	ordered []string
}

func NewMemStore() *MemStore {
	return &MemStore{
		byID:  make(map[string]*Record),
		byDig: make(map[string]string),
	}
}

func (s *MemStore) Insert(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byDig[rec.Digest]; exists {
		return duplicateError{}
	}
	cp := *rec
	s.byID[rec.ID] = &cp
	s.byDig[rec.Digest] = rec.ID
	s.ordered = append(s.ordered, rec.ID)
	return nil
}

func (s *MemStore) GetByDigest(_ context.Context, digest string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byDig[digest]
	if !ok {
		return nil, notFoundError{id: "(digest)"}
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemStore) GetByID(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, notFoundError{id: id}
	}
	cp := *rec
	return &cp, nil
}

func (s *MemStore) SetStatus(_ context.Context, id string, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return notFoundError{id: id}
	}
	rec.Status = st
	return nil
}

func (s *MemStore) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return notFoundError{id: id}
	}
	rec.UsageCount++
	rec.LastUsedAt = time.Now()
	return nil
}

func (s *MemStore) List(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.ordered))
	// newest first, matching the SQL store ordering
	for i := len(s.ordered) - 1; i >= 0; i-- {
		cp := *s.byID[s.ordered[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemStore) Close() error { return nil }
