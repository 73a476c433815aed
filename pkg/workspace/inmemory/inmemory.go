// Package inmemory provides an in-process workspace.RecordStore for tests and
// throwaway local runs.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/localchat/pkg/workspace"
)

// Store keeps records in a map keyed by id.
type Store struct {
	mu      sync.RWMutex
	records map[string]workspace.Record
	order   []string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]workspace.Record)}
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]workspace.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]workspace.Record, 0)
	for _, id := range s.order {
		rec := s.records[id]
		if rec.UserID == ownerID {
			out = append(out, clone(rec))
		}
	}
	workspace.SortRecords(out)
	return out, nil
}

func (s *Store) Insert(_ context.Context, rec workspace.Record) (workspace.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = clone(rec)
	return clone(rec), nil
}

func (s *Store) UpdateLastUsed(_ context.Context, ownerID, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.UserID != ownerID {
		return nil
	}
	if rec.LastUsed == nil || at.After(*rec.LastUsed) {
		rec.LastUsed = &at
		s.records[id] = rec
	}
	return nil
}

func (s *Store) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.UserID != ownerID {
		return nil
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

func clone(rec workspace.Record) workspace.Record {
	if rec.LastUsed != nil {
		t := *rec.LastUsed
		rec.LastUsed = &t
	}
	return rec
}
