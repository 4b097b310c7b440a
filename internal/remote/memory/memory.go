// Package memory is an in-process remote endpoint for tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"carpool/internal/remote"
)

type Store struct {
	mu    sync.Mutex
	now   func() time.Time
	docs  map[string]remote.Document
	saves int
}

var _ remote.Endpoint = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now, docs: make(map[string]remote.Document)}
}

func (s *Store) Fetch(_ context.Context, owner string) (*remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[owner]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// Save accepts the write only when doc.Version matches the stored version.
func (s *Store) Save(_ context.Context, owner string, doc remote.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.docs[owner]
	if cur.Version != doc.Version {
		return remote.ErrVersionConflict
	}
	if doc.LastUpdated.IsZero() {
		doc.LastUpdated = s.now()
	}
	doc.Version = cur.Version + 1
	s.docs[owner] = doc
	s.saves++
	return nil
}

// Put overwrites a document as another client would, bumping its version.
func (s *Store) Put(owner, data string) remote.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := remote.Document{Data: data, Version: s.docs[owner].Version + 1, LastUpdated: s.now()}
	s.docs[owner] = doc
	return doc
}

// Saves returns the number of accepted saves.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
