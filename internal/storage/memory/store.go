// Package memory provides an in-memory ResolutionStore for tests and
// single-process development runs.
package memory

import (
	"context"
	"sync"

	"github.com/handlegraph/followings-gateway/internal/storage"
)

// Store is an in-memory implementation of storage.ResolutionStore. Records
// live for the life of the process.
type Store struct {
	mu      sync.RWMutex
	records []*storage.ResolutionRecord
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) RecordResolution(ctx context.Context, rec *storage.ResolutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy so later caller mutations cannot reach into the store.
	stored := *rec
	s.records = append(s.records, &stored)
	return nil
}

func (s *Store) ListResolutions(ctx context.Context, opts storage.ListOptions) ([]*storage.ResolutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	// Most recent first: walk the append-ordered slice backwards.
	result := make([]*storage.ResolutionRecord, 0, limit)
	for i := len(s.records) - 1 - opts.Offset; i >= 0 && len(result) < limit; i-- {
		rec := *s.records[i]
		result = append(result, &rec)
	}

	return result, nil
}

func (s *Store) Close() error {
	return nil
}
