package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"lineagekit/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	batches     map[string]model.Batch
	summaries   map[string][]model.LineageSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.batches = make(map[string]model.Batch)
	s.summaries = make(map[string][]model.LineageSummary)
	return nil
}

func (s *MemoryStore) SaveBatch(_ context.Context, batch model.Batch, summaries []model.LineageSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if batch.ID == "" {
		return errors.New("batch id is required")
	}
	s.batches[batch.ID] = batch
	s.summaries[batch.ID] = Stamp(summaries)
	return nil
}

func (s *MemoryStore) GetBatch(_ context.Context, id string) (model.Batch, []model.LineageSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batches[id]
	if !ok {
		return model.Batch{}, nil, false, nil
	}
	summaries := append([]model.LineageSummary(nil), s.summaries[id]...)
	return batch, summaries, true, nil
}

func (s *MemoryStore) ListBatches(_ context.Context) ([]model.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Batch, 0, len(s.batches))
	for _, batch := range s.batches {
		out = append(out, batch)
	}
	sortBatches(out)
	return out, nil
}

// sortBatches orders newest first; ids break timestamp ties.
func sortBatches(batches []model.Batch) {
	sort.Slice(batches, func(i, j int) bool {
		if batches[i].CreatedAtUTC == batches[j].CreatedAtUTC {
			return batches[i].ID < batches[j].ID
		}
		return batches[i].CreatedAtUTC > batches[j].CreatedAtUTC
	})
}
