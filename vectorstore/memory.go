package vectorstore

import (
	"context"
	"sort"
	"sync"

	"insighthub/types"
)

// MemoryStore is a map-backed Store for local development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	dimensions int
	content    map[string]*types.ContentState
	vectors    map[string][]float32
	users      map[string][]float32
	events     map[string][]types.InteractionEvent
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(dimensions int) *MemoryStore {
	return &MemoryStore{
		dimensions: dimensions,
		content:    make(map[string]*types.ContentState),
		vectors:    make(map[string][]float32),
		users:      make(map[string][]float32),
		events:     make(map[string][]types.InteractionEvent),
	}
}

func (s *MemoryStore) PutAtomic(_ context.Context, state *types.ContentState, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := *state
	s.content[state.ID] = &cloned
	s.vectors[state.ID] = append([]float32(nil), vector...)
	return nil
}

func (s *MemoryStore) PutState(_ context.Context, state *types.ContentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := *state
	s.content[state.ID] = &cloned
	return nil
}

func (s *MemoryStore) GetContent(_ context.Context, contentID string) (*types.ContentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.content[contentID]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *state
	return &cloned, nil
}

func (s *MemoryStore) ListStored(_ context.Context) ([]*types.ContentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.ContentState, 0, len(s.content))
	for _, state := range s.content {
		if state.Status != types.StatusStored {
			continue
		}
		cloned := *state
		out = append(out, &cloned)
	}
	return out, nil
}

func (s *MemoryStore) GetContentVector(_ context.Context, contentID string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vec, ok := s.vectors[contentID]
	if !ok {
		return nil, ErrMissingVector
	}
	return append([]float32(nil), vec...), nil
}

func (s *MemoryStore) GetUserVector(_ context.Context, userID string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if vec, ok := s.users[userID]; ok {
		return append([]float32(nil), vec...), nil
	}
	return make([]float32, s.dimensions), nil
}

func (s *MemoryStore) PutUserVector(_ context.Context, userID string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[userID] = append([]float32(nil), vector...)
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, event types.InteractionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = nowUTC()
	}
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

func (s *MemoryStore) EventsFor(_ context.Context, userID string) ([]types.InteractionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]types.InteractionEvent(nil), s.events[userID]...), nil
}

func (s *MemoryStore) QuerySimilar(_ context.Context, vector []float32, limit int) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]Candidate, 0, len(s.vectors))
	for id, vec := range s.vectors {
		state, ok := s.content[id]
		if !ok || state.Status != types.StatusStored {
			continue
		}
		candidates = append(candidates, Candidate{ContentID: id, Similarity: Cosine(vector, vec)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *MemoryStore) Close() error { return nil }
