package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"insighthub/types"
)

// Redis key prefixes
const (
	contentKeyPrefix = "insighthub:content:"
	vectorKeyPrefix  = "insighthub:contentvec:"
	userKeyPrefix    = "insighthub:uservec:"
	eventsKeyPrefix  = "insighthub:events:"
	contentIndexKey  = "insighthub:content:ids"
)

// RedisStore persists records and vectors in Redis. PutAtomic uses a
// MULTI/EXEC pipeline so the record and vector land together.
type RedisStore struct {
	client     *redis.Client
	dimensions int
}

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	Dimensions int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, dimensions: cfg.Dimensions}, nil
}

func (s *RedisStore) PutAtomic(ctx context.Context, state *types.ContentState, vector []float32) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal content state: %w", err)
	}
	vecJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal content vector: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, contentKeyPrefix+state.ID, stateJSON, 0)
		pipe.Set(ctx, vectorKeyPrefix+state.ID, vecJSON, 0)
		pipe.SAdd(ctx, contentIndexKey, state.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store content %s: %w", state.ID, err)
	}
	return nil
}

func (s *RedisStore) PutState(ctx context.Context, state *types.ContentState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal content state: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, contentKeyPrefix+state.ID, stateJSON, 0)
		pipe.SAdd(ctx, contentIndexKey, state.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store content state %s: %w", state.ID, err)
	}
	return nil
}

func (s *RedisStore) GetContent(ctx context.Context, contentID string) (*types.ContentState, error) {
	data, err := s.client.Get(ctx, contentKeyPrefix+contentID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content %s: %w", contentID, err)
	}

	var state types.ContentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode content %s: %w", contentID, err)
	}
	return &state, nil
}

func (s *RedisStore) ListStored(ctx context.Context) ([]*types.ContentState, error) {
	ids, err := s.client.SMembers(ctx, contentIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list content ids: %w", err)
	}

	out := make([]*types.ContentState, 0, len(ids))
	for _, id := range ids {
		state, err := s.GetContent(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if state.Status == types.StatusStored {
			out = append(out, state)
		}
	}
	return out, nil
}

func (s *RedisStore) GetContentVector(ctx context.Context, contentID string) ([]float32, error) {
	data, err := s.client.Get(ctx, vectorKeyPrefix+contentID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMissingVector
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vector for %s: %w", contentID, err)
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("failed to decode vector for %s: %w", contentID, err)
	}
	return vec, nil
}

func (s *RedisStore) GetUserVector(ctx context.Context, userID string) ([]float32, error) {
	data, err := s.client.Get(ctx, userKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return make([]float32, s.dimensions), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user vector for %s: %w", userID, err)
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("failed to decode user vector for %s: %w", userID, err)
	}
	return vec, nil
}

func (s *RedisStore) PutUserVector(ctx context.Context, userID string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal user vector: %w", err)
	}
	if err := s.client.Set(ctx, userKeyPrefix+userID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store user vector for %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) AppendEvent(ctx context.Context, event types.InteractionEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = nowUTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.client.RPush(ctx, eventsKeyPrefix+event.UserID, data).Err(); err != nil {
		return fmt.Errorf("failed to append event for %s: %w", event.UserID, err)
	}
	return nil
}

func (s *RedisStore) EventsFor(ctx context.Context, userID string) ([]types.InteractionEvent, error) {
	raw, err := s.client.LRange(ctx, eventsKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", userID, err)
	}

	events := make([]types.InteractionEvent, 0, len(raw))
	for _, item := range raw {
		var event types.InteractionEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("failed to decode event for %s: %w", userID, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// QuerySimilar scans stored vectors and ranks them by cosine similarity
// client-side. Candidate sets at this scale stay small; a dedicated ANN
// index backend can slot in behind the same interface.
func (s *RedisStore) QuerySimilar(ctx context.Context, vector []float32, limit int) ([]Candidate, error) {
	stored, err := s.ListStored(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(stored))
	for _, state := range stored {
		vec, err := s.GetContentVector(ctx, state.ID)
		if errors.Is(err, ErrMissingVector) {
			continue
		}
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{ContentID: state.ID, Similarity: Cosine(vector, vec)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
