package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"insighthub/types"
)

// ChromaStore persists content and interest vectors in the Chroma vector
// database via its v2 REST API. The content record rides as document
// metadata in the same /upsert call as the embedding, so the pair lands
// atomically; /query serves similarity retrieval server-side.
type ChromaStore struct {
	baseURL    string
	tenant     string
	database   string
	httpClient *http.Client
	dimensions int

	contentID string
	usersID   string
	eventsID  string
}

// ChromaConfig holds connection settings for the Chroma backend.
type ChromaConfig struct {
	Host       string
	Port       int
	Collection string
	Dimensions int
}

// NewChromaStore connects to Chroma and ensures the three collections
// (content, interest vectors, interaction events) exist.
func NewChromaStore(ctx context.Context, cfg ChromaConfig) (*ChromaStore, error) {
	s := &ChromaStore{
		baseURL:    fmt.Sprintf("http://%s:%d/api/v2", cfg.Host, cfg.Port),
		tenant:     "default_tenant",
		database:   "default_database",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dimensions: cfg.Dimensions,
	}

	var err error
	if s.contentID, err = s.getOrCreateCollection(ctx, cfg.Collection); err != nil {
		return nil, fmt.Errorf("failed to prepare content collection: %w", err)
	}
	if s.usersID, err = s.getOrCreateCollection(ctx, cfg.Collection+"_users"); err != nil {
		return nil, fmt.Errorf("failed to prepare users collection: %w", err)
	}
	if s.eventsID, err = s.getOrCreateCollection(ctx, cfg.Collection+"_events"); err != nil {
		return nil, fmt.Errorf("failed to prepare events collection: %w", err)
	}
	return s, nil
}

func (s *ChromaStore) getOrCreateCollection(ctx context.Context, name string) (string, error) {
	url := fmt.Sprintf("%s/tenants/%s/databases/%s/collections", s.baseURL, s.tenant, s.database)
	payload := map[string]interface{}{
		"name":          name,
		"get_or_create": true,
	}

	var result map[string]interface{}
	if err := s.post(ctx, url, payload, &result); err != nil {
		return "", err
	}

	id, ok := result["id"].(string)
	if !ok {
		return "", fmt.Errorf("collection response missing id for %s", name)
	}
	return id, nil
}

func (s *ChromaStore) collectionURL(collectionID string) string {
	return fmt.Sprintf("%s/tenants/%s/databases/%s/collections/%s", s.baseURL, s.tenant, s.database, collectionID)
}

func (s *ChromaStore) post(ctx context.Context, url string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma request failed (status %d): %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to parse chroma response: %w", err)
		}
	}
	return nil
}

func (s *ChromaStore) upsert(ctx context.Context, collectionID, id string, embedding []float32, metadata map[string]interface{}) error {
	url := fmt.Sprintf("%s/upsert", s.collectionURL(collectionID))
	payload := map[string]interface{}{
		"ids":        []string{id},
		"embeddings": [][]float32{embedding},
		"metadatas":  []map[string]interface{}{metadata},
	}
	return s.post(ctx, url, payload, nil)
}

type chromaGetResults struct {
	IDs        []string                 `json:"ids"`
	Metadatas  []map[string]interface{} `json:"metadatas"`
	Embeddings [][]float32              `json:"embeddings"`
}

func (s *ChromaStore) get(ctx context.Context, collectionID string, payload map[string]interface{}) (*chromaGetResults, error) {
	url := fmt.Sprintf("%s/get", s.collectionURL(collectionID))
	var result chromaGetResults
	if err := s.post(ctx, url, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *ChromaStore) PutAtomic(ctx context.Context, state *types.ContentState, vector []float32) error {
	metadata, err := contentMetadata(state)
	if err != nil {
		return err
	}
	if err := s.upsert(ctx, s.contentID, state.ID, vector, metadata); err != nil {
		return fmt.Errorf("failed to store content %s: %w", state.ID, err)
	}
	return nil
}

func (s *ChromaStore) PutState(ctx context.Context, state *types.ContentState) error {
	metadata, err := contentMetadata(state)
	if err != nil {
		return err
	}
	// Chroma requires an embedding per document; failed items carry no
	// vector, so a zero vector stands in. They are filtered out of
	// similarity results by status.
	if err := s.upsert(ctx, s.contentID, state.ID, make([]float32, s.dimensions), metadata); err != nil {
		return fmt.Errorf("failed to store content state %s: %w", state.ID, err)
	}
	return nil
}

func contentMetadata(state *types.ContentState) (map[string]interface{}, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content state: %w", err)
	}
	return map[string]interface{}{
		"state":  string(data),
		"status": string(state.Status),
	}, nil
}

func decodeContentMetadata(metadata map[string]interface{}) (*types.ContentState, error) {
	raw, ok := metadata["state"].(string)
	if !ok {
		return nil, errors.New("document metadata missing state")
	}
	var state types.ContentState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode content state: %w", err)
	}
	return &state, nil
}

func (s *ChromaStore) GetContent(ctx context.Context, contentID string) (*types.ContentState, error) {
	result, err := s.get(ctx, s.contentID, map[string]interface{}{
		"ids":     []string{contentID},
		"include": []string{"metadatas"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get content %s: %w", contentID, err)
	}
	if len(result.Metadatas) == 0 {
		return nil, ErrNotFound
	}
	return decodeContentMetadata(result.Metadatas[0])
}

func (s *ChromaStore) ListStored(ctx context.Context) ([]*types.ContentState, error) {
	result, err := s.get(ctx, s.contentID, map[string]interface{}{
		"where":   map[string]interface{}{"status": string(types.StatusStored)},
		"include": []string{"metadatas"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stored content: %w", err)
	}

	out := make([]*types.ContentState, 0, len(result.Metadatas))
	for _, metadata := range result.Metadatas {
		state, err := decodeContentMetadata(metadata)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, nil
}

func (s *ChromaStore) GetContentVector(ctx context.Context, contentID string) ([]float32, error) {
	result, err := s.get(ctx, s.contentID, map[string]interface{}{
		"ids":     []string{contentID},
		"include": []string{"embeddings", "metadatas"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get vector for %s: %w", contentID, err)
	}
	if len(result.Embeddings) == 0 {
		return nil, ErrMissingVector
	}
	if len(result.Metadatas) > 0 {
		if status, ok := result.Metadatas[0]["status"].(string); ok && status != string(types.StatusStored) {
			return nil, ErrMissingVector
		}
	}
	return result.Embeddings[0], nil
}

func (s *ChromaStore) GetUserVector(ctx context.Context, userID string) ([]float32, error) {
	result, err := s.get(ctx, s.usersID, map[string]interface{}{
		"ids":     []string{userID},
		"include": []string{"embeddings"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user vector for %s: %w", userID, err)
	}
	if len(result.Embeddings) == 0 {
		return make([]float32, s.dimensions), nil
	}
	return result.Embeddings[0], nil
}

func (s *ChromaStore) PutUserVector(ctx context.Context, userID string, vector []float32) error {
	metadata := map[string]interface{}{
		"updated_at": nowUTC().Format(time.RFC3339),
	}
	if err := s.upsert(ctx, s.usersID, userID, vector, metadata); err != nil {
		return fmt.Errorf("failed to store user vector for %s: %w", userID, err)
	}
	return nil
}

func (s *ChromaStore) AppendEvent(ctx context.Context, event types.InteractionEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = nowUTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	metadata := map[string]interface{}{
		"user_id":    event.UserID,
		"content_id": event.ContentID,
		"kind":       string(event.Kind),
		"created_at": event.CreatedAt.Format(time.RFC3339Nano),
	}
	if err := s.upsert(ctx, s.eventsID, event.ID, make([]float32, s.dimensions), metadata); err != nil {
		return fmt.Errorf("failed to append event for %s: %w", event.UserID, err)
	}
	return nil
}

func (s *ChromaStore) EventsFor(ctx context.Context, userID string) ([]types.InteractionEvent, error) {
	result, err := s.get(ctx, s.eventsID, map[string]interface{}{
		"where":   map[string]interface{}{"user_id": userID},
		"include": []string{"metadatas"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", userID, err)
	}

	events := make([]types.InteractionEvent, 0, len(result.Metadatas))
	for i, metadata := range result.Metadatas {
		event := types.InteractionEvent{UserID: userID}
		if i < len(result.IDs) {
			event.ID = result.IDs[i]
		}
		if v, ok := metadata["content_id"].(string); ok {
			event.ContentID = v
		}
		if v, ok := metadata["kind"].(string); ok {
			event.Kind = types.FeedbackKind(v)
		}
		if v, ok := metadata["created_at"].(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				event.CreatedAt = ts
			}
		}
		events = append(events, event)
	}

	// The backend returns metadata in arbitrary order; callers rely on
	// chronological order, oldest first.
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

type chromaQueryResults struct {
	IDs       [][]string  `json:"ids"`
	Distances [][]float32 `json:"distances"`
}

func (s *ChromaStore) QuerySimilar(ctx context.Context, vector []float32, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	url := fmt.Sprintf("%s/query", s.collectionURL(s.contentID))
	payload := map[string]interface{}{
		"query_embeddings": [][]float32{vector},
		"n_results":        limit,
		"where":            map[string]interface{}{"status": string(types.StatusStored)},
		"include":          []string{"distances"},
	}

	var result chromaQueryResults
	if err := s.post(ctx, url, payload, &result); err != nil {
		return nil, fmt.Errorf("failed to query similar content: %w", err)
	}

	if len(result.IDs) == 0 {
		return nil, nil
	}

	candidates := make([]Candidate, 0, len(result.IDs[0]))
	for i, id := range result.IDs[0] {
		// Cosine distance = 1 - cosine similarity
		similarity := 1.0
		if len(result.Distances) > 0 && i < len(result.Distances[0]) {
			similarity = 1.0 - float64(result.Distances[0][i])
		}
		candidates = append(candidates, Candidate{ContentID: id, Similarity: similarity})
	}
	return candidates, nil
}

func (s *ChromaStore) Close() error { return nil }
