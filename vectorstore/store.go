package vectorstore

import (
	"context"
	"errors"
	"time"

	"insighthub/types"
)

// ErrMissingVector is returned when feedback references a content item
// whose vector was never stored. It marks an upstream data-integrity gap
// and is never retried.
var ErrMissingVector = errors.New("content vector missing")

// ErrNotFound is returned for lookups of unknown content IDs.
var ErrNotFound = errors.New("content not found")

// Candidate is one similarity-query hit.
type Candidate struct {
	ContentID  string
	Similarity float64
}

// Store persists content records, content vectors, interest vectors and
// interaction events. PutAtomic writes the record and its vector together:
// both or neither. User-vector writes must be linearizable per user.
type Store interface {
	// Content records + vectors
	PutAtomic(ctx context.Context, state *types.ContentState, vector []float32) error
	// PutState writes a record without a vector; used to finalize failed
	// items so they stay queryable with their error_type.
	PutState(ctx context.Context, state *types.ContentState) error
	GetContent(ctx context.Context, contentID string) (*types.ContentState, error)
	ListStored(ctx context.Context) ([]*types.ContentState, error)
	GetContentVector(ctx context.Context, contentID string) ([]float32, error)

	// Interest vectors. GetUserVector returns a zero vector of the store's
	// dimensionality for unknown users.
	GetUserVector(ctx context.Context, userID string) ([]float32, error)
	PutUserVector(ctx context.Context, userID string, vector []float32) error

	// Interaction events, append-only.
	AppendEvent(ctx context.Context, event types.InteractionEvent) error
	EventsFor(ctx context.Context, userID string) ([]types.InteractionEvent, error)

	// QuerySimilar returns stored content ordered by cosine similarity to
	// the query vector, best first.
	QuerySimilar(ctx context.Context, vector []float32, limit int) ([]Candidate, error)

	Close() error
}

// nowUTC is split out so backends stamp times consistently.
func nowUTC() time.Time { return time.Now().UTC() }
