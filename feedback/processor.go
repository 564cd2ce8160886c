package feedback

import (
	"context"
	"fmt"
	"log"
	"sync"

	"insighthub/config"
	"insighthub/types"
	"insighthub/vectorstore"
)

// Weights are the per-kind update magnitudes. The granular negative kinds
// rely on projection heuristics whose exact strength is a tuning knob, so
// all of them live here rather than as fixed constants.
type Weights struct {
	Like           float64
	Save           float64
	NotRelevant    float64
	NotNow         float64
	TooSuperficial float64
	TooAdvanced    float64
}

// DefaultWeights mirrors the stock tuning: likes pull hard, saves a
// little harder, the hide variants push back progressively gentler the
// more specific the complaint.
func DefaultWeights() Weights {
	return Weights{
		Like:           0.10,
		Save:           0.12,
		NotRelevant:    0.05,
		NotNow:         0.02,
		TooSuperficial: 0.03,
		TooAdvanced:    0.04,
	}
}

// For returns the magnitude configured for kind.
func (w Weights) For(kind types.FeedbackKind) float64 {
	switch kind {
	case types.FeedbackLike:
		return w.Like
	case types.FeedbackSave:
		return w.Save
	case types.FeedbackHideNotRelevant:
		return w.NotRelevant
	case types.FeedbackHideNotNow:
		return w.NotNow
	case types.FeedbackHideTooSuperficial:
		return w.TooSuperficial
	case types.FeedbackHideTooAdvanced:
		return w.TooAdvanced
	}
	return 0
}

// Apply produces the updated interest vector for one feedback event.
// Positive kinds pull the vector toward the content; hide_not_relevant and
// hide_not_now push away from it. The granular kinds avoid overcorrection
// by decomposing the content vector against a reference direction:
// hide_too_superficial attenuates only the parallel (shared, general)
// component, hide_too_advanced only the orthogonal (specific, advanced)
// residual. The result is always unit-normalized.
func Apply(userVec, contentVec []float32, kind types.FeedbackKind, weight float64, reference []float32) []float32 {
	switch kind {
	case types.FeedbackLike, types.FeedbackSave:
		return vectorstore.Normalize(vectorstore.Add(userVec, contentVec, weight))

	case types.FeedbackHideNotRelevant, types.FeedbackHideNotNow:
		return vectorstore.Normalize(vectorstore.Add(userVec, contentVec, -weight))

	case types.FeedbackHideTooSuperficial:
		parallel := vectorstore.Project(contentVec, reference)
		return vectorstore.Normalize(vectorstore.Add(userVec, parallel, -weight))

	case types.FeedbackHideTooAdvanced:
		residual := vectorstore.Sub(contentVec, vectorstore.Project(contentVec, reference))
		return vectorstore.Normalize(vectorstore.Add(userVec, residual, -weight))
	}

	return vectorstore.Normalize(userVec)
}

// Processor turns interaction events into interest-vector updates against
// the store. Updates for one user are serialized; different users proceed
// in parallel. Errors are logged by callers and never auto-retried.
type Processor struct {
	store   vectorstore.Store
	weights Weights

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProcessor creates a processor over the given store.
func NewProcessor(store vectorstore.Store, weights Weights) *Processor {
	return &Processor{
		store:   store,
		weights: weights,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Process applies one event: read-modify-write of the user's interest
// vector plus an audit append. A missing content vector aborts with
// vectorstore.ErrMissingVector; the event is not recorded.
func (p *Processor) Process(ctx context.Context, event types.InteractionEvent) error {
	if !event.Kind.Valid() {
		return fmt.Errorf("unknown feedback kind %q", event.Kind)
	}

	lock := p.userLock(event.UserID)
	lock.Lock()
	defer lock.Unlock()

	contentVec, err := p.store.GetContentVector(ctx, event.ContentID)
	if err != nil {
		return fmt.Errorf("feedback for content %s: %w", event.ContentID, err)
	}

	userVec, err := p.store.GetUserVector(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to load interest vector for %s: %w", event.UserID, err)
	}
	if len(userVec) != len(contentVec) {
		return fmt.Errorf("interest vector for %s: %w", event.UserID, types.ErrDimensionMismatch)
	}

	var reference []float32
	if event.Kind == types.FeedbackHideTooSuperficial || event.Kind == types.FeedbackHideTooAdvanced {
		reference = p.referenceDirection(ctx, event.UserID, userVec)
	}

	updated := Apply(userVec, contentVec, event.Kind, p.weights.For(event.Kind), reference)

	if err := p.store.PutUserVector(ctx, event.UserID, updated); err != nil {
		return fmt.Errorf("failed to persist interest vector for %s: %w", event.UserID, err)
	}
	if err := p.store.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to record event for %s: %w", event.UserID, err)
	}

	log.Printf("Applied %s feedback from user %s on content %s", event.Kind, event.UserID, event.ContentID)
	return nil
}

// referenceDirection is the mean of the user's recent positive content
// vectors; when no positives exist yet the current interest vector stands
// in so the projection still has a meaningful axis.
func (p *Processor) referenceDirection(ctx context.Context, userID string, userVec []float32) []float32 {
	events, err := p.store.EventsFor(ctx, userID)
	if err != nil {
		log.Printf("Warning: failed to load events for %s, using interest vector as reference: %v", userID, err)
		return userVec
	}

	var positives [][]float32
	for i := len(events) - 1; i >= 0 && len(positives) < config.RecentPositiveWindow; i-- {
		if !events[i].Kind.Positive() {
			continue
		}
		vec, err := p.store.GetContentVector(ctx, events[i].ContentID)
		if err != nil {
			continue
		}
		positives = append(positives, vec)
	}

	if len(positives) == 0 {
		return userVec
	}
	return vectorstore.Mean(positives)
}

func (p *Processor) userLock(userID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[userID] = lock
	}
	return lock
}
