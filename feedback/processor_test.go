package feedback

import (
	"context"
	"errors"
	"math"
	"testing"

	"insighthub/types"
	"insighthub/vectorstore"
)

func TestApplyLikePullsTowardContent(t *testing.T) {
	user := vectorstore.Normalize([]float32{1, 1})
	content := []float32{1, 0}

	updated := Apply(user, content, types.FeedbackLike, 0.10, nil)

	if math.Abs(vectorstore.Norm(updated)-1.0) > 1e-6 {
		t.Fatalf("updated vector not unit length: %f", vectorstore.Norm(updated))
	}
	before := vectorstore.Cosine(user, content)
	after := vectorstore.Cosine(updated, content)
	if after <= before {
		t.Errorf("like should increase similarity: %f -> %f", before, after)
	}
}

func TestApplyHideNotRelevantPushesAway(t *testing.T) {
	user := vectorstore.Normalize([]float32{1, 1})
	content := []float32{1, 0}

	updated := Apply(user, content, types.FeedbackHideNotRelevant, 0.05, nil)

	if math.Abs(vectorstore.Norm(updated)-1.0) > 1e-6 {
		t.Fatalf("updated vector not unit length: %f", vectorstore.Norm(updated))
	}
	if vectorstore.Cosine(updated, content) >= vectorstore.Cosine(user, content) {
		t.Error("hide_not_relevant should decrease similarity")
	}
}

func TestApplyTooSuperficialAttenuatesParallelComponent(t *testing.T) {
	user := vectorstore.Normalize([]float32{1, 1, 0})
	reference := []float32{1, 0, 0}
	content := []float32{0.8, 0.6, 0}

	updated := Apply(user, content, types.FeedbackHideTooSuperficial, 0.5, reference)

	// Only the component shared with the reference direction should shrink.
	if vectorstore.Cosine(updated, reference) >= vectorstore.Cosine(user, reference) {
		t.Error("similarity to the reference direction should decrease")
	}
	orthogonal := []float32{0, 1, 0}
	if vectorstore.Cosine(updated, orthogonal) <= vectorstore.Cosine(user, orthogonal) {
		t.Error("the orthogonal interest should gain relative weight")
	}
}

func TestApplyTooAdvancedAttenuatesResidual(t *testing.T) {
	user := vectorstore.Normalize([]float32{1, 1, 0})
	reference := []float32{1, 0, 0}
	content := []float32{0.8, 0.6, 0}

	updated := Apply(user, content, types.FeedbackHideTooAdvanced, 0.5, reference)

	// The residual lies along [0,1,0]; that direction should shrink while
	// the reference-aligned interest gains relative weight.
	residualAxis := []float32{0, 1, 0}
	if vectorstore.Cosine(updated, residualAxis) >= vectorstore.Cosine(user, residualAxis) {
		t.Error("similarity to the residual direction should decrease")
	}
	if vectorstore.Cosine(updated, reference) <= vectorstore.Cosine(user, reference) {
		t.Error("the reference-aligned interest should gain relative weight")
	}
}

func TestApplyZeroUserVector(t *testing.T) {
	user := make([]float32, 3)
	content := []float32{1, 0, 0}

	updated := Apply(user, content, types.FeedbackLike, 0.10, nil)
	if math.Abs(vectorstore.Norm(updated)-1.0) > 1e-6 {
		t.Fatalf("first like should produce a unit vector, got norm %f", vectorstore.Norm(updated))
	}
	if vectorstore.Cosine(updated, content) < 0.999 {
		t.Error("first like should align the profile with the content")
	}
}

func newTestProcessor(t *testing.T) (*Processor, *vectorstore.MemoryStore) {
	t.Helper()
	store := vectorstore.NewMemoryStore(3)
	return NewProcessor(store, DefaultWeights()), store
}

func putContent(t *testing.T, store *vectorstore.MemoryStore, id string, vec []float32) {
	t.Helper()
	state := types.NewContentState("https://example.com/"+id, types.SourceLinkPost)
	state.ID = id
	state.Status = types.StatusStored
	if err := store.PutAtomic(context.Background(), state, vec); err != nil {
		t.Fatalf("PutAtomic: %v", err)
	}
}

func TestProcessAppliesAndRecords(t *testing.T) {
	processor, store := newTestProcessor(t)
	ctx := context.Background()

	putContent(t, store, "c1", []float32{1, 0, 0})

	event := types.InteractionEvent{
		ID:        "e1",
		UserID:    "u1",
		ContentID: "c1",
		Kind:      types.FeedbackLike,
	}
	if err := processor.Process(ctx, event); err != nil {
		t.Fatalf("Process: %v", err)
	}

	vec, err := store.GetUserVector(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserVector: %v", err)
	}
	if math.Abs(vectorstore.Norm(vec)-1.0) > 1e-6 {
		t.Errorf("interest vector not unit length: %f", vectorstore.Norm(vec))
	}
	if vectorstore.Cosine(vec, []float32{1, 0, 0}) < 0.999 {
		t.Errorf("interest vector should align with the liked content: %v", vec)
	}

	events, err := store.EventsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("EventsFor: %v", err)
	}
	if len(events) != 1 || events[0].ID != "e1" {
		t.Errorf("expected the event on record, got %+v", events)
	}
}

func TestProcessMissingContentVector(t *testing.T) {
	processor, store := newTestProcessor(t)
	ctx := context.Background()

	event := types.InteractionEvent{
		ID:        "e1",
		UserID:    "u1",
		ContentID: "ghost",
		Kind:      types.FeedbackLike,
	}
	err := processor.Process(ctx, event)
	if !errors.Is(err, vectorstore.ErrMissingVector) {
		t.Fatalf("expected ErrMissingVector, got %v", err)
	}

	events, _ := store.EventsFor(ctx, "u1")
	if len(events) != 0 {
		t.Errorf("aborted feedback must not be recorded, got %+v", events)
	}
}

func TestProcessRejectsUnknownKind(t *testing.T) {
	processor, _ := newTestProcessor(t)

	err := processor.Process(context.Background(), types.InteractionEvent{
		UserID:    "u1",
		ContentID: "c1",
		Kind:      "meh",
	})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestProcessGranularUsesRecentPositives(t *testing.T) {
	processor, store := newTestProcessor(t)
	ctx := context.Background()

	putContent(t, store, "liked", []float32{1, 0, 0})
	putContent(t, store, "deep", []float32{0.6, 0.8, 0})

	like := types.InteractionEvent{ID: "e1", UserID: "u1", ContentID: "liked", Kind: types.FeedbackLike}
	if err := processor.Process(ctx, like); err != nil {
		t.Fatalf("like: %v", err)
	}

	before, _ := store.GetUserVector(ctx, "u1")

	advanced := types.InteractionEvent{ID: "e2", UserID: "u1", ContentID: "deep", Kind: types.FeedbackHideTooAdvanced}
	if err := processor.Process(ctx, advanced); err != nil {
		t.Fatalf("too_advanced: %v", err)
	}

	after, err := store.GetUserVector(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserVector: %v", err)
	}
	if math.Abs(vectorstore.Norm(after)-1.0) > 1e-6 {
		t.Errorf("interest vector not unit length: %f", vectorstore.Norm(after))
	}

	// The reference is the liked vector [1,0,0]; the advanced residual lies
	// along [0,1,0], so that direction must not have grown.
	residualAxis := []float32{0, 1, 0}
	if vectorstore.Cosine(after, residualAxis) > vectorstore.Cosine(before, residualAxis)+1e-9 {
		t.Error("too_advanced must not grow the residual direction")
	}
}
