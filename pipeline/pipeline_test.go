package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"insighthub/ports"
	"insighthub/resilience"
	"insighthub/types"
	"insighthub/vectorstore"
)

type fakeAdapter struct {
	text        string
	title       string
	publishedAt time.Time
	err         error
	calls       int
}

func (f *fakeAdapter) Fetch(ctx context.Context, url string) (*ports.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ports.FetchResult{RawText: f.text, Title: f.title, PublishedAt: f.publishedAt}, nil
}

type fakeSummarizer struct {
	failures int
	calls    int
	lastText string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string, maxLen int) (string, error) {
	f.calls++
	f.lastText = text
	if f.calls <= f.failures {
		return "", errors.New("503 service unavailable")
	}
	return "a tight summary", nil
}

type fakeEmbedder struct {
	dimensions int
	produce    int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.produce)
	if f.produce > 0 {
		vec[0] = 1
	}
	return vec, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dimensions }

type fakeAssessor struct {
	criteria ports.Criteria
}

func (f *fakeAssessor) Assess(ctx context.Context, text string) (*ports.Criteria, error) {
	c := f.criteria
	return &c, nil
}

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.ExecutorConfig{
		Policy: resilience.Policy{
			MaxAttempts:       1,
			BaseDelay:         time.Millisecond,
			Multiplier:        2.0,
			PerAttemptTimeout: time.Second,
		},
		Breaker: resilience.BreakerConfig{FailureThreshold: 100},
	})
}

func newTestPipeline(adapter ports.ContentSourceAdapter, summarizer ports.SummarizationPort) (*Pipeline, *vectorstore.MemoryStore) {
	store := vectorstore.NewMemoryStore(4)
	p := New(Ports{
		Adapters:   map[types.SourceType]ports.ContentSourceAdapter{types.SourceLinkPost: adapter},
		Summarizer: summarizer,
		Embedder:   &fakeEmbedder{dimensions: 4, produce: 4},
		Assessor:   &fakeAssessor{criteria: ports.Criteria{Clarity: 8, Depth: 6, Novelty: 4, Actionability: 8}},
	}, store, fastExecutor(), nil)
	return p, store
}

func TestProcessHappyPath(t *testing.T) {
	published := time.Now().UTC().Add(-time.Hour)
	adapter := &fakeAdapter{text: "long raw text", title: "A Useful Article", publishedAt: published}
	p, store := newTestPipeline(adapter, &fakeSummarizer{})

	state := types.NewContentState("https://example.com/article", types.SourceLinkPost)
	if err := p.Process(context.Background(), state); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, err := store.GetContent(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if got.Status != types.StatusStored {
		t.Fatalf("status = %s, want stored", got.Status)
	}
	if got.Summary != "a tight summary" {
		t.Errorf("summary = %q", got.Summary)
	}
	if got.Title != "A Useful Article" {
		t.Errorf("title = %q, want the fetched title", got.Title)
	}
	if !got.PublishedAt.Equal(published) {
		t.Errorf("published_at = %v, want %v", got.PublishedAt, published)
	}
	if got.Quality == nil {
		t.Fatal("quality missing")
	}
	// 8*.25 + 6*.30 + 4*.20 + 8*.25 = 6.6 -> 0.66
	if math.Abs(got.Quality.Overall-0.66) > 1e-9 {
		t.Errorf("overall = %f, want 0.66", got.Quality.Overall)
	}
	if got.ProcessedAt.IsZero() {
		t.Error("processed_at not stamped")
	}

	vec, err := store.GetContentVector(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("GetContentVector: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("vector length = %d, want 4", len(vec))
	}
}

func TestProcessRetriesFailedStage(t *testing.T) {
	adapter := &fakeAdapter{text: "raw"}
	summarizer := &fakeSummarizer{failures: 2}
	p, store := newTestPipeline(adapter, summarizer)

	state := types.NewContentState("https://example.com/x", types.SourceLinkPost)
	if err := p.Process(context.Background(), state); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if adapter.calls != 1 {
		t.Errorf("retry must re-enter the failed stage only; fetch ran %d times", adapter.calls)
	}
	if summarizer.calls != 3 {
		t.Errorf("summarize ran %d times, want 3", summarizer.calls)
	}

	got, _ := store.GetContent(context.Background(), state.ID)
	if got.Status != types.StatusStored {
		t.Fatalf("status = %s, want stored", got.Status)
	}
	if got.RetryCount != 2 {
		t.Errorf("retry_count = %d, want 2", got.RetryCount)
	}
	if got.ErrorType != "" || got.ShouldRetry {
		t.Errorf("recovered item should carry no failure bookkeeping: %+v", got)
	}
}

func TestProcessDimensionMismatchIsPermanent(t *testing.T) {
	store := vectorstore.NewMemoryStore(4)
	summarizer := &fakeSummarizer{}
	p := New(Ports{
		Adapters:   map[types.SourceType]ports.ContentSourceAdapter{types.SourceLinkPost: &fakeAdapter{text: "raw"}},
		Summarizer: summarizer,
		Embedder:   &fakeEmbedder{dimensions: 4, produce: 3},
		Assessor:   &fakeAssessor{},
	}, store, fastExecutor(), nil)

	state := types.NewContentState("https://example.com/bad", types.SourceLinkPost)
	err := p.Process(context.Background(), state)
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}

	got, getErr := store.GetContent(context.Background(), state.ID)
	if getErr != nil {
		t.Fatalf("failed item must stay queryable: %v", getErr)
	}
	if got.Status != types.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.ErrorType != string(resilience.ClassPermanent) {
		t.Errorf("error_type = %q, want permanent", got.ErrorType)
	}
	if got.RetryCount != 1 {
		t.Errorf("permanent failure should consume one attempt, got %d", got.RetryCount)
	}

	candidates, _ := store.QuerySimilar(context.Background(), []float32{1, 0, 0, 0}, 10)
	if len(candidates) != 0 {
		t.Errorf("failed items must never rank: %+v", candidates)
	}
}

func TestProcessStopsAtRetryCeiling(t *testing.T) {
	adapter := &fakeAdapter{err: errors.New("connection refused")}
	p, store := newTestPipeline(adapter, &fakeSummarizer{})

	state := types.NewContentState("https://example.com/down", types.SourceLinkPost)
	if err := p.Process(context.Background(), state); err == nil {
		t.Fatal("expected failure")
	}

	got, err := store.GetContent(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if got.Status != types.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.RetryCount != 3 {
		t.Errorf("retry_count = %d, want 3", got.RetryCount)
	}
	if got.ErrorType != string(resilience.ClassNetwork) {
		t.Errorf("error_type = %q, want network", got.ErrorType)
	}
	if got.ShouldRetry {
		t.Error("exhausted item must not be retryable")
	}
}

func TestProcessUnknownSourceType(t *testing.T) {
	p, store := newTestPipeline(&fakeAdapter{text: "raw"}, &fakeSummarizer{})

	state := types.NewContentState("https://example.com/clip", types.SourceVideo)
	if err := p.Process(context.Background(), state); err == nil {
		t.Fatal("expected failure for missing adapter")
	}

	got, err := store.GetContent(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if got.ErrorType != string(resilience.ClassPermanent) {
		t.Errorf("error_type = %q, want permanent", got.ErrorType)
	}
}

func TestProcessDiscardsOnCancellation(t *testing.T) {
	p, store := newTestPipeline(&fakeAdapter{text: "raw"}, &fakeSummarizer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := types.NewContentState("https://example.com/late", types.SourceLinkPost)
	if err := p.Process(ctx, state); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if _, err := store.GetContent(context.Background(), state.ID); !errors.Is(err, vectorstore.ErrNotFound) {
		t.Error("cancelled items must not be persisted")
	}
}

func TestProcessTruncatesSummaryInput(t *testing.T) {
	long := make([]rune, 30000)
	for i := range long {
		long[i] = 'x'
	}
	adapter := &fakeAdapter{text: string(long)}
	summarizer := &fakeSummarizer{}
	p, _ := newTestPipeline(adapter, summarizer)

	state := types.NewContentState("https://example.com/long", types.SourceLinkPost)
	if err := p.Process(context.Background(), state); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := len([]rune(summarizer.lastText)); got != 24000 {
		t.Errorf("summarize input length = %d, want 24000", got)
	}
}
