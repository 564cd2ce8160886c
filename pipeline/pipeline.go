package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"insighthub/config"
	"insighthub/ports"
	"insighthub/resilience"
	"insighthub/types"
	"insighthub/vectorstore"
)

// Archiver persists raw content outside the primary store. Archival is
// best-effort; failures never fail the item.
type Archiver interface {
	Archive(ctx context.Context, contentID string, raw []byte) error
}

// Ports bundles the external capabilities one pipeline run needs.
type Ports struct {
	Adapters   map[types.SourceType]ports.ContentSourceAdapter
	Summarizer ports.SummarizationPort
	Embedder   ports.EmbeddingPort
	Assessor   ports.QualityAssessmentPort
}

// Pipeline drives one content item through fetch, summarize, embed, score
// and store. Each stage call goes through the executor; stage failures are
// classified and retried a bounded number of times before the item is
// finalized as failed.
type Pipeline struct {
	ports    Ports
	store    vectorstore.Store
	executor *resilience.Executor
	archiver Archiver
}

// New creates a pipeline. archiver may be nil to disable raw archival.
func New(p Ports, store vectorstore.Store, executor *resilience.Executor, archiver Archiver) *Pipeline {
	return &Pipeline{
		ports:    p,
		store:    store,
		executor: executor,
		archiver: archiver,
	}
}

type stage struct {
	status types.Status
	run    func(ctx context.Context, state *types.ContentState) error
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{types.StatusFetching, p.fetch},
		{types.StatusSummarizing, p.summarize},
		{types.StatusEmbedding, p.embed},
		{types.StatusScoring, p.score},
		{types.StatusStored, p.persist},
	}
}

// Process runs state to completion. A stage failure re-enters the same
// stage while the retry budget allows; exhaustion or a permanent error
// finalizes the item as failed. Cancellation discards the item without
// persisting partial progress.
func (p *Pipeline) Process(ctx context.Context, state *types.ContentState) error {
	stages := p.stages()

	for i := 0; i < len(stages); {
		if ctx.Err() != nil {
			log.Printf("Discarding %s: %v", state.ID, ctx.Err())
			return ctx.Err()
		}

		s := stages[i]
		state.Status = s.status
		state.Touch()

		if err := s.run(ctx, state); err != nil {
			handleFailure(state, err)
			if state.ShouldRetry {
				log.Printf("Retrying stage %s for %s (attempt %d): %v",
					s.status, state.ID, state.RetryCount, err)
				continue
			}
			return p.finalize(ctx, state, err)
		}

		// Stage success clears any prior failure bookkeeping.
		state.ErrorType = ""
		state.ErrorMessage = ""
		state.ShouldRetry = false
		i++
	}

	log.Printf("✅ Stored content %s (%s)", state.ID, state.SourceURL)
	return nil
}

// finalize records a terminal failure so it stays queryable.
func (p *Pipeline) finalize(ctx context.Context, state *types.ContentState, cause error) error {
	state.Status = types.StatusFailed
	state.Touch()

	if ctx.Err() != nil {
		log.Printf("Discarding failed %s without persisting: %v", state.ID, ctx.Err())
		return cause
	}
	if err := p.store.PutState(ctx, state); err != nil {
		log.Printf("❌ Failed to persist failed state for %s: %v", state.ID, err)
	}
	log.Printf("❌ Content %s failed at %s: %s (%s)", state.ID, state.UpdatedAt, state.ErrorMessage, state.ErrorType)
	return cause
}

func (p *Pipeline) fetch(ctx context.Context, state *types.ContentState) error {
	adapter, ok := p.ports.Adapters[state.SourceType]
	if !ok {
		return resilience.Permanent(fmt.Errorf("no adapter for source type %s", state.SourceType))
	}

	return p.executor.Execute(ctx, "fetch."+string(state.SourceType), func(ctx context.Context) error {
		result, err := adapter.Fetch(ctx, state.SourceURL)
		if err != nil {
			return err
		}
		state.RawText = result.RawText
		state.Title = result.Title
		if !result.PublishedAt.IsZero() {
			state.PublishedAt = result.PublishedAt
		}
		return nil
	})
}

func (p *Pipeline) summarize(ctx context.Context, state *types.ContentState) error {
	input := state.RawText
	if runes := []rune(input); len(runes) > config.MaxSummaryInput {
		input = string(runes[:config.MaxSummaryInput])
	}

	return p.executor.Execute(ctx, "summarize", func(ctx context.Context) error {
		summary, err := p.ports.Summarizer.Summarize(ctx, input, config.MaxSummaryLength)
		if err != nil {
			return err
		}
		state.Summary = summary
		return nil
	})
}

func (p *Pipeline) embed(ctx context.Context, state *types.ContentState) error {
	text := state.Summary
	if text == "" {
		text = state.RawText
	}

	return p.executor.Execute(ctx, "embed", func(ctx context.Context) error {
		vector, err := p.ports.Embedder.Embed(ctx, text)
		if err != nil {
			return err
		}
		if want := p.ports.Embedder.Dimensions(); len(vector) != want {
			return resilience.Permanent(fmt.Errorf("%w: got %d, want %d",
				types.ErrDimensionMismatch, len(vector), want))
		}
		state.Embedding = vector
		return nil
	})
}

func (p *Pipeline) score(ctx context.Context, state *types.ContentState) error {
	return p.executor.Execute(ctx, "score", func(ctx context.Context) error {
		criteria, err := p.ports.Assessor.Assess(ctx, state.Summary)
		if err != nil {
			return err
		}
		state.Quality = &types.QualityScores{
			Clarity:       criteria.Clarity,
			Depth:         criteria.Depth,
			Novelty:       criteria.Novelty,
			Actionability: criteria.Actionability,
			Overall:       overallQuality(criteria),
		}
		return nil
	})
}

func (p *Pipeline) persist(ctx context.Context, state *types.ContentState) error {
	state.ProcessedAt = time.Now().UTC()

	err := p.executor.Execute(ctx, "store.put", func(ctx context.Context) error {
		return p.store.PutAtomic(ctx, state, state.Embedding)
	})
	if err != nil {
		return err
	}

	if p.archiver != nil && state.RawText != "" {
		if err := p.archiver.Archive(ctx, state.ID, []byte(state.RawText)); err != nil {
			log.Printf("Warning: raw-content archive failed for %s: %v", state.ID, err)
		}
	}
	return nil
}

// overallQuality folds the four 1-10 criteria into a weighted [0,1] value.
func overallQuality(c *ports.Criteria) float64 {
	weighted := float64(c.Clarity)*config.QualityWeightClarity +
		float64(c.Depth)*config.QualityWeightDepth +
		float64(c.Novelty)*config.QualityWeightNovelty +
		float64(c.Actionability)*config.QualityWeightActionability
	return weighted / 10.0
}
