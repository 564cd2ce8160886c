package ranking

import (
	"math"
	"sort"
	"time"

	"insighthub/config"
	"insighthub/types"
	"insighthub/vectorstore"
)

// Weights tune the combined relevance score.
type Weights struct {
	Semantic      float64
	Freshness     float64
	Quality       float64
	Interaction   float64
	HalfLifeHours float64
}

// DefaultWeights returns the stock tuning.
func DefaultWeights() Weights {
	return Weights{
		Semantic:      config.WeightSemantic,
		Freshness:     config.WeightFreshness,
		Quality:       config.WeightQuality,
		Interaction:   config.WeightInteraction,
		HalfLifeHours: config.FreshnessHalfLifeHours,
	}
}

// Engine computes relevance scores. It is pure: no I/O, no clocks, no
// stored state beyond its weights.
type Engine struct {
	weights Weights
}

// NewEngine creates an engine with the given weights.
func NewEngine(weights Weights) *Engine {
	if weights.HalfLifeHours <= 0 {
		weights.HalfLifeHours = config.FreshnessHalfLifeHours
	}
	return &Engine{weights: weights}
}

// Score combines semantic similarity, freshness, quality and the user's
// interaction history into one relevance value. Freshness and quality
// amplify semantic relevance multiplicatively; interaction is a large
// additive override so hidden content sinks regardless of other signals.
// Missing embedding or quality contribute 0, never an error.
func (e *Engine) Score(content *types.ContentState, profile []float32, events []types.InteractionEvent, now time.Time) float64 {
	semantic := e.semantic(content, profile)
	freshness := e.Freshness(content.PublishedAt, now)
	quality := qualitySignal(content)
	interaction := interactionSignal(content.ID, events)

	base := semantic * e.weights.Semantic
	base *= 1 + freshness*e.weights.Freshness
	base *= 1 + quality*e.weights.Quality
	return base + interaction*e.weights.Interaction
}

func (e *Engine) semantic(content *types.ContentState, profile []float32) float64 {
	if len(content.Embedding) == 0 || len(profile) == 0 {
		return 0
	}
	return clamp01(vectorstore.Cosine(profile, content.Embedding))
}

// Freshness decays exponentially with age, halving every half-life.
// Future timestamps clamp to 1.0; an unset timestamp scores 0.
func (e *Engine) Freshness(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return 0
	}
	ageHours := now.Sub(publishedAt).Hours()
	if ageHours <= 0 {
		return 1.0
	}
	return math.Exp(-math.Ln2 * ageHours / e.weights.HalfLifeHours)
}

func qualitySignal(content *types.ContentState) float64 {
	if content.Quality == nil {
		return 0
	}
	return clamp01(content.Quality.Overall)
}

// interactionSignal looks only at the most recent event for the content:
// +1 for like/save, -1 for any hide, 0 with no history.
func interactionSignal(contentID string, events []types.InteractionEvent) float64 {
	var latest *types.InteractionEvent
	for i := range events {
		event := &events[i]
		if event.ContentID != contentID {
			continue
		}
		if latest == nil || event.CreatedAt.After(latest.CreatedAt) {
			latest = event
		}
	}
	if latest == nil {
		return 0
	}
	if latest.Kind.Positive() {
		return 1.0
	}
	return -1.0
}

// ScoredItem pairs a content ID with its relevance score.
type ScoredItem struct {
	ContentID string  `json:"content_id"`
	Title     string  `json:"title,omitempty"`
	Score     float64 `json:"score"`
}

// Rank scores the stored candidates for one user and returns them best
// first, ties broken by publication time descending. Items that never
// reached the stored status are skipped.
func (e *Engine) Rank(candidates []*types.ContentState, profile []float32, events []types.InteractionEvent, now time.Time, limit int) []ScoredItem {
	type scored struct {
		item        ScoredItem
		publishedAt time.Time
	}

	ranked := make([]scored, 0, len(candidates))
	for _, content := range candidates {
		if content.Status != types.StatusStored {
			continue
		}
		ranked = append(ranked, scored{
			item: ScoredItem{
				ContentID: content.ID,
				Title:     content.Title,
				Score:     e.Score(content, profile, events, now),
			},
			publishedAt: content.PublishedAt,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].item.Score != ranked[j].item.Score {
			return ranked[i].item.Score > ranked[j].item.Score
		}
		return ranked[i].publishedAt.After(ranked[j].publishedAt)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]ScoredItem, len(ranked))
	for i, s := range ranked {
		out[i] = s.item
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
