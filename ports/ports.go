package ports

import (
	"context"
	"time"
)

// FetchResult is what a content-source adapter returns for one URL.
// RawText carries the extracted article text for link posts and the
// transcript for videos.
type FetchResult struct {
	RawText     string
	Title       string
	PublishedAt time.Time
}

// ContentSourceAdapter fetches raw content for a URL. Implementations live
// outside the relevance core; fetcher ships a readability-based default.
type ContentSourceAdapter interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// SummarizationPort generates a summary of at most maxLen characters.
// Callers truncate oversized input before calling.
type SummarizationPort interface {
	Summarize(ctx context.Context, text string, maxLen int) (string, error)
}

// EmbeddingPort turns text into a fixed-length vector.
type EmbeddingPort interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Criteria are the raw 1-10 quality judgments from the assessment model.
type Criteria struct {
	Clarity       int `json:"clarity"`
	Depth         int `json:"depth"`
	Novelty       int `json:"novelty"`
	Actionability int `json:"actionability"`
}

// QualityAssessmentPort judges content quality across four criteria.
type QualityAssessmentPort interface {
	Assess(ctx context.Context, text string) (*Criteria, error)
}
