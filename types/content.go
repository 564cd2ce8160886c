package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// SourceType identifies where a content item came from
type SourceType string

const (
	SourceLinkPost SourceType = "link_post"
	SourceVideo    SourceType = "video"
)

// Status tracks a content item through the processing pipeline.
// Transitions only move forward, except that any status may drop to
// StatusFailed.
type Status string

const (
	StatusPending     Status = "pending"
	StatusFetching    Status = "fetching"
	StatusSummarizing Status = "summarizing"
	StatusEmbedding   Status = "embedding"
	StatusScoring     Status = "scoring"
	StatusStored      Status = "stored"
	StatusFailed      Status = "failed"
)

// ErrDimensionMismatch is returned when an embedding provider produces a
// vector whose length differs from the configured dimensionality. It is
// always treated as a permanent failure.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// QualityScores holds the four LLM-judged criteria on their raw 1-10 scale
// plus the combined Overall value normalized to [0,1].
type QualityScores struct {
	Clarity       int     `json:"clarity"`
	Depth         int     `json:"depth"`
	Novelty       int     `json:"novelty"`
	Actionability int     `json:"actionability"`
	Overall       float64 `json:"overall"`
}

// ContentState is the record threaded through the pipeline. Only the stage
// currently owning the item mutates it (single-writer rule).
type ContentState struct {
	ID         string     `json:"id"`
	SourceType SourceType `json:"source_type"`
	SourceURL  string     `json:"source_url"`
	Title      string     `json:"title,omitempty"`

	// RawText holds the extracted article text for link posts and the
	// transcript for videos.
	RawText   string         `json:"raw_text,omitempty"`
	Summary   string         `json:"summary,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
	Quality   *QualityScores `json:"quality,omitempty"`

	PublishedAt time.Time `json:"published_at,omitempty"`

	Status       Status `json:"status"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count"`
	ShouldRetry  bool   `json:"should_retry"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ProcessedAt time.Time `json:"processed_at,omitempty"`
}

// NewContentState creates a pending item for the given source URL.
func NewContentState(url string, sourceType SourceType) *ContentState {
	now := time.Now().UTC()
	return &ContentState{
		ID:         GenerateID(url),
		SourceType: sourceType,
		SourceURL:  url,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch updates the modification timestamp.
func (c *ContentState) Touch() {
	c.UpdatedAt = time.Now().UTC()
}

// Failed reports whether the item reached the terminal failure status.
func (c *ContentState) Failed() bool {
	return c.Status == StatusFailed
}

// GenerateID creates a stable content ID from a URL
func GenerateID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}
