package config

import "time"

// Pipeline Constants
const (
	// MaxConcurrentItems limits the number of pipeline instances in flight
	MaxConcurrentItems = 8

	// SubmissionQueueSize is the depth of the pending-item queue; Submit
	// blocks once the queue is full
	SubmissionQueueSize = 256

	// MaxStageRetries is the inter-stage retry ceiling; an item that fails
	// the same stage more often is finalized as failed
	MaxStageRetries = 3

	// MaxSummaryInput is the largest text (in runes) handed to the
	// summarization port in one call; longer input is truncated first
	MaxSummaryInput = 24000

	// MaxSummaryLength is the requested summary length in characters
	MaxSummaryLength = 1200
)

// Embedding Constants
const (
	// EmbeddingDimensions is the fixed vector length for content and
	// interest vectors
	EmbeddingDimensions = 1024

	// EmbeddingModel is the default Cohere embedding model
	EmbeddingModel = "embed-english-v3.0"

	// ChatModel is the default Cohere chat model for summarization and
	// quality assessment
	ChatModel = "command-r-08-2024"
)

// Retry & Circuit Breaker Constants
const (
	// MaxAttempts bounds intra-stage retries inside the executor
	MaxAttempts = 3

	// BaseDelay is the first backoff delay
	BaseDelay = 1 * time.Second

	// MaxDelay caps the backoff growth
	MaxDelay = 60 * time.Second

	// BackoffMultiplier scales the delay between attempts
	BackoffMultiplier = 2.0

	// RateLimitFactor stretches backoff for rate-limited errors
	RateLimitFactor = 4.0

	// PerAttemptTimeout bounds a single external call
	PerAttemptTimeout = 60 * time.Second

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// an operation's circuit
	BreakerFailureThreshold = 5

	// BreakerCooldown is how long an open circuit rejects calls before
	// probing again
	BreakerCooldown = 60 * time.Second
)

// Ranking Constants
const (
	// FreshnessHalfLifeHours halves the freshness signal per period
	FreshnessHalfLifeHours = 24.0

	// DefaultFeedLimit is the feed size when the caller does not ask for one
	DefaultFeedLimit = 20

	// MaxFeedCandidates bounds similarity-query candidate retrieval
	MaxFeedCandidates = 200
)

// Ingestion Constants
const (
	// DefaultFeedIngestLimit is how many feed entries one ingest call
	// submits when the caller does not ask for a count
	DefaultFeedIngestLimit = 25
)

// Ranking weights for the combined relevance score
const (
	WeightSemantic    = 0.5
	WeightFreshness   = 0.3
	WeightQuality     = 1.5
	WeightInteraction = 2.0
)

// Quality criteria weights for the Overall aggregate
const (
	QualityWeightClarity       = 0.25
	QualityWeightDepth         = 0.30
	QualityWeightNovelty       = 0.20
	QualityWeightActionability = 0.25
)

// Feedback Constants
const (
	// RecentPositiveWindow is how many recent positive content vectors feed
	// the reference direction for granular negative feedback
	RecentPositiveWindow = 20
)

// Kafka Topics
const (
	SubmissionTopic = "content.submissions"
	FeedbackTopic   = "feedback.events"
)
