package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"insighthub/feedback"
	"insighthub/pipeline"
	"insighthub/ranking"
	"insighthub/vectorstore"
)

// Dependencies carries the shared components the controllers need.
type Dependencies struct {
	Runner   *pipeline.Runner
	Store    vectorstore.Store
	Ranker   *ranking.Engine
	Feedback *feedback.Processor

	// FeedbackProducer publishes feedback events to Kafka; nil means
	// feedback is processed by an inline worker.
	FeedbackProducer pipeline.Producer
	FeedbackTopic    string

	// Metrics is the registry backing /metrics.
	Metrics *prometheus.Registry
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterContentRoutes(r, deps)
	RegisterIngestRoutes(r, deps)
	RegisterFeedRoutes(r, deps)
	RegisterFeedbackRoutes(r, deps)
	RegisterHealthRoutes(r)

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	return r
}

// RegisterHealthRoutes registers the liveness endpoint.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
