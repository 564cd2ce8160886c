package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"insighthub/config"
	"insighthub/fetcher"
)

// RegisterIngestRoutes registers the feed ingestion endpoint.
func RegisterIngestRoutes(r *gin.Engine, deps Dependencies) {
	g := r.Group("/api/v1/feeds")
	g.POST("/ingest", handleIngestFeed(deps))
}

// IngestFeedRequest asks for an RSS/Atom feed to be walked and its
// entries submitted to the pipeline.
type IngestFeedRequest struct {
	FeedURL  string `json:"feed_url" binding:"required"`
	MaxCount int    `json:"max_count"`
}

// IngestFeedResponse lists the content IDs accepted from the feed.
type IngestFeedResponse struct {
	ContentIDs []string `json:"content_ids"`
	Count      int      `json:"count"`
}

func handleIngestFeed(deps Dependencies) gin.HandlerFunc {
	ingester := fetcher.NewFeedIngester(deps.Runner)

	return func(c *gin.Context) {
		var req IngestFeedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.MaxCount <= 0 {
			req.MaxCount = config.DefaultFeedIngestLimit
		}

		ids, err := ingester.Ingest(c.Request.Context(), req.FeedURL, req.MaxCount)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to ingest feed: " + err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, IngestFeedResponse{
			ContentIDs: ids,
			Count:      len(ids),
		})
	}
}
