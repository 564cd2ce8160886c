package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"insighthub/config"
	"insighthub/types"
	"insighthub/vectorstore"
)

// RegisterFeedRoutes registers the ranked-feed endpoint.
func RegisterFeedRoutes(r *gin.Engine, deps Dependencies) {
	r.GET("/api/v1/feed", handleGetFeed(deps))
}

// FeedItem is one ranked entry
type FeedItem struct {
	ContentID string  `json:"content_id"`
	Title     string  `json:"title,omitempty"`
	Score     float64 `json:"score"`
}

// FeedResponse represents the ranked feed for one user
type FeedResponse struct {
	UserID string     `json:"user_id"`
	Items  []FeedItem `json:"items"`
	Count  int        `json:"count"`
}

// handleGetFeed ranks stored content for a user. Failed items never
// appear; unknown users get a cold-start feed off a zero profile.
func handleGetFeed(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		limit := config.DefaultFeedLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}

		ctx := c.Request.Context()

		profile, err := deps.Store.GetUserVector(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load interest vector: " + err.Error()})
			return
		}

		candidates, err := deps.Store.QuerySimilar(ctx, profile, config.MaxFeedCandidates)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query candidates: " + err.Error()})
			return
		}

		states := make([]*types.ContentState, 0, len(candidates))
		for _, cand := range candidates {
			state, err := deps.Store.GetContent(ctx, cand.ContentID)
			if err != nil {
				if errors.Is(err, vectorstore.ErrNotFound) {
					continue
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load candidate: " + err.Error()})
				return
			}
			states = append(states, state)
		}

		events, err := deps.Store.EventsFor(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events: " + err.Error()})
			return
		}

		ranked := deps.Ranker.Rank(states, profile, events, time.Now().UTC(), limit)

		items := make([]FeedItem, 0, len(ranked))
		for _, item := range ranked {
			items = append(items, FeedItem{ContentID: item.ContentID, Title: item.Title, Score: item.Score})
		}

		c.JSON(http.StatusOK, FeedResponse{
			UserID: userID,
			Items:  items,
			Count:  len(items),
		})
	}
}
