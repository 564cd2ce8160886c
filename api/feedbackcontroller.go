package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"insighthub/feedback"
	"insighthub/types"
)

// RegisterFeedbackRoutes registers the feedback submission endpoint.
func RegisterFeedbackRoutes(r *gin.Engine, deps Dependencies) {
	r.POST("/api/v1/feedback", handleSubmitFeedback(deps))
}

// SubmitFeedbackRequest represents one interaction
type SubmitFeedbackRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ContentID string `json:"content_id" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
}

// handleSubmitFeedback accepts an interaction and applies it
// asynchronously, via Kafka when configured or an inline worker otherwise.
func handleSubmitFeedback(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitFeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		kind := types.FeedbackKind(req.Kind)
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown feedback kind: " + req.Kind})
			return
		}

		if deps.FeedbackProducer != nil {
			err := deps.FeedbackProducer.Publish(deps.FeedbackTopic, req.UserID, feedback.FeedbackMessage{
				UserID:    req.UserID,
				ContentID: req.ContentID,
				Kind:      req.Kind,
			})
			if err == nil {
				c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
				return
			}
			log.Printf("Warning: Kafka publish failed, applying feedback inline: %v", err)
		}

		event := types.InteractionEvent{
			ID:        uuid.NewString(),
			UserID:    req.UserID,
			ContentID: req.ContentID,
			Kind:      kind,
			CreatedAt: time.Now().UTC(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := deps.Feedback.Process(ctx, event); err != nil {
				log.Printf("Failed to apply feedback from %s on %s: %v", event.UserID, event.ContentID, err)
			}
		}()

		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
}
