package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"insighthub/types"
	"insighthub/vectorstore"
)

// RegisterContentRoutes registers content submission and lookup endpoints.
func RegisterContentRoutes(r *gin.Engine, deps Dependencies) {
	g := r.Group("/api/v1/content")
	g.POST("", handleSubmitContent(deps))
	g.GET("/:id", handleGetContent(deps))
}

// SubmitContentRequest represents a content submission
type SubmitContentRequest struct {
	URL        string `json:"url" binding:"required"`
	SourceType string `json:"source_type"`
}

// SubmitContentResponse acknowledges an accepted submission
type SubmitContentResponse struct {
	ContentID string `json:"content_id"`
	Status    string `json:"status"`
}

// handleSubmitContent accepts a URL and returns its content ID immediately;
// processing is asynchronous.
func handleSubmitContent(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sourceType := types.SourceType(req.SourceType)
		if sourceType == "" {
			sourceType = types.SourceLinkPost
		}
		if sourceType != types.SourceLinkPost && sourceType != types.SourceVideo {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source_type: " + req.SourceType})
			return
		}

		id, err := deps.Runner.Submit(c.Request.Context(), req.URL, sourceType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit content: " + err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, SubmitContentResponse{
			ContentID: id,
			Status:    string(types.StatusPending),
		})
	}
}

// handleGetContent returns the current processing state of one item,
// including error_type for failed items.
func handleGetContent(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		state, err := deps.Store.GetContent(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, vectorstore.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load content: " + err.Error()})
			return
		}

		c.JSON(http.StatusOK, state)
	}
}
