package pipeline

import (
	"time"

	"insighthub/config"
	"insighthub/resilience"
	"insighthub/types"
)

// handleFailure records one stage failure on the state and decides whether
// the item gets another pass at the stage. Permanent errors and exhausted
// retry budgets stop the item; everything else requeues.
func handleFailure(state *types.ContentState, err error) {
	class := resilience.ClassOf(err)

	state.ErrorType = string(class)
	state.ErrorMessage = err.Error()
	state.RetryCount++
	state.ProcessedAt = time.Now().UTC()
	state.ShouldRetry = class.Retryable() && state.RetryCount < config.MaxStageRetries
	state.Touch()
}
