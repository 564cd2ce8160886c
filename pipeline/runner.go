package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"

	"insighthub/config"
	"insighthub/kafka"
	"insighthub/types"
)

// SubmissionMessage is the wire shape of one submission on the Kafka topic.
type SubmissionMessage struct {
	ContentID  string `json:"content_id"`
	URL        string `json:"url"`
	SourceType string `json:"source_type"`
}

// Producer publishes submissions to a topic. Satisfied by kafka.Producer.
type Producer interface {
	Publish(topic, key string, payload any) error
}

// Runner accepts submissions and processes them concurrently. A weighted
// semaphore bounds items in flight; the submission queue buffers bursts.
// When a producer is configured, submissions travel through Kafka and come
// back via the consumer group; otherwise they go straight onto the local
// queue.
type Runner struct {
	pipeline *Pipeline
	producer Producer
	topic    string

	sem   *semaphore.Weighted
	queue chan *types.ContentState
	wg    sync.WaitGroup
}

// NewRunner creates a runner over the pipeline. producer may be nil for
// inline processing.
func NewRunner(p *Pipeline, producer Producer, topic string) *Runner {
	return &Runner{
		pipeline: p,
		producer: producer,
		topic:    topic,
		sem:      semaphore.NewWeighted(config.MaxConcurrentItems),
		queue:    make(chan *types.ContentState, config.SubmissionQueueSize),
	}
}

// Submit registers a URL for processing and returns its content ID
// immediately; all fetching and inference happens asynchronously.
func (r *Runner) Submit(ctx context.Context, url string, sourceType types.SourceType) (string, error) {
	if url == "" {
		return "", fmt.Errorf("url is required")
	}

	state := types.NewContentState(url, sourceType)

	if r.producer != nil {
		err := r.producer.Publish(r.topic, state.ID, SubmissionMessage{
			ContentID:  state.ID,
			URL:        url,
			SourceType: string(sourceType),
		})
		if err == nil {
			return state.ID, nil
		}
		log.Printf("Warning: Kafka publish failed, processing inline: %v", err)
	}

	select {
	case r.queue <- state:
		return state.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Enqueue places an already-built state onto the local queue. Used by the
// Kafka submission consumer.
func (r *Runner) Enqueue(ctx context.Context, state *types.ContentState) error {
	select {
	case r.queue <- state:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the dispatch loop. It returns immediately; processing
// stops when ctx is cancelled and Wait returns once in-flight items drain.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case state := <-r.queue:
				if err := r.sem.Acquire(ctx, 1); err != nil {
					return
				}
				r.wg.Add(1)
				go func() {
					defer r.wg.Done()
					defer r.sem.Release(1)
					if err := r.pipeline.Process(ctx, state); err != nil {
						log.Printf("Pipeline finished %s with error: %v", state.ID, err)
					}
				}()
			}
		}
	}()
	log.Printf("✅ Pipeline runner started (max %d in flight)", config.MaxConcurrentItems)
}

// Wait blocks until the dispatch loop and all workers have exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// NewSubmissionConsumer wires a Kafka consumer group that feeds the
// submission topic back into the runner's queue.
func NewSubmissionConsumer(brokers []string, topic, groupID string, runner *Runner) (*kafka.Consumer, error) {
	handler := &kafka.TypedMessageHandler[SubmissionMessage]{
		Validate: func(msg *SubmissionMessage) bool {
			if msg.URL == "" {
				log.Printf("Skipping submission without URL (id=%q)", msg.ContentID)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *SubmissionMessage) error {
			state := types.NewContentState(msg.URL, types.SourceType(msg.SourceType))
			if msg.ContentID != "" {
				state.ID = msg.ContentID
			}
			return runner.Enqueue(ctx, state)
		},
		AlwaysMark: true,
	}

	return kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		Handler: handler,
	})
}
