package feedback

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"insighthub/kafka"
	"insighthub/types"
	"insighthub/vectorstore"
)

// FeedbackMessage is the wire shape of one interaction on the feedback topic.
type FeedbackMessage struct {
	UserID    string `json:"user_id"`
	ContentID string `json:"content_id"`
	Kind      string `json:"kind"`
}

// NewConsumer wires a Kafka consumer group that feeds events into the
// processor. Events referencing content without a stored vector are
// skipped permanently; transient store failures leave the offset unmarked
// for redelivery.
func NewConsumer(brokers []string, topic, groupID string, processor *Processor) (*kafka.Consumer, error) {
	handler := &kafka.TypedMessageHandler[FeedbackMessage]{
		Validate: func(msg *FeedbackMessage) bool {
			if msg.UserID == "" || msg.ContentID == "" || !types.FeedbackKind(msg.Kind).Valid() {
				log.Printf("Skipping invalid feedback message: user=%q content=%q kind=%q",
					msg.UserID, msg.ContentID, msg.Kind)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *FeedbackMessage) error {
			event := types.InteractionEvent{
				ID:        uuid.NewString(),
				UserID:    msg.UserID,
				ContentID: msg.ContentID,
				Kind:      types.FeedbackKind(msg.Kind),
				CreatedAt: time.Now().UTC(),
			}

			err := processor.Process(ctx, event)
			if errors.Is(err, vectorstore.ErrMissingVector) {
				log.Printf("Dropping feedback on content %s: %v", msg.ContentID, err)
				return nil
			}
			return err
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
