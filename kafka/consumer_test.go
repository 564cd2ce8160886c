package kafka

import (
	"context"
	"errors"
	"testing"

	"insighthub/resilience"
)

type testMessage struct {
	ID string `json:"id"`
}

func TestTypedHandlerMarksInvalidPayloads(t *testing.T) {
	h := &TypedMessageHandler[testMessage]{
		Process:    func(ctx context.Context, msg *testMessage) error { return nil },
		AlwaysMark: true,
	}

	mark, err := h.HandleMessage(context.Background(), []byte("not json"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !mark {
		t.Error("malformed payload should be marked and skipped")
	}
}

func TestTypedHandlerSkipsFailedValidation(t *testing.T) {
	processed := false
	h := &TypedMessageHandler[testMessage]{
		Validate: func(msg *testMessage) bool { return msg.ID != "" },
		Process: func(ctx context.Context, msg *testMessage) error {
			processed = true
			return nil
		},
	}

	mark, err := h.HandleMessage(context.Background(), []byte(`{"id": ""}`))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if mark || processed {
		t.Errorf("invalid message must be neither processed nor marked: mark=%v processed=%v", mark, processed)
	}
}

func TestTypedHandlerLeavesRetryableFailuresUnmarked(t *testing.T) {
	h := &TypedMessageHandler[testMessage]{
		Process: func(ctx context.Context, msg *testMessage) error {
			return errors.New("connection refused")
		},
	}

	mark, err := h.HandleMessage(context.Background(), []byte(`{"id": "a"}`))
	if err == nil {
		t.Fatal("expected the processing error to surface")
	}
	if mark {
		t.Error("retryable failure must leave the offset unmarked for redelivery")
	}
}

func TestTypedHandlerDropsPermanentFailures(t *testing.T) {
	h := &TypedMessageHandler[testMessage]{
		Process: func(ctx context.Context, msg *testMessage) error {
			return resilience.Permanent(errors.New("unsupported payload"))
		},
	}

	mark, err := h.HandleMessage(context.Background(), []byte(`{"id": "a"}`))
	if err == nil {
		t.Fatal("expected the processing error to surface")
	}
	if !mark {
		t.Error("permanent failure must mark the offset so the message is not redelivered")
	}
}
