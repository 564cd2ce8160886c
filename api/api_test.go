package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"insighthub/feedback"
	"insighthub/pipeline"
	"insighthub/ranking"
	"insighthub/resilience"
	"insighthub/types"
	"insighthub/vectorstore"
)

func newTestRouter(t *testing.T) (*gin.Engine, *vectorstore.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := vectorstore.NewMemoryStore(2)
	executor := resilience.NewExecutor(resilience.ExecutorConfig{})
	pipe := pipeline.New(pipeline.Ports{}, store, executor, nil)
	runner := pipeline.NewRunner(pipe, nil, "")

	deps := Dependencies{
		Runner:   runner,
		Store:    store,
		Ranker:   ranking.NewEngine(ranking.DefaultWeights()),
		Feedback: feedback.NewProcessor(store, feedback.DefaultWeights()),
	}
	return NewRouter(deps), store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitContentAccepted(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/content", gin.H{"url": "https://example.com/a"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", w.Code, w.Body.String())
	}

	var resp SubmitContentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ContentID == "" {
		t.Error("expected a content_id")
	}
	if resp.Status != string(types.StatusPending) {
		t.Errorf("status = %q, want pending", resp.Status)
	}
}

func TestSubmitContentValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doJSON(t, r, http.MethodPost, "/api/v1/content", gin.H{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing url: status = %d, want 400", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/content", gin.H{
		"url": "https://example.com/a", "source_type": "podcast",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown source_type: status = %d, want 400", w.Code)
	}
}

func TestIngestFeedValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doJSON(t, r, http.MethodPost, "/api/v1/feeds/ingest", gin.H{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing feed_url: status = %d, want 400", w.Code)
	}
}

func TestGetContent(t *testing.T) {
	r, store := newTestRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/api/v1/content/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", w.Code)
	}

	state := types.NewContentState("https://example.com/a", types.SourceLinkPost)
	state.Status = types.StatusFailed
	state.ErrorType = "permanent"
	if err := store.PutState(t.Context(), state); err != nil {
		t.Fatalf("PutState: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/content/"+state.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got types.ContentState
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != types.StatusFailed || got.ErrorType != "permanent" {
		t.Errorf("failed items must expose their error_type: %+v", got)
	}
}

func TestGetFeed(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := t.Context()

	if w := doJSON(t, r, http.MethodGet, "/api/v1/feed", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing user_id: status = %d, want 400", w.Code)
	}

	near := types.NewContentState("https://example.com/near", types.SourceLinkPost)
	near.Status = types.StatusStored
	near.Title = "Near Piece"
	near.Embedding = []float32{1, 0}
	near.PublishedAt = time.Now().UTC()
	if err := store.PutAtomic(ctx, near, near.Embedding); err != nil {
		t.Fatal(err)
	}

	far := types.NewContentState("https://example.com/far", types.SourceLinkPost)
	far.Status = types.StatusStored
	far.Embedding = []float32{0, 1}
	far.PublishedAt = time.Now().UTC()
	if err := store.PutAtomic(ctx, far, far.Embedding); err != nil {
		t.Fatal(err)
	}

	if err := store.PutUserVector(ctx, "u1", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/feed?user_id=u1&limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	var resp FeedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || len(resp.Items) != 1 {
		t.Fatalf("expected exactly one item, got %+v", resp)
	}
	if resp.Items[0].ContentID != near.ID {
		t.Errorf("best item = %s, want %s", resp.Items[0].ContentID, near.ID)
	}
	if resp.Items[0].Title != "Near Piece" {
		t.Errorf("title = %q, want the stored title", resp.Items[0].Title)
	}
}

func TestGetFeedRejectsBadLimit(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/api/v1/feed?user_id=u1&limit=zero", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", w.Code)
	}
}

func TestSubmitFeedback(t *testing.T) {
	r, store := newTestRouter(t)

	state := types.NewContentState("https://example.com/a", types.SourceLinkPost)
	state.Status = types.StatusStored
	if err := store.PutAtomic(t.Context(), state, []float32{1, 0}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/feedback", gin.H{
		"user_id": "u1", "content_id": state.ID, "kind": "like",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", w.Code, w.Body.String())
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doJSON(t, r, http.MethodPost, "/api/v1/feedback", gin.H{"user_id": "u1", "content_id": "c1"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing kind: status = %d, want 400", w.Code)
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/feedback", gin.H{
		"user_id": "u1", "content_id": "c1", "kind": "meh",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind: status = %d, want 400", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
