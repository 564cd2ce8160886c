package ports

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereConfig holds settings shared by the Cohere-backed ports.
type CohereConfig struct {
	APIKey     string
	EmbedModel string
	ChatModel  string
	Dimensions int
}

// NewCohereClient builds the shared SDK client. HTTP/1.1 is forced to
// avoid HTTP/2 protocol errors against the Cohere edge.
func NewCohereClient(apiKey string) *cohereclient.Client {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	return cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
}

// CohereEmbedding implements EmbeddingPort using the Cohere Embed API (v2).
type CohereEmbedding struct {
	client     *cohereclient.Client
	model      string
	dimensions int
}

// NewCohereEmbedding creates the embedding port.
func NewCohereEmbedding(client *cohereclient.Client, cfg CohereConfig) *CohereEmbedding {
	model := cfg.EmbedModel
	if model == "" {
		model = "embed-english-v3.0"
	}
	return &CohereEmbedding{client: client, model: model, dimensions: cfg.Dimensions}
}

func (p *CohereEmbedding) Dimensions() int { return p.dimensions }

func (p *CohereEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          []string{text},
		Model:          p.model,
		InputType:      cohere.EmbedInputTypeSearchDocument,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != 1 {
		return nil, errors.New("embedding count mismatch")
	}

	vec := make([]float32, len(floats[0]))
	for i, v := range floats[0] {
		vec[i] = float32(v)
	}
	return vec, nil
}

// CohereSummarizer implements SummarizationPort using the Cohere Chat API.
type CohereSummarizer struct {
	client *cohereclient.Client
	model  string
}

// NewCohereSummarizer creates the summarization port.
func NewCohereSummarizer(client *cohereclient.Client, cfg CohereConfig) *CohereSummarizer {
	model := cfg.ChatModel
	if model == "" {
		model = "command-r-08-2024"
	}
	return &CohereSummarizer{client: client, model: model}
}

func (p *CohereSummarizer) Summarize(ctx context.Context, text string, maxLen int) (string, error) {
	prompt := summaryPrompt(text, maxLen)

	out, err := chat(ctx, p.client, p.model, prompt, 0.3)
	if err != nil {
		return "", fmt.Errorf("cohere summarize error: %w", err)
	}

	summary := strings.TrimSpace(out)
	if summary == "" {
		return "", errors.New("cohere summarize returned empty text")
	}
	if maxLen > 0 && len(summary) > maxLen {
		summary = summary[:maxLen]
	}
	return summary, nil
}

// summaryPrompt tiers the requested summary depth by input length.
func summaryPrompt(text string, maxLen int) string {
	var depth string
	switch length := len(text); {
	case length > 10000:
		depth = "Provide a comprehensive summary in 3-4 paragraphs."
	case length > 5000:
		depth = "Provide a detailed summary in 2-3 paragraphs."
	case length > 1000:
		depth = "Provide a concise summary in 1-2 paragraphs."
	default:
		depth = "Provide a brief summary in 1 paragraph."
	}

	return fmt.Sprintf(`Generate a concise, informative summary of the following content. Focus on key points, main ideas, and actionable insights. %s Keep the summary under %d characters. Output only the summary, no preamble.

Content to summarize:
%s

Summary:`, depth, maxLen, text)
}

// CohereQualityAssessor implements QualityAssessmentPort as an LLM judge
// with a strict JSON output contract.
type CohereQualityAssessor struct {
	client *cohereclient.Client
	model  string
}

// NewCohereQualityAssessor creates the quality-assessment port.
func NewCohereQualityAssessor(client *cohereclient.Client, cfg CohereConfig) *CohereQualityAssessor {
	model := cfg.ChatModel
	if model == "" {
		model = "command-r-08-2024"
	}
	return &CohereQualityAssessor{client: client, model: model}
}

const assessPromptTemplate = `You are a strict, objective content quality grader. Read the content below and rate it on four criteria, each an integer from 1 to 10 (10 = best):

1. clarity: is the content well structured and easy to follow?
2. depth: does it go beyond surface level into mechanisms and trade-offs?
3. novelty: does it offer information or perspectives not widely repeated?
4. actionability: can the reader apply something concrete from it?

OUTPUT FORMAT:
- Output exactly one JSON object: {"clarity": X, "depth": X, "novelty": X, "actionability": X}
- Each X must be an integer 1-10
- Do not output anything else: no explanations, no markdown fences, no preamble

Content:
%s`

func (p *CohereQualityAssessor) Assess(ctx context.Context, text string) (*Criteria, error) {
	prompt := fmt.Sprintf(assessPromptTemplate, text)

	out, err := chat(ctx, p.client, p.model, prompt, 0.0)
	if err != nil {
		return nil, fmt.Errorf("cohere assess error: %w", err)
	}

	criteria, err := ParseCriteria(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quality judgment: %w", err)
	}
	return criteria, nil
}

// ParseCriteria extracts the criteria JSON from model output, tolerating
// surrounding prose or markdown fences.
func ParseCriteria(out string) (*Criteria, error) {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in output: %q", out)
	}

	var criteria Criteria
	if err := json.Unmarshal([]byte(out[start:end+1]), &criteria); err != nil {
		return nil, err
	}

	for _, score := range []int{criteria.Clarity, criteria.Depth, criteria.Novelty, criteria.Actionability} {
		if score < 1 || score > 10 {
			return nil, fmt.Errorf("criterion score %d out of range 1-10", score)
		}
	}
	return &criteria, nil
}

// chatRequest builds a single-user-message chat request.
func chatRequest(model, prompt string, temperature float64) *cohere.V2ChatRequest {
	return &cohere.V2ChatRequest{
		Model: model,
		Messages: cohere.ChatMessages{
			{
				Role: "user",
				User: &cohere.UserMessageV2{Content: &cohere.UserMessageV2Content{String: prompt}},
			},
		},
		Temperature: cohere.Float64(temperature),
	}
}

// chat sends a single user message and concatenates the text content of
// the reply.
func chat(ctx context.Context, client *cohereclient.Client, model, prompt string, temperature float64) (string, error) {
	resp, err := client.V2.Chat(ctx, chatRequest(model, prompt, temperature))
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Message == nil {
		return "", errors.New("empty chat response")
	}

	var sb strings.Builder
	for _, item := range resp.Message.Content {
		if item != nil && item.Text != nil {
			sb.WriteString(item.Text.Text)
		}
	}
	return sb.String(), nil
}
