package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "text-embedding-3-small"
	defaultDimensions = 1536
)

// OpenAIClient implements Embedder against the OpenAI embeddings API
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewOpenAIClient creates a new OpenAI embeddings client
func NewOpenAIClient(apiKey, model string, dimensions int) *OpenAIClient {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if model == "" {
		model = defaultModel
	}
	if dimensions == 0 {
		dimensions = defaultDimensions
	}

	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the embedder name
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Dimensions returns the embedding vector size
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}

// Embed requests an embedding for the given text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.apiKey == "" {
		return nil, attuneErrors.New(attuneErrors.CodeAPIKeyMissing, "OPENAI_API_KEY not set").
			WithSuggestion("Set the OPENAI_API_KEY environment variable or add api_key to your attune.yaml embedder config")
	}

	apiReq := map[string]interface{}{
		"model": c.model,
		"input": text,
	}
	// text-embedding-3-* models accept a dimensions override; older models reject it.
	if c.dimensions != defaultDimensions {
		apiReq["dimensions"] = c.dimensions
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return c.parseResponse(respBody)
}

func (c *OpenAIClient) parseResponse(body []byte) ([]float32, error) {
	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
		Usage struct {
			PromptTokens int `json:"prompt_tokens"`
			TotalTokens  int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(apiResp.Data) == 0 {
		return nil, attuneErrors.New(attuneErrors.CodeEmbedderError, "embeddings response contained no vectors")
	}

	vec := apiResp.Data[0].Embedding
	if len(vec) == 0 {
		return nil, attuneErrors.New(attuneErrors.CodeEmbedderError, "embeddings response contained an empty vector")
	}

	return vec, nil
}
