package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
	"github.com/attune-oss/attune/internal/provider"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	defaultModel   = "claude-sonnet-4-20250514"
)

// Client implements the Anthropic provider
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Anthropic client
func NewClient(apiKey, model string) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if model == "" {
		model = defaultModel
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "anthropic"
}

// Complete sends a completion request to Claude
func (c *Client) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	if c.apiKey == "" {
		return nil, attuneErrors.New(attuneErrors.CodeAPIKeyMissing, "ANTHROPIC_API_KEY not set").
			WithSuggestion("Set the ANTHROPIC_API_KEY environment variable or add api_key to your attune.yaml provider config")
	}

	// Build API request
	apiReq := c.buildRequest(req)

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

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

// Stream sends a streaming completion request
func (c *Client) Stream(ctx context.Context, req *provider.CompletionRequest, handler provider.StreamHandler) error {
	if c.apiKey == "" {
		return attuneErrors.New(attuneErrors.CodeAPIKeyMissing, "ANTHROPIC_API_KEY not set").
			WithSuggestion("Set the ANTHROPIC_API_KEY environment variable or add api_key to your attune.yaml provider config")
	}

	// Build API request with streaming
	apiReq := c.buildRequest(req)
	apiReq["stream"] = true

	body, err := json.Marshal(apiReq)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	// Parse SSE stream
	return c.parseStream(resp.Body, handler)
}

// buildRequest converts our request to Anthropic API format
func (c *Client) buildRequest(req *provider.CompletionRequest) map[string]interface{} {
	model := req.Model
	if model == "" {
		model = c.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	apiReq := map[string]interface{}{
		"model":      model,
		"max_tokens": maxTokens,
	}

	if req.System != "" {
		apiReq["system"] = req.System
	}

	messages := make([]map[string]interface{}, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}
	apiReq["messages"] = messages

	if req.Temperature > 0 {
		apiReq["temperature"] = req.Temperature
	}

	if len(req.StopSeqs) > 0 {
		apiReq["stop_sequences"] = req.StopSeqs
	}

	return apiReq
}

// parseResponse parses the API response
func (c *Client) parseResponse(body []byte) (*provider.Response, error) {
	var apiResp struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content"`
		Model        string `json:"model"`
		StopReason   string `json:"stop_reason"`
		StopSequence string `json:"stop_sequence"`
		Usage        struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var textContent []string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			textContent = append(textContent, block.Text)
		}
	}

	return &provider.Response{
		Content:    strings.Join(textContent, "\n"),
		StopReason: apiResp.StopReason,
		Usage: provider.Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
		},
	}, nil
}

// parseStream parses an SSE stream, handling `data: ` prefixes per the SSE spec.
// Text deltas are forwarded to the handler as they arrive; a final Done event
// carries the stop reason and usage.
func (c *Client) parseStream(body io.Reader, handler provider.StreamHandler) error {
	scanner := newLineScanner(body)

	var stopReason string
	var usage provider.Usage

	for scanner.Scan() {
		line := scanner.Text()

		// SSE lines are prefixed with "data: " — strip the prefix.
		if len(line) < 6 || line[:6] != "data: " {
			continue // skip event:, id:, empty lines, etc.
		}
		jsonData := line[6:]

		if jsonData == "[DONE]" {
			break
		}

		var event struct {
			Type  string `json:"type"`
			Index int    `json:"index"`
			Delta struct {
				Type       string `json:"type"`
				Text       string `json:"text"`
				StopReason string `json:"stop_reason"`
			} `json:"delta"`
			Usage struct {
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}

		if err := json.Unmarshal([]byte(jsonData), &event); err != nil {
			continue // skip malformed lines
		}

		switch event.Type {
		case "message_start":
			// Extract input token usage from message_start if present.
			var msgStart struct {
				Message struct {
					Usage struct {
						InputTokens int `json:"input_tokens"`
					} `json:"usage"`
				} `json:"message"`
			}
			if err := json.Unmarshal([]byte(jsonData), &msgStart); err == nil {
				usage.InputTokens = msgStart.Message.Usage.InputTokens
			}

		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				handler(provider.StreamEvent{
					Type:    "text",
					Content: event.Delta.Text,
				})
			}

		case "message_delta":
			if event.Delta.StopReason != "" {
				stopReason = event.Delta.StopReason
			}
			if event.Usage.OutputTokens > 0 {
				usage.OutputTokens = event.Usage.OutputTokens
			}

		case "message_stop":
			handler(provider.StreamEvent{
				Type:       "done",
				Done:       true,
				StopReason: stopReason,
				Usage:      usage,
			})
			return nil
		}
	}

	// Stream ended without message_stop (e.g. connection dropped).
	// Emit done event with whatever we accumulated.
	handler(provider.StreamEvent{
		Type:       "done",
		Done:       true,
		StopReason: stopReason,
		Usage:      usage,
	})

	return nil
}

// lineScanner reads SSE lines without bufio.Scanner's token size limit.
type lineScanner struct {
	buf  []byte
	pos  int
	body io.Reader
	text string
	done bool
}

func newLineScanner(r io.Reader) *lineScanner {
	return &lineScanner{
		buf:  make([]byte, 0, 4096),
		body: r,
	}
}

func (s *lineScanner) Scan() bool {
	if s.done {
		return false
	}

	for {
		// Look for newline in existing buffer
		for i := s.pos; i < len(s.buf); i++ {
			if s.buf[i] == '\n' {
				line := string(s.buf[s.pos:i])
				s.pos = i + 1
				// Trim trailing \r if present
				if len(line) > 0 && line[len(line)-1] == '\r' {
					line = line[:len(line)-1]
				}
				s.text = line
				return true
			}
		}

		// Compact buffer
		if s.pos > 0 {
			copy(s.buf, s.buf[s.pos:])
			s.buf = s.buf[:len(s.buf)-s.pos]
			s.pos = 0
		}

		// Read more data
		tmp := make([]byte, 4096)
		n, err := s.body.Read(tmp)
		if n > 0 {
			s.buf = append(s.buf, tmp[:n]...)
		}
		if err != nil {
			s.done = true
			// Process remaining data
			if len(s.buf) > s.pos {
				s.text = string(s.buf[s.pos:])
				s.pos = len(s.buf)
				return true
			}
			return false
		}
	}
}

func (s *lineScanner) Text() string {
	return s.text
}
