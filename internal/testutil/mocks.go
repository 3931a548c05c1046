package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/attune-oss/attune/internal/config"
	"github.com/attune-oss/attune/internal/provider"
	"github.com/attune-oss/attune/internal/telemetry"
)

// MockProvider implements provider.Provider for testing.
type MockProvider struct {
	mu         sync.Mutex
	Responses  []*provider.Response // queued responses, consumed in order
	Calls      []*provider.CompletionRequest
	ShouldFail bool
	FailErr    error
	Delay      time.Duration

	// StreamFn, when set, replaces the default character-by-character stream.
	StreamFn func(ctx context.Context, req *provider.CompletionRequest, handler provider.StreamHandler) error

	idx int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if m.ShouldFail {
		if m.FailErr != nil {
			return nil, m.FailErr
		}
		return nil, fmt.Errorf("mock provider error")
	}

	if m.idx >= len(m.Responses) {
		return &provider.Response{
			Content:    "default mock response",
			StopReason: "end_turn",
		}, nil
	}

	resp := m.Responses[m.idx]
	m.idx++
	return resp, nil
}

func (m *MockProvider) Stream(ctx context.Context, req *provider.CompletionRequest, handler provider.StreamHandler) error {
	if m.StreamFn != nil {
		m.mu.Lock()
		m.Calls = append(m.Calls, req)
		m.mu.Unlock()
		return m.StreamFn(ctx, req, handler)
	}

	resp, err := m.Complete(ctx, req)
	if err != nil {
		return err
	}

	// Stream text chunks character-by-character for realistic simulation,
	// then emit a terminal done event with full metadata.
	for _, ch := range resp.Content {
		handler(provider.StreamEvent{Type: "text", Content: string(ch)})
	}

	handler(provider.StreamEvent{
		Type:       "done",
		Done:       true,
		StopReason: resp.StopReason,
		Usage:      resp.Usage,
	})
	return nil
}

// CallCount returns the number of provider calls made (thread-safe).
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil.
func (m *MockProvider) LastCall() *provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return m.Calls[len(m.Calls)-1]
}

// ScriptedProvider routes classifier prompts to canned JSON by matching a
// substring of the system prompt, falling back to an inner provider. Useful
// for memory pipeline tests where each role needs a different answer.
type ScriptedProvider struct {
	Routes   map[string]string // system prompt substring -> response content
	Fallback provider.Provider
	mu       sync.Mutex
	Calls    []*provider.CompletionRequest
}

func (s *ScriptedProvider) Name() string { return "scripted" }

func (s *ScriptedProvider) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, req)
	s.mu.Unlock()

	for substr, content := range s.Routes {
		if substr != "" && strings.Contains(req.System, substr) {
			return &provider.Response{Content: content, StopReason: "end_turn"}, nil
		}
	}
	if s.Fallback != nil {
		return s.Fallback.Complete(ctx, req)
	}
	return nil, fmt.Errorf("scripted provider: no route matched system prompt")
}

func (s *ScriptedProvider) Stream(ctx context.Context, req *provider.CompletionRequest, handler provider.StreamHandler) error {
	resp, err := s.Complete(ctx, req)
	if err != nil {
		return err
	}
	for _, ch := range resp.Content {
		handler(provider.StreamEvent{Type: "text", Content: string(ch)})
	}
	handler(provider.StreamEvent{Type: "done", Done: true, StopReason: resp.StopReason})
	return nil
}

// MockEmbedder generates deterministic embeddings from a text hash, so equal
// inputs always land on the same vector. Fixed vectors can be pinned per text
// for similarity-ordering tests.
type MockEmbedder struct {
	Dims    int
	Vectors map[string][]float32 // optional pinned vectors
	Fail    bool

	mu    sync.Mutex
	calls int
}

// NewMockEmbedder creates a mock embedder with the given dimensions.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &MockEmbedder{Dims: dims}
}

func (m *MockEmbedder) Name() string    { return "mock" }
func (m *MockEmbedder) Dimensions() int { return m.Dims }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Fail {
		return nil, fmt.Errorf("mock embedder error")
	}

	if vec, ok := m.Vectors[text]; ok {
		return vec, nil
	}

	// Hash the text, then expand with an LCG into a unit vector.
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, m.Dims)
	for i := 0; i < m.Dims; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(embedding), nil
}

// EmbedCount returns the number of Embed calls made (thread-safe).
func (m *MockEmbedder) EmbedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}

// TestLogger returns a logger suitable for tests (verbose, no file output).
func TestLogger() *telemetry.Logger {
	return telemetry.NewLogger(true)
}

// TestConfig returns a minimal config for testing.
func TestConfig() *config.Config {
	return &config.Config{
		Name:    "test-attune",
		Version: "1.0",
		Server: config.ServerConfig{
			Host:      "127.0.0.1",
			Port:      0,
			Heartbeat: "15s",
		},
		Provider: config.ProviderConfig{
			Name:  "mock",
			Model: "mock-model",
		},
		Embedder: config.EmbedderConfig{
			Provider:   "mock",
			Dimensions: 384,
		},
		Memory: config.MemoryConfig{
			Driver:               "chromem",
			TopK:                 3,
			PersistentCategories: []string{"identity", "boundaries", "communication"},
			CaptureWindow:        6,
		},
		Store: config.StoreConfig{
			Driver: "sqlite",
			Path:   ":memory:",
		},
		Defaults: config.DefaultsConfig{
			Timeout:    "5s",
			MaxRetries: 1,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
	}
}
