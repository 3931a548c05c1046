// Package attune provides a public API for embedding the attune companion
// engine in another Go program.
//
// Example usage:
//
//	import "github.com/attune-oss/attune/pkg/attune"
//
//	client, err := attune.Open(".")
//	defer client.Close()
//
//	reply, err := client.Chat(ctx, "user-1", conversationID, "hello", func(chunk string) {
//		fmt.Print(chunk)
//	})
package attune

import (
	"context"
	"fmt"

	"github.com/attune-oss/attune/internal/chat"
	"github.com/attune-oss/attune/internal/config"
	"github.com/attune-oss/attune/internal/embedder"
	"github.com/attune-oss/attune/internal/memory"
	"github.com/attune-oss/attune/internal/provider"
	"github.com/attune-oss/attune/internal/provider/anthropic"
	"github.com/attune-oss/attune/internal/store"
	"github.com/attune-oss/attune/internal/telemetry"
)

// StreamCallback receives text chunks as they arrive.
type StreamCallback func(chunk string)

// Client is an embedded attune instance: one store, one memory manager, and
// one turn orchestrator wired from an attune.yaml project directory.
type Client struct {
	store    *store.Store
	memStore memory.Store
	memory   *memory.Manager
	orch     *chat.Orchestrator
}

// Open loads configuration from dir and wires a client against the real
// Anthropic and OpenAI backends.
func Open(dir string) (*Client, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := telemetry.New(cfg.Logging.Level, cfg.Logging.Format)
	metrics := telemetry.NewMetrics()

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	p := provider.NewRetryProvider(
		anthropic.NewClient(cfg.Provider.APIKey, cfg.Provider.Model),
		provider.DefaultRetryConfig())

	emb, err := embedder.NewCachingEmbedder(
		embedder.NewOpenAIClient(cfg.Embedder.APIKey, cfg.Embedder.Model, cfg.Embedder.Dimensions),
		cfg.Embedder.CacheSize)
	if err != nil {
		st.Close()
		return nil, err
	}

	memStore, err := memory.NewSQLiteStore(cfg.Memory.Path)
	if err != nil {
		st.Close()
		return nil, err
	}

	categories := make([]memory.Category, 0, len(cfg.Memory.PersistentCategories))
	for _, c := range cfg.Memory.PersistentCategories {
		categories = append(categories, memory.Category(c))
	}

	mem := memory.NewManager(memStore, emb, memory.NewClassifier(p, cfg.Provider.Model),
		logger, metrics, memory.ManagerConfig{
			PersistentCategories: categories,
			TopK:                 cfg.Memory.TopK,
			CaptureRate:          cfg.Memory.CaptureRate,
		})

	heartbeat, err := cfg.Server.ParsedHeartbeat()
	if err != nil {
		memStore.Close()
		st.Close()
		return nil, err
	}

	orch := chat.NewOrchestrator(st, p, mem, logger, metrics, chat.Options{
		Model:         cfg.Provider.Model,
		MaxTokens:     cfg.Provider.MaxTokens,
		Temperature:   cfg.Provider.Temperature,
		Heartbeat:     heartbeat,
		CaptureWindow: cfg.Memory.CaptureWindow,
	})

	return &Client{store: st, memStore: memStore, memory: mem, orch: orch}, nil
}

// Close releases the client's database handles.
func (c *Client) Close() error {
	c.memStore.Close()
	return c.store.Close()
}

// Store exposes the underlying conversation store for CRUD operations.
func (c *Client) Store() *store.Store {
	return c.store
}

// NewConversation starts a thread between a user and an agent.
func (c *Client) NewConversation(userID, agentID string) (*store.Conversation, error) {
	conv := &store.Conversation{UserID: userID, AgentID: agentID}
	if err := c.store.CreateConversation(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Chat runs one streaming turn and returns the full reply. callback may be
// nil when only the final text matters.
func (c *Client) Chat(ctx context.Context, userID, conversationID, content string, callback StreamCallback) (string, error) {
	turn, err := c.orch.Prepare(userID, conversationID, content)
	if err != nil {
		return "", err
	}

	tr := &callbackTransport{callback: callback}
	turn.Attach(tr)
	if err := turn.Run(ctx); err != nil {
		return tr.text, err
	}
	return tr.text, nil
}

// Remember writes a fact to the user's memory, bypassing the classifier.
func (c *Client) Remember(ctx context.Context, userID string, category memory.Category, fact string) (*memory.Record, error) {
	return c.memory.Remember(ctx, userID, category, fact)
}

// Memories lists a user's stored facts, optionally filtered by category.
func (c *Client) Memories(ctx context.Context, userID string, categories ...memory.Category) ([]*memory.Record, error) {
	return c.memory.List(ctx, userID, categories)
}

// SearchMemories runs a semantic query over the user's facts.
func (c *Client) SearchMemories(ctx context.Context, userID, query string, limit int) ([]memory.SearchResult, error) {
	return c.memory.Search(ctx, userID, query, limit)
}

// callbackTransport adapts a StreamCallback to the turn transport. Terminal
// events are surfaced through Run's return value instead.
type callbackTransport struct {
	callback StreamCallback
	text     string
}

func (t *callbackTransport) SendChunk(chunk string) error {
	t.text += chunk
	if t.callback != nil {
		t.callback(chunk)
	}
	return nil
}

func (t *callbackTransport) SendHeartbeat() error          { return nil }
func (t *callbackTransport) SendDone(chat.DoneEvent) error { return nil }
func (t *callbackTransport) SendError(string) error        { return nil }
