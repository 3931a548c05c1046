package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/attune-oss/attune/internal/embedder"
	attuneErrors "github.com/attune-oss/attune/internal/errors"
	"github.com/attune-oss/attune/internal/telemetry"
)

// Manager ties the classifier, embedder, and store into the capture and
// retrieval pipelines.
type Manager struct {
	store      Store
	embedder   embedder.Embedder
	classifier *Classifier
	logger     *telemetry.Logger
	metrics    *telemetry.Metrics

	limiter              *rate.Limiter
	persistentCategories []Category
	topK                 int
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	PersistentCategories []Category
	TopK                 int
	CaptureRate          float64 // capture runs per second, 0 = unlimited
}

// NewManager creates a memory manager.
func NewManager(store Store, emb embedder.Embedder, classifier *Classifier, logger *telemetry.Logger, metrics *telemetry.Metrics, cfg ManagerConfig) *Manager {
	if len(cfg.PersistentCategories) == 0 {
		cfg.PersistentCategories = []Category{CategoryIdentity, CategoryBoundaries, CategoryCommunication}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.CaptureRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.CaptureRate), 1)
	}

	return &Manager{
		store:                store,
		embedder:             emb,
		classifier:           classifier,
		logger:               logger,
		metrics:              metrics,
		limiter:              limiter,
		persistentCategories: cfg.PersistentCategories,
		topK:                 cfg.TopK,
	}
}

// Capture runs the write pipeline for one user message: trigger detection,
// fact extraction, embedding, and storage. A "none" trigger halts silently.
// Designed to run detached from the turn; the caller never joins it.
func (m *Manager) Capture(ctx context.Context, userID, message string) error {
	if strings.TrimSpace(message) == "" {
		return nil
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	trigger, err := m.classifier.DetectTrigger(ctx, message)
	if err != nil {
		return err
	}
	if !trigger.ShouldRemember || trigger.TriggerType == TriggerNone {
		m.logger.Debug("memory capture skipped", "user_id", userID, "trigger", string(trigger.TriggerType))
		return nil
	}

	fact, err := m.classifier.ExtractFact(ctx, message)
	if err != nil {
		return err
	}

	embedding, err := m.embedder.Embed(ctx, fact.Fact)
	if err != nil {
		return err
	}
	m.metrics.IncEmbedRequests()

	rec := &Record{
		ID:        uuid.New().String(),
		UserID:    userID,
		Category:  fact.Category,
		Fact:      fact.Fact,
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Add(ctx, rec); err != nil {
		return err
	}

	m.metrics.IncMemoryWrites()
	m.logger.Info("memory captured",
		"user_id", userID,
		"memory_id", rec.ID,
		"category", string(rec.Category),
		"trigger", string(trigger.TriggerType))
	return nil
}

// CaptureDetached runs Capture in a goroutine. Failures are logged and
// swallowed; memory capture must never affect the turn that spawned it.
func (m *Manager) CaptureDetached(userID, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := m.Capture(ctx, userID, message); err != nil {
			m.logger.Warn("memory capture failed", "user_id", userID, "error", err)
		}
	}()
}

// PersistentPatch returns the always-on prompt patch: every fact in the
// allow-listed categories, newline-joined in stable (created_at, id) order.
// No records means an empty patch, never an error.
func (m *Manager) PersistentPatch(ctx context.Context, userID string) (string, error) {
	recs, err := m.store.List(ctx, userID, m.persistentCategories)
	if err != nil {
		return "", err
	}

	facts := make([]string, 0, len(recs))
	for _, rec := range recs {
		facts = append(facts, rec.Fact)
	}
	return strings.Join(facts, "\n"), nil
}

// OnDemandPatch runs the retrieval gate against the user's message and, when
// the gate approves, returns the top-k nearest facts, nearest first. A "no"
// from the gate or a classifier failure yields an empty patch.
func (m *Manager) OnDemandPatch(ctx context.Context, userID, message string) (string, error) {
	lookup, err := m.classifier.PlanLookup(ctx, message)
	if err != nil {
		// A broken gate degrades to no recall rather than failing the turn.
		m.logger.Warn("memory lookup gate failed", "user_id", userID, "error", err)
		return "", nil
	}
	if !lookup.Lookup {
		return "", nil
	}

	results, err := m.Search(ctx, userID, lookup.Query, m.topK)
	if err != nil {
		return "", err
	}

	facts := make([]string, 0, len(results))
	for _, res := range results {
		facts = append(facts, res.Record.Fact)
	}
	return strings.Join(facts, "\n"), nil
}

// Search embeds the query and returns the nearest records.
func (m *Manager) Search(ctx context.Context, userID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = m.topK
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	m.metrics.IncEmbedRequests()
	m.metrics.IncMemoryLookups()

	return m.store.Search(ctx, userID, embedding, limit)
}

// Remember writes a manually supplied fact, bypassing the classifier.
func (m *Manager) Remember(ctx context.Context, userID string, category Category, fact string) (*Record, error) {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return nil, attuneErrors.New(attuneErrors.CodeInvalidInput, "fact must not be empty")
	}
	if !ValidCategory(string(category)) {
		return nil, attuneErrors.New(attuneErrors.CodeInvalidInput, "unknown memory category: "+string(category))
	}

	embedding, err := m.embedder.Embed(ctx, fact)
	if err != nil {
		return nil, err
	}
	m.metrics.IncEmbedRequests()

	rec := &Record{
		ID:        uuid.New().String(),
		UserID:    userID,
		Category:  category,
		Fact:      fact,
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Add(ctx, rec); err != nil {
		return nil, err
	}

	m.metrics.IncMemoryWrites()
	return rec, nil
}

// List returns a user's records, optionally filtered by category.
func (m *Manager) List(ctx context.Context, userID string, categories []Category) ([]*Record, error) {
	return m.store.List(ctx, userID, categories)
}

// Forget deletes a record owned by the user.
func (m *Manager) Forget(ctx context.Context, userID, id string) error {
	return m.store.Delete(ctx, userID, id)
}
