package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
)

// ChromemStore keeps memories in chromem-go, an embedded in-memory vector
// database. Each user gets their own collection for namespace isolation.
// Record metadata is mirrored in a plain map because chromem has no list or
// get-by-id surface.
type ChromemStore struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	records     map[string]map[string]*Record // userID -> recordID -> record
	mu          sync.RWMutex
}

// NewChromemStore creates an empty in-memory store.
func NewChromemStore() *ChromemStore {
	return &ChromemStore{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		records:     make(map[string]map[string]*Record),
	}
}

func (s *ChromemStore) getOrCreateCollection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[userID]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[userID]; exists {
		return col, nil
	}

	name := fmt.Sprintf("user_%s", userID)
	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to create collection", err)
	}

	s.collections[userID] = col
	return col, nil
}

func (s *ChromemStore) Add(ctx context.Context, rec *Record) error {
	col, err := s.getOrCreateCollection(rec.UserID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Fact,
		Embedding: rec.Embedding,
		Metadata: map[string]string{
			"category":   string(rec.Category),
			"user_id":    rec.UserID,
			"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to add document", err)
	}

	s.mu.Lock()
	if s.records[rec.UserID] == nil {
		s.records[rec.UserID] = make(map[string]*Record)
	}
	copied := *rec
	s.records[rec.UserID][rec.ID] = &copied
	s.mu.Unlock()

	return nil
}

func (s *ChromemStore) List(ctx context.Context, userID string, categories []Category) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*Record
	for _, rec := range s.records[userID] {
		if len(categories) > 0 && !containsCategory(categories, rec.Category) {
			continue
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

func (s *ChromemStore) Search(ctx context.Context, userID string, embedding []float32, limit int) ([]SearchResult, error) {
	col, err := s.getOrCreateCollection(userID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 3
	}

	// chromem requires nResults <= collection size; shrink until it accepts.
	var results []chromem.Result
	for n := limit; n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, embedding, n, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return nil, nil // collection is empty
			}
			continue
		}
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "chromem query failed", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SearchResult, 0, len(results))
	for _, result := range results {
		rec, ok := s.records[userID][result.ID]
		if !ok {
			continue
		}
		out = append(out, SearchResult{
			Record:   rec,
			Distance: 1 - float64(result.Similarity),
		})
	}

	// chromem orders by similarity but leaves ties unspecified; re-sort with
	// the ID tie-break so results are deterministic.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Record.ID < out[j].Record.ID
	})
	return out, nil
}

func (s *ChromemStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[userID][id]; !ok {
		return attuneErrors.New(attuneErrors.CodeNotFound, fmt.Sprintf("memory not found: %s", id))
	}

	if col, exists := s.collections[userID]; exists {
		if err := col.Delete(context.Background(), nil, nil, id); err != nil {
			return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to delete document", err)
		}
	}
	delete(s.records[userID], id)
	return nil
}

func (s *ChromemStore) Close() error {
	// chromem keeps everything in memory, nothing to close
	return nil
}

func containsCategory(categories []Category, c Category) bool {
	for _, cat := range categories {
		if cat == c {
			return true
		}
	}
	return false
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
