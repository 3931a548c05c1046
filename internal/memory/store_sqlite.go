package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
)

// SQLiteStore persists memory records durably. Embeddings are stored as JSON;
// similarity ranking happens in Go so ordering and tie-breaks stay exact.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the memory database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		fact TEXT NOT NULL,
		embedding JSON NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id, category);
	CREATE INDEX IF NOT EXISTS idx_memories_user_created ON memories(user_id, created_at, id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Add(ctx context.Context, rec *Record) error {
	embedding, err := json.Marshal(rec.Embedding)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to marshal embedding", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, user_id, category, fact, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, string(rec.Category), rec.Fact, embedding, rec.CreatedAt)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to add memory", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, userID string, categories []Category) ([]*Record, error) {
	query := `
		SELECT id, user_id, category, fact, embedding, created_at
		FROM memories WHERE user_id = ?`
	args := []interface{}{userID}

	if len(categories) > 0 {
		placeholders := make([]string, len(categories))
		for i, c := range categories {
			placeholders[i] = "?"
			args = append(args, string(c))
		}
		query += fmt.Sprintf(" AND category IN (%s)", strings.Join(placeholders, ", "))
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to list memories", err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) Search(ctx context.Context, userID string, embedding []float32, limit int) ([]SearchResult, error) {
	recs, err := s.List(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(recs))
	for _, rec := range recs {
		results = append(results, SearchResult{
			Record:   rec,
			Distance: cosineDistance(embedding, rec.Embedding),
		})
	}

	// Nearest first; equal distances fall back to record ID.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to delete memory", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attuneErrors.New(attuneErrors.CodeNotFound, fmt.Sprintf("memory not found: %s", id))
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var rec Record
	var category string
	var embedding []byte
	if err := rows.Scan(&rec.ID, &rec.UserID, &category, &rec.Fact, &embedding, &rec.CreatedAt); err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to scan memory", err)
	}
	rec.Category = Category(category)
	if err := json.Unmarshal(embedding, &rec.Embedding); err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to unmarshal embedding", err)
	}
	return &rec, nil
}
