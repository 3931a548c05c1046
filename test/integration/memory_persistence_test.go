//go:build integration

package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/attune-oss/attune/internal/memory"
	"github.com/attune-oss/attune/internal/testutil"
)

func TestMemoryPersistenceAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "memory.db")
	ctx := context.Background()
	emb := testutil.NewMockEmbedder(8)

	// --- Run 1: capture facts, close ---
	store1, err := memory.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}

	facts := []struct {
		category memory.Category
		fact     string
	}{
		{memory.CategoryIdentity, "The user is named Sam."},
		{memory.CategoryPreference, "The user only drinks iced lattes."},
		{memory.CategoryBoundaries, "The user does not want to discuss work after 6pm."},
	}
	for i, f := range facts {
		vec, err := emb.Embed(ctx, f.fact)
		if err != nil {
			t.Fatal(err)
		}
		rec := &memory.Record{
			ID:        fmt.Sprintf("rec-%d", i+1),
			UserID:    "u1",
			Category:  f.category,
			Fact:      f.fact,
			Embedding: vec,
			CreatedAt: time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		}
		if err := store1.Add(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	store1.Close()

	// --- Run 2: a fresh instance sees everything ---
	store2, err := memory.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store2.Close()

	recs, err := store2.List(ctx, "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 persisted records, got %d", len(recs))
	}
	if len(recs[0].Embedding) != 8 {
		t.Errorf("embedding not persisted, got %d dims", len(recs[0].Embedding))
	}

	// Similarity search works across the reopen.
	query, err := emb.Embed(ctx, "The user only drinks iced lattes.")
	if err != nil {
		t.Fatal(err)
	}
	results, err := store2.Search(ctx, "u1", query, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Record.Category != memory.CategoryPreference {
		t.Fatalf("expected the latte preference as nearest neighbor, got %v", results)
	}

	// The persistent allow-list filter also survives.
	allowed, err := store2.List(ctx, "u1", []memory.Category{memory.CategoryIdentity, memory.CategoryBoundaries})
	if err != nil {
		t.Fatal(err)
	}
	if len(allowed) != 2 {
		t.Errorf("expected 2 allow-listed records, got %d", len(allowed))
	}
}
