package embedder

import (
	"context"
	"fmt"
	"testing"
)

// countingEmbedder records how many times Embed is invoked.
type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Name() string    { return "counting" }
func (e *countingEmbedder) Dimensions() int { return 4 }

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if text == "fail" {
		return nil, fmt.Errorf("request failed: boom")
	}
	return []float32{float32(len(text)), 0, 0, 1}, nil
}

func TestCachingEmbedder_HitsAndMisses(t *testing.T) {
	inner := &countingEmbedder{}
	ce, err := NewCachingEmbedder(inner, 8)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	v1, err := ce.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := ce.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	if len(v1) != 4 || v1[0] != v2[0] {
		t.Errorf("cached vector differs: %v vs %v", v1, v2)
	}

	if _, err := ce.Embed(ctx, "other"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
	if ce.Len() != 2 {
		t.Errorf("expected 2 cached entries, got %d", ce.Len())
	}
}

func TestCachingEmbedder_ErrorsNotCached(t *testing.T) {
	inner := &countingEmbedder{}
	ce, err := NewCachingEmbedder(inner, 8)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	if _, err := ce.Embed(ctx, "fail"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ce.Embed(ctx, "fail"); err == nil {
		t.Fatal("expected error on second call too")
	}
	if inner.calls != 2 {
		t.Errorf("errors must not be cached; expected 2 calls, got %d", inner.calls)
	}
}

func TestCachingEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{}
	ce, err := NewCachingEmbedder(inner, 2)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		if _, err := ce.Embed(ctx, text); err != nil {
			t.Fatal(err)
		}
	}

	if ce.Len() != 2 {
		t.Errorf("expected LRU to cap at 2 entries, got %d", ce.Len())
	}

	// "a" was evicted; embedding it again hits the inner embedder.
	before := inner.calls
	if _, err := ce.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != before+1 {
		t.Error("expected evicted entry to be recomputed")
	}
}
