package memory

import (
	"context"
	"strings"
	"testing"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
	"github.com/attune-oss/attune/internal/telemetry"
	"github.com/attune-oss/attune/internal/testutil"
)

func testManager(t *testing.T, routes map[string]string) (*Manager, *testutil.MockEmbedder) {
	t.Helper()

	emb := testutil.NewMockEmbedder(8)
	classifier := NewClassifier(&testutil.ScriptedProvider{Routes: routes}, "mock-model")

	m := NewManager(NewChromemStore(), emb, classifier, testutil.TestLogger(), telemetry.NewMetrics(), ManagerConfig{})
	return m, emb
}

func TestCapture_WritesRecord(t *testing.T) {
	m, _ := testManager(t, map[string]string{
		"Memory Trigger Detector": `{"should_remember": true, "trigger_type": "explicit"}`,
		"Memory Extractor":        `{"category": "preference", "fact": "The user only drinks iced lattes with no sugar."}`,
	})

	ctx := context.Background()
	if err := m.Capture(ctx, "u1", "I only drink iced lattes, no sugar."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recs, err := m.List(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Category != CategoryPreference {
		t.Errorf("unexpected category: %s", recs[0].Category)
	}
	if recs[0].Fact != "The user only drinks iced lattes with no sugar." {
		t.Errorf("unexpected fact: %s", recs[0].Fact)
	}
	if len(recs[0].Embedding) != 8 {
		t.Errorf("expected embedding stored, got %d dims", len(recs[0].Embedding))
	}
}

func TestCapture_NoneTriggerWritesNothing(t *testing.T) {
	m, emb := testManager(t, map[string]string{
		"Memory Trigger Detector": `{"should_remember": false, "trigger_type": "none"}`,
	})

	ctx := context.Background()

	// Evaluating the same message repeatedly stays a no-op: no records, no
	// embeddings, no partial writes.
	for i := 0; i < 3; i++ {
		if err := m.Capture(ctx, "u1", "just had lunch, it was okay"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	recs, err := m.List(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no records, got %d", len(recs))
	}
	if emb.EmbedCount() != 0 {
		t.Errorf("expected no embeddings for skipped capture, got %d", emb.EmbedCount())
	}
}

func TestCapture_BlankMessageIgnored(t *testing.T) {
	m, _ := testManager(t, nil)

	if err := m.Capture(context.Background(), "u1", "   \n  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCapture_ClassifierErrorPropagates(t *testing.T) {
	m, _ := testManager(t, map[string]string{
		"Memory Trigger Detector": `this is not json`,
	})

	err := m.Capture(context.Background(), "u1", "remember me")
	if err == nil {
		t.Fatal("expected error")
	}
	if attuneErrors.AsCode(err) != attuneErrors.CodeClassifyError {
		t.Errorf("expected CLASSIFY_ERROR, got %v", err)
	}

	recs, _ := m.List(context.Background(), "u1", nil)
	if len(recs) != 0 {
		t.Errorf("failed capture must not write records, got %d", len(recs))
	}
}

func TestPersistentPatch(t *testing.T) {
	m, _ := testManager(t, nil)
	ctx := context.Background()

	seed := []struct {
		category Category
		fact     string
	}{
		{CategoryIdentity, "The user is called Alex."},
		{CategoryBoundaries, "The user does not want to discuss work."},
		{CategoryCommunication, "The user prefers short replies."},
		{CategoryPreference, "The user likes iced lattes."}, // not in allow-list
	}
	for _, sd := range seed {
		if _, err := m.Remember(ctx, "u1", sd.category, sd.fact); err != nil {
			t.Fatalf("remember failed: %v", err)
		}
	}

	patch, err := m.PersistentPatch(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(patch, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 allow-listed facts, got %d: %q", len(lines), patch)
	}
	if strings.Contains(patch, "iced lattes") {
		t.Error("preference category must not appear in the persistent patch")
	}
	// Insertion order is creation order here, so the patch is stable.
	if lines[0] != "The user is called Alex." {
		t.Errorf("unexpected first line: %q", lines[0])
	}
}

func TestPersistentPatch_EmptyIsNotAnError(t *testing.T) {
	m, _ := testManager(t, nil)

	patch, err := m.PersistentPatch(context.Background(), "new-user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch != "" {
		t.Errorf("expected empty patch, got %q", patch)
	}
}

func TestOnDemandPatch_GateDeclines(t *testing.T) {
	m, emb := testManager(t, map[string]string{
		"Memory Lookup Gate": `{"lookup": false, "query": ""}`,
	})

	patch, err := m.OnDemandPatch(context.Background(), "u1", "hello!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch != "" {
		t.Errorf("expected empty patch, got %q", patch)
	}
	if emb.EmbedCount() != 0 {
		t.Error("gate declined; nothing should be embedded")
	}
}

func TestOnDemandPatch_GateFailureDegradesToEmpty(t *testing.T) {
	m, _ := testManager(t, map[string]string{
		"Memory Lookup Gate": `not json at all`,
	})

	patch, err := m.OnDemandPatch(context.Background(), "u1", "like last time")
	if err != nil {
		t.Fatalf("gate failure must not fail the turn: %v", err)
	}
	if patch != "" {
		t.Errorf("expected empty patch, got %q", patch)
	}
}

func TestOnDemandPatch_ReturnsNearestFacts(t *testing.T) {
	m, emb := testManager(t, map[string]string{
		"Memory Lookup Gate": `{"lookup": true, "query": "coffee order"}`,
	})
	ctx := context.Background()

	// Pin vectors so similarity is under test control.
	emb.Vectors = map[string][]float32{
		"coffee order": {1, 0, 0, 0, 0, 0, 0, 0},
		"The user only drinks iced lattes with no sugar.": {1, 0, 0, 0, 0, 0, 0, 0},
		"The user plans to run a marathon.":               {0, 1, 0, 0, 0, 0, 0, 0},
	}

	if _, err := m.Remember(ctx, "u1", CategoryPreference, "The user only drinks iced lattes with no sugar."); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Remember(ctx, "u1", CategoryAspirations, "The user plans to run a marathon."); err != nil {
		t.Fatal(err)
	}

	patch, err := m.OnDemandPatch(ctx, "u1", "order me my usual coffee")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(patch, "\n")
	if lines[0] != "The user only drinks iced lattes with no sugar." {
		t.Errorf("nearest fact should come first, got %q", lines[0])
	}
}

func TestRemember_Validation(t *testing.T) {
	m, _ := testManager(t, nil)
	ctx := context.Background()

	if _, err := m.Remember(ctx, "u1", CategoryIdentity, "   "); err == nil {
		t.Error("expected error for empty fact")
	}
	if _, err := m.Remember(ctx, "u1", Category("secrets"), "The user has a secret."); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestForget(t *testing.T) {
	m, _ := testManager(t, nil)
	ctx := context.Background()

	rec, err := m.Remember(ctx, "u1", CategoryOther, "The user mentioned a thing.")
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Forget(ctx, "u1", rec.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Forget(ctx, "u1", rec.ID); !attuneErrors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

// The end-to-end shape: a preference captured in one conversation surfaces
// through retrieval in a later one.
func TestCaptureThenRetrieve(t *testing.T) {
	m, emb := testManager(t, map[string]string{
		"Memory Trigger Detector": `{"should_remember": true, "trigger_type": "explicit"}`,
		"Memory Extractor":        `{"category": "preference", "fact": "The user only drinks iced lattes with no sugar."}`,
		"Memory Lookup Gate":      `{"lookup": true, "query": "coffee preference"}`,
	})
	ctx := context.Background()

	emb.Vectors = map[string][]float32{
		"coffee preference": {1, 0, 0, 0, 0, 0, 0, 0},
		"The user only drinks iced lattes with no sugar.": {0.9, 0.1, 0, 0, 0, 0, 0, 0},
	}

	if err := m.Capture(ctx, "u1", "I only drink iced lattes, no sugar."); err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	patch, err := m.OnDemandPatch(ctx, "u1", "could you order me a coffee?")
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if !strings.Contains(patch, "iced lattes") {
		t.Errorf("expected captured preference in patch, got %q", patch)
	}
}
