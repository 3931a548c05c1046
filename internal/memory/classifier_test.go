package memory

import (
	"context"
	"testing"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
	"github.com/attune-oss/attune/internal/testutil"
)

func scriptedClassifier(routes map[string]string) *Classifier {
	return NewClassifier(&testutil.ScriptedProvider{Routes: routes}, "mock-model")
}

func TestDetectTrigger(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		wantRemember bool
		wantTrigger  Trigger
		wantErr      bool
	}{
		{
			name:         "explicit trigger",
			response:     `{"should_remember": true, "trigger_type": "explicit"}`,
			wantRemember: true,
			wantTrigger:  TriggerExplicit,
		},
		{
			name:         "none",
			response:     `{"should_remember": false, "trigger_type": "none"}`,
			wantRemember: false,
			wantTrigger:  TriggerNone,
		},
		{
			name:         "capitalized None is accepted",
			response:     `{"should_remember": false, "trigger_type": "None"}`,
			wantRemember: false,
			wantTrigger:  TriggerNone,
		},
		{
			name:         "fenced output still parses",
			response:     "```json\n{\"should_remember\": true, \"trigger_type\": \"aspirations\"}\n```",
			wantRemember: true,
			wantTrigger:  TriggerAspirations,
		},
		{
			name:     "unknown trigger rejected",
			response: `{"should_remember": true, "trigger_type": "vibes"}`,
			wantErr:  true,
		},
		{
			name:     "non-JSON rejected",
			response: `I think we should remember this.`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := scriptedClassifier(map[string]string{"Memory Trigger Detector": tt.response})

			result, err := c.DetectTrigger(context.Background(), "some message")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if attuneErrors.AsCode(err) != attuneErrors.CodeClassifyError {
					t.Errorf("expected CLASSIFY_ERROR, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ShouldRemember != tt.wantRemember {
				t.Errorf("should_remember = %v, want %v", result.ShouldRemember, tt.wantRemember)
			}
			if result.TriggerType != tt.wantTrigger {
				t.Errorf("trigger = %q, want %q", result.TriggerType, tt.wantTrigger)
			}
		})
	}
}

func TestExtractFact(t *testing.T) {
	c := scriptedClassifier(map[string]string{
		"Memory Extractor": `{"category": "preference", "fact": "The user only drinks iced lattes with no sugar."}`,
	})

	result, err := c.ExtractFact(context.Background(), "I only drink iced lattes, no sugar.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != CategoryPreference {
		t.Errorf("unexpected category: %s", result.Category)
	}
	if result.Fact != "The user only drinks iced lattes with no sugar." {
		t.Errorf("unexpected fact: %s", result.Fact)
	}
}

func TestExtractFact_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"unknown category", `{"category": "secrets", "fact": "The user has a secret."}`},
		{"empty fact", `{"category": "identity", "fact": "   "}`},
		{"garbage", `oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := scriptedClassifier(map[string]string{"Memory Extractor": tt.response})
			if _, err := c.ExtractFact(context.Background(), "msg"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPlanLookup(t *testing.T) {
	c := scriptedClassifier(map[string]string{
		"Memory Lookup Gate": `{"lookup": true, "query": "user coffee preferences"}`,
	})

	result, err := c.PlanLookup(context.Background(), "can you order me a coffee?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Lookup || result.Query != "user coffee preferences" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestPlanLookup_NoLookup(t *testing.T) {
	c := scriptedClassifier(map[string]string{
		"Memory Lookup Gate": `{"lookup": false, "query": ""}`,
	})

	result, err := c.PlanLookup(context.Background(), "hello!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Lookup {
		t.Error("expected lookup=false")
	}
}

func TestPlanLookup_MissingQuery(t *testing.T) {
	c := scriptedClassifier(map[string]string{
		"Memory Lookup Gate": `{"lookup": true, "query": "  "}`,
	})

	if _, err := c.PlanLookup(context.Background(), "like last time"); err == nil {
		t.Fatal("expected error for lookup without query")
	}
}

func TestClassifier_ProviderFailure(t *testing.T) {
	c := NewClassifier(&testutil.MockProvider{ShouldFail: true}, "mock-model")

	_, err := c.DetectTrigger(context.Background(), "msg")
	if err == nil {
		t.Fatal("expected error")
	}
	if attuneErrors.AsCode(err) != attuneErrors.CodeClassifyError {
		t.Errorf("expected CLASSIFY_ERROR, got %v", err)
	}
}

func TestClassifier_SendsUserMessage(t *testing.T) {
	sp := &testutil.ScriptedProvider{Routes: map[string]string{
		"Memory Trigger Detector": `{"should_remember": false, "trigger_type": "none"}`,
	}}
	c := NewClassifier(sp, "mock-model")

	if _, err := c.DetectTrigger(context.Background(), "remember my birthday"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sp.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(sp.Calls))
	}
	req := sp.Calls[0]
	if len(req.Messages) != 1 || req.Messages[0].Content != "remember my birthday" {
		t.Errorf("unexpected request messages: %+v", req.Messages)
	}
}
