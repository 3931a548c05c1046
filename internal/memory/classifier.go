package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
	"github.com/attune-oss/attune/internal/provider"
)

// Classifier runs the memory LLM roles: trigger detection, fact extraction,
// and the retrieval lookup gate. All three parse strictly; output that is not
// valid JSON with in-enum values is a CLASSIFY_ERROR.
type Classifier struct {
	provider provider.Provider
	model    string
}

// NewClassifier creates a classifier backed by the given provider.
func NewClassifier(p provider.Provider, model string) *Classifier {
	return &Classifier{provider: p, model: model}
}

// TriggerResult is the trigger detector's verdict on a message.
type TriggerResult struct {
	ShouldRemember bool    `json:"should_remember"`
	TriggerType    Trigger `json:"trigger_type"`
}

// DetectTrigger decides whether a message warrants a memory write.
func (c *Classifier) DetectTrigger(ctx context.Context, message string) (*TriggerResult, error) {
	raw, err := c.complete(ctx, triggerDetectorPrompt, message)
	if err != nil {
		return nil, err
	}

	var result struct {
		ShouldRemember bool   `json:"should_remember"`
		TriggerType    string `json:"trigger_type"`
	}
	if err := parseJSON(raw, &result); err != nil {
		return nil, err
	}

	// The original prompt capitalizes "None" in one spot; accept it.
	triggerType := result.TriggerType
	if strings.EqualFold(triggerType, string(TriggerNone)) {
		triggerType = string(TriggerNone)
	}
	if !ValidTrigger(triggerType) {
		return nil, attuneErrors.New(attuneErrors.CodeClassifyError,
			fmt.Sprintf("trigger detector returned unknown trigger: %q", result.TriggerType))
	}

	return &TriggerResult{
		ShouldRemember: result.ShouldRemember,
		TriggerType:    Trigger(triggerType),
	}, nil
}

// FactResult is the extractor's normalized fact and category.
type FactResult struct {
	Category Category `json:"category"`
	Fact     string   `json:"fact"`
}

// ExtractFact turns a message into a normalized third-person fact.
func (c *Classifier) ExtractFact(ctx context.Context, message string) (*FactResult, error) {
	raw, err := c.complete(ctx, factExtractorPrompt, message)
	if err != nil {
		return nil, err
	}

	var result struct {
		Category string `json:"category"`
		Fact     string `json:"fact"`
	}
	if err := parseJSON(raw, &result); err != nil {
		return nil, err
	}

	if !ValidCategory(result.Category) {
		return nil, attuneErrors.New(attuneErrors.CodeClassifyError,
			fmt.Sprintf("fact extractor returned unknown category: %q", result.Category))
	}
	if strings.TrimSpace(result.Fact) == "" {
		return nil, attuneErrors.New(attuneErrors.CodeClassifyError, "fact extractor returned an empty fact")
	}

	return &FactResult{
		Category: Category(result.Category),
		Fact:     strings.TrimSpace(result.Fact),
	}, nil
}

// LookupResult is the gate's decision on whether retrieval is worth a query.
type LookupResult struct {
	Lookup bool   `json:"lookup"`
	Query  string `json:"query"`
}

// PlanLookup decides whether the message needs stored memories to answer.
func (c *Classifier) PlanLookup(ctx context.Context, message string) (*LookupResult, error) {
	raw, err := c.complete(ctx, lookupGatePrompt, message)
	if err != nil {
		return nil, err
	}

	var result LookupResult
	if err := parseJSON(raw, &result); err != nil {
		return nil, err
	}

	if result.Lookup && strings.TrimSpace(result.Query) == "" {
		return nil, attuneErrors.New(attuneErrors.CodeClassifyError, "lookup gate requested retrieval without a query")
	}
	result.Query = strings.TrimSpace(result.Query)

	return &result, nil
}

func (c *Classifier) complete(ctx context.Context, system, message string) (string, error) {
	resp, err := c.provider.Complete(ctx, &provider.CompletionRequest{
		Model:  c.model,
		System: system,
		Messages: []provider.Message{
			{Role: "user", Content: message},
		},
		MaxTokens: 512,
	})
	if err != nil {
		return "", attuneErrors.Wrap(attuneErrors.CodeClassifyError, "classification request failed", err)
	}
	return resp.Content, nil
}

// parseJSON extracts the first JSON object from raw model output and decodes
// it. Models occasionally wrap output in code fences or prose despite the
// prompt; anything beyond that is rejected.
func parseJSON(raw string, v interface{}) error {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return attuneErrors.New(attuneErrors.CodeClassifyError,
			fmt.Sprintf("classifier output contained no JSON object: %q", truncate(raw, 120)))
	}

	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeClassifyError, "classifier output was not valid JSON", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
