package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAttuneError_Error(t *testing.T) {
	err := New(CodeConfigInvalid, "missing store path")
	expected := "[CONFIG_INVALID] missing store path"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestAttuneError_Wrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap(CodeProviderError, "API call failed", inner)

	if err.Error() != "[PROVIDER_ERROR] API call failed: connection refused" {
		t.Errorf("unexpected error string: %s", err.Error())
	}

	// Unwrap should return inner
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find inner error")
	}
}

func TestAttuneError_WithSuggestion(t *testing.T) {
	err := New(CodeAPIKeyMissing, "ANTHROPIC_API_KEY not set").
		WithSuggestion("Set the ANTHROPIC_API_KEY environment variable or add api_key to attune.yaml")

	if err.Suggestion != "Set the ANTHROPIC_API_KEY environment variable or add api_key to attune.yaml" {
		t.Errorf("unexpected suggestion: %s", err.Suggestion)
	}
}

func TestAttuneError_ErrorsAs(t *testing.T) {
	err := Wrap(CodeStoreError, "insert failed", fmt.Errorf("database is locked"))

	var attuneErr *AttuneError
	if !errors.As(err, &attuneErr) {
		t.Fatal("errors.As should work")
	}
	if attuneErr.Code != CodeStoreError {
		t.Errorf("expected code %q, got %q", CodeStoreError, attuneErr.Code)
	}
}

func TestAsCode(t *testing.T) {
	err := New(CodeNotFound, "conversation not found")
	if AsCode(err) != CodeNotFound {
		t.Errorf("expected code %q, got %q", CodeNotFound, AsCode(err))
	}

	// Non-AttuneError
	plain := fmt.Errorf("plain error")
	if AsCode(plain) != "" {
		t.Error("expected empty code for non-AttuneError")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(New(CodeNotFound, "agent not found")) {
		t.Error("expected IsNotFound=true for NOT_FOUND code")
	}
	if IsNotFound(New(CodeProviderError, "boom")) {
		t.Error("expected IsNotFound=false for other codes")
	}
	if IsNotFound(fmt.Errorf("plain")) {
		t.Error("expected IsNotFound=false for plain errors")
	}
}

func TestSuggestion(t *testing.T) {
	err := New(CodeEmbedderError, "embedding failed").WithSuggestion("check embedder config")
	if Suggestion(err) != "check embedder config" {
		t.Errorf("expected 'check embedder config', got %q", Suggestion(err))
	}

	// Non-AttuneError
	if Suggestion(fmt.Errorf("plain")) != "" {
		t.Error("expected empty suggestion for non-AttuneError")
	}
}

func TestAttuneError_WrappedAs(t *testing.T) {
	inner := New(CodeProviderError, "API error")
	wrapped := fmt.Errorf("turn failed: %w", inner)

	var attuneErr *AttuneError
	if !errors.As(wrapped, &attuneErr) {
		t.Fatal("errors.As should unwrap through fmt.Errorf")
	}
	if attuneErr.Code != CodeProviderError {
		t.Errorf("expected code %q, got %q", CodeProviderError, attuneErr.Code)
	}
}
