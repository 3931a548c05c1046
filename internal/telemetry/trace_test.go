package telemetry

import (
	"context"
	"testing"
)

func TestTraceContext_New(t *testing.T) {
	tc := NewTraceContext("conv-123")

	if tc.ConversationID != "conv-123" {
		t.Errorf("expected ConversationID 'conv-123', got %q", tc.ConversationID)
	}
	if tc.TurnID == "" {
		t.Error("expected non-empty TurnID")
	}

	other := NewTraceContext("conv-123")
	if other.TurnID == tc.TurnID {
		t.Error("expected distinct TurnIDs for distinct turns")
	}
}

func TestTraceContext_WithUserAgent(t *testing.T) {
	tc := NewTraceContext("conv-1")
	withUser := tc.WithUser("user-7")
	withAgent := withUser.WithAgent("luna")

	if withUser.UserID != "user-7" {
		t.Errorf("expected user 'user-7', got %q", withUser.UserID)
	}
	if withAgent.AgentName != "luna" {
		t.Errorf("expected agent 'luna', got %q", withAgent.AgentName)
	}
	// Original unchanged
	if tc.UserID != "" {
		t.Error("original should not be modified")
	}
}

func TestTraceContext_ContextPropagation(t *testing.T) {
	tc := NewTraceContext("conv-2")
	ctx := ContextWithTrace(context.Background(), tc)

	extracted := TraceFromContext(ctx)
	if extracted == nil {
		t.Fatal("expected trace in context")
	}
	if extracted.ConversationID != "conv-2" {
		t.Errorf("expected ConversationID 'conv-2', got %q", extracted.ConversationID)
	}

	// nil context returns nil
	if TraceFromContext(context.Background()) != nil {
		t.Error("expected nil trace from empty context")
	}
}

func TestTraceContext_Fields(t *testing.T) {
	tc := NewTraceContext("conv-3").WithUser("u1").WithAgent("sol")

	fields := tc.Fields()
	if fields["conversation"] != "conv-3" {
		t.Error("expected conversation in fields")
	}
	if fields["user"] != "u1" {
		t.Error("expected user in fields")
	}
	if fields["agent"] != "sol" {
		t.Error("expected agent in fields")
	}
}

func TestLogger_WithTrace(t *testing.T) {
	logger := NewLogger(true)
	tc := NewTraceContext("conv-4")
	ctx := ContextWithTrace(context.Background(), tc)

	traced := logger.WithTrace(ctx)
	if traced == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic with nil trace
	noTrace := logger.WithTrace(context.Background())
	if noTrace == nil {
		t.Fatal("expected non-nil logger even without trace")
	}
}
