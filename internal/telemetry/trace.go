package telemetry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type traceKey struct{}

// TraceContext carries correlation IDs through a chat turn.
type TraceContext struct {
	TurnID         string `json:"turn_id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id,omitempty"`
	AgentName      string `json:"agent_name,omitempty"`
}

// NewTraceContext creates a trace context with a fresh TurnID.
func NewTraceContext(conversationID string) *TraceContext {
	return &TraceContext{
		TurnID:         randomID(),
		ConversationID: conversationID,
	}
}

// WithUser returns a copy with the UserID set.
func (tc *TraceContext) WithUser(id string) *TraceContext {
	child := *tc
	child.UserID = id
	return &child
}

// WithAgent returns a copy with the AgentName set.
func (tc *TraceContext) WithAgent(name string) *TraceContext {
	child := *tc
	child.AgentName = name
	return &child
}

// Fields returns key-value pairs suitable for structured logging.
func (tc *TraceContext) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"turn_id":      tc.TurnID,
		"conversation": tc.ConversationID,
	}
	if tc.UserID != "" {
		fields["user"] = tc.UserID
	}
	if tc.AgentName != "" {
		fields["agent"] = tc.AgentName
	}
	return fields
}

// ContextWithTrace stores a TraceContext in the context.
func ContextWithTrace(ctx context.Context, tc *TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, tc)
}

// TraceFromContext extracts a TraceContext from the context, or nil.
func TraceFromContext(ctx context.Context) *TraceContext {
	tc, _ := ctx.Value(traceKey{}).(*TraceContext)
	return tc
}

// WithTrace returns a logger enriched with trace fields from the context.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	tc := TraceFromContext(ctx)
	if tc == nil {
		return l
	}
	return l.WithFields(tc.Fields())
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
