package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
	"github.com/attune-oss/attune/internal/memory"
	"github.com/attune-oss/attune/internal/provider"
	"github.com/attune-oss/attune/internal/store"
	"github.com/attune-oss/attune/internal/telemetry"
)

// Options tunes orchestrator behavior. Zero values fall back to the
// defaults below.
type Options struct {
	Model         string        // fallback when the agent has no model bound
	MaxTokens     int           // per-turn completion cap
	Temperature   float64       // sampling temperature
	Heartbeat     time.Duration // keep-alive interval
	CaptureWindow int           // recent messages handed to memory capture
}

const (
	defaultHeartbeat     = 15 * time.Second
	defaultCaptureWindow = 6
	defaultMaxTokens     = 4096
)

// Orchestrator runs chat turns: it persists the user message, assembles the
// model context (transcript, persona, memory patches), streams the reply to
// a Transport, and guarantees the buffered output is persisted exactly once
// whether the turn completes, fails, or the client disconnects mid-stream.
type Orchestrator struct {
	store    *store.Store
	provider provider.Provider
	memory   *memory.Manager
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	opts     Options
}

// NewOrchestrator wires an orchestrator from its collaborators. All handles
// are injected so tests can substitute fakes.
func NewOrchestrator(st *store.Store, p provider.Provider, mem *memory.Manager, logger *telemetry.Logger, metrics *telemetry.Metrics, opts Options) *Orchestrator {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	if opts.CaptureWindow <= 0 {
		opts.CaptureWindow = defaultCaptureWindow
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &Orchestrator{
		store:    st,
		provider: p,
		memory:   mem,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}
}

// Turn is a validated request to run one chat turn. Prepare builds it before
// any stream bytes are written, so ownership failures can still surface as a
// plain HTTP error.
type Turn struct {
	orch    *Orchestrator
	conv    *store.Conversation
	agent   *store.Agent
	model   string
	userID  string
	content string

	tr      Transport
	session *session
}

// Prepare validates the request: the conversation must exist, be owned by
// the caller, and reference a live agent. Nothing is persisted here.
func (o *Orchestrator) Prepare(userID, conversationID, content string) (*Turn, error) {
	if strings.TrimSpace(content) == "" {
		return nil, attuneErrors.New(attuneErrors.CodeInvalidInput, "message content is empty")
	}

	conv, err := o.store.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		// Ownership failures are indistinguishable from absence.
		return nil, attuneErrors.New(attuneErrors.CodeNotFound,
			fmt.Sprintf("conversation not found: %s", conversationID))
	}

	agent, err := o.store.GetAgent(conv.AgentID)
	if err != nil {
		return nil, err
	}

	model := o.opts.Model
	if agent.ModelID != "" {
		m, err := o.store.GetModel(agent.ModelID)
		if err != nil {
			return nil, err
		}
		model = m.ModelName
	}

	return &Turn{
		orch:    o,
		conv:    conv,
		agent:   agent,
		model:   model,
		userID:  userID,
		content: content,
		session: newSession(),
	}, nil
}

// State reports the turn's lifecycle phase. Exposed for observability.
func (t *Turn) State() State {
	return t.session.State()
}

// Run executes the turn against an open transport. It returns the terminal
// error for logging; by the time it returns, the transport has received
// exactly one terminal event (unless the client already disconnected) and
// any buffered output has been persisted.
func (t *Turn) Run(ctx context.Context) error {
	o := t.orch
	s := t.session
	started := time.Now()

	o.metrics.IncTurnsStarted()
	o.logger.Info("turn started",
		"conversation_id", t.conv.ID,
		"agent", t.agent.Name,
		"user_id", t.userID)

	defer func() { o.metrics.RecordTurnDuration(time.Since(started)) }()

	// The user message lands before any model call. Failure here means the
	// turn never happened; no partial state exists yet.
	userMsg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: t.conv.ID,
		Role:           "user",
		Content:        t.content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.store.AppendMessage(userMsg); err != nil {
		o.metrics.IncTurnsFailed()
		s.setState(StateFailed)
		t.sendError(err)
		return err
	}

	history, err := o.store.ListMessages(t.conv.ID)
	if err != nil {
		o.metrics.IncTurnsFailed()
		s.setState(StateFailed)
		t.sendError(err)
		return err
	}

	// Capture runs detached over the recent window; its failures never
	// reach this turn.
	o.memory.CaptureDetached(t.userID, captureWindow(history, o.opts.CaptureWindow))

	system := o.buildSystemPrompt(ctx, t)

	if t.conv.Title == nil {
		go o.summarizeTitle(t.conv.ID, t.content)
	}

	s.setState(StateContextBuilt)

	go s.runHeartbeat(o.opts.Heartbeat, t.tr, o.logger)

	req := &provider.CompletionRequest{
		Model:       t.model,
		System:      system,
		Messages:    transcript(history),
		MaxTokens:   o.opts.MaxTokens,
		Temperature: o.opts.Temperature,
	}

	s.setState(StateStreaming)
	o.metrics.IncAPIRequests()

	// A client disconnect cancels ctx. The watcher persists whatever is
	// buffered at that instant; the stream below then unwinds on its own.
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			t.finalizeDisconnected()
		case <-s.stopHeartbeat:
		}
	}()

	streamErr := o.provider.Stream(ctx, req, func(ev provider.StreamEvent) {
		if ev.Content != "" {
			s.append(ev.Content, t.tr, o.logger)
		}
	})

	if streamErr != nil {
		if ctx.Err() != nil {
			// Disconnect unwound the stream; the watcher already finalized.
			t.finalizeDisconnected()
		} else {
			t.finalizeFailed(streamErr)
		}
		<-watcherDone
		return streamErr
	}

	t.finalizeCompleted()
	<-watcherDone
	return nil
}

// Attach binds the open transport to the turn. Must be called before Run.
func (t *Turn) Attach(tr Transport) {
	t.tr = tr
}

// buildSystemPrompt splices both memory patches into the agent persona.
// Patch failures degrade to an unaugmented persona; recall is best-effort.
func (o *Orchestrator) buildSystemPrompt(ctx context.Context, t *Turn) string {
	var b strings.Builder
	b.WriteString(t.agent.Persona)

	persistent, err := o.memory.PersistentPatch(ctx, t.userID)
	if err != nil {
		o.logger.Warn("persistent memory patch failed", "user_id", t.userID, "error", err)
	} else if persistent != "" {
		b.WriteString("\n\n## What you know about this user\n")
		b.WriteString(persistent)
	}

	onDemand, err := o.memory.OnDemandPatch(ctx, t.userID, t.content)
	if err != nil {
		o.logger.Warn("on-demand memory patch failed", "user_id", t.userID, "error", err)
	} else if onDemand != "" {
		b.WriteString("\n\n## Memories relevant to the current message\n")
		b.WriteString(onDemand)
	}

	return b.String()
}

func (t *Turn) finalizeCompleted() {
	t.session.finalize.Do(func() {
		t.session.setState(StateCompleted)
		t.session.stopHeartbeatAndWait()

		id := t.persistBuffer()
		t.orch.metrics.IncTurnsCompleted()

		if t.session.canForward() {
			if err := t.tr.SendDone(DoneEvent{ConversationID: t.conv.ID, MessageID: id}); err != nil {
				t.orch.logger.Debug("terminal done write failed", "error", err)
			}
		}

		_, chunks := t.session.snapshot()
		t.orch.metrics.AddChunksStreamed(chunks)
		t.orch.logger.Info("turn completed",
			"conversation_id", t.conv.ID,
			"message_id", id,
			"chunks", chunks)
	})
}

func (t *Turn) finalizeDisconnected() {
	t.session.finalize.Do(func() {
		t.session.setState(StateDisconnected)
		t.session.stopHeartbeatAndWait()

		id := t.persistBuffer()
		t.orch.metrics.IncTurnsDisconnected()

		_, chunks := t.session.snapshot()
		t.orch.metrics.AddChunksStreamed(chunks)
		t.orch.logger.Info("turn disconnected",
			"conversation_id", t.conv.ID,
			"message_id", id,
			"chunks", chunks)
	})
}

func (t *Turn) finalizeFailed(cause error) {
	t.session.finalize.Do(func() {
		t.session.setState(StateFailed)
		t.session.stopHeartbeatAndWait()

		// Partial credit: whatever streamed before the failure still counts.
		id := t.persistBuffer()
		t.orch.metrics.IncTurnsFailed()

		if t.session.canForward() {
			if err := t.tr.SendError(cause.Error()); err != nil {
				t.orch.logger.Debug("terminal error write failed", "error", err)
			}
		}

		t.orch.logger.Error("turn failed",
			"conversation_id", t.conv.ID,
			"message_id", id,
			"error", cause)
	})
}

// sendError emits a terminal error for failures that happen before
// streaming starts. The session has produced no output yet.
func (t *Turn) sendError(cause error) {
	if err := t.tr.SendError(cause.Error()); err != nil {
		t.orch.logger.Debug("terminal error write failed", "error", err)
	}
}

// persistBuffer writes the buffered assistant output as one message and
// bumps conversation activity. Whitespace-only output is dropped. Storage
// failures are logged, never retried; the client already has its terminal
// event by now. Returns the new message id, or "" when nothing was saved.
func (t *Turn) persistBuffer() string {
	content, _ := t.session.snapshot()
	if strings.TrimSpace(content) == "" {
		return ""
	}

	now := time.Now().UTC()
	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: t.conv.ID,
		Role:           "assistant",
		Content:        content,
		CreatedAt:      now,
	}
	if err := t.orch.store.AppendMessage(msg); err != nil {
		t.orch.logger.Error("assistant message save failed",
			"conversation_id", t.conv.ID, "error", err)
		return ""
	}
	if err := t.orch.store.TouchConversation(t.conv.ID, now); err != nil {
		t.orch.logger.Warn("conversation activity update failed",
			"conversation_id", t.conv.ID, "error", err)
	}
	return msg.ID
}

// captureWindow renders the tail of the transcript for the memory
// classifier: the newest `size` messages, oldest first, role-prefixed.
func captureWindow(history []*store.Message, size int) string {
	if len(history) > size {
		history = history[len(history)-size:]
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, msg.Role+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// transcript converts stored history into provider messages.
func transcript(history []*store.Message) []provider.Message {
	msgs := make([]provider.Message, 0, len(history))
	for _, msg := range history {
		msgs = append(msgs, provider.Message{Role: msg.Role, Content: msg.Content})
	}
	return msgs
}
