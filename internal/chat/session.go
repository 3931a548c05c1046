package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/attune-oss/attune/internal/telemetry"
)

// State is the lifecycle phase of a turn session.
type State string

const (
	StateStarted      State = "STARTED"
	StateContextBuilt State = "CONTEXT_BUILT"
	StateStreaming    State = "STREAMING"
	StateCompleted    State = "COMPLETED"
	StateDisconnected State = "DISCONNECTED"
	StateFailed       State = "FAILED"
)

// session owns the per-turn resources: the output buffer, the heartbeat
// ticker, and the forwarding flag. Every exit path funnels through the
// same sync.Once finalizer, so cleanup runs exactly once no matter how
// completion and disconnect race.
type session struct {
	mu         sync.Mutex
	state      State
	buf        strings.Builder
	forwarding bool
	chunks     int64

	stopHeartbeat chan struct{}
	heartbeatDone chan struct{}
	finalize      sync.Once
}

func newSession() *session {
	return &session{
		state:         StateStarted,
		forwarding:    true,
		stopHeartbeat: make(chan struct{}),
		heartbeatDone: make(chan struct{}),
	}
}

func (s *session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State reports the current lifecycle phase.
func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// append records one chunk in the buffer and tries to forward it. A forward
// failure stops forwarding for the rest of the turn but never stops
// buffering; the buffer is what gets persisted.
func (s *session) append(chunk string, transport Transport, logger *telemetry.Logger) {
	s.mu.Lock()
	s.buf.WriteString(chunk)
	s.chunks++
	forward := s.forwarding
	s.mu.Unlock()

	if !forward {
		return
	}
	if err := transport.SendChunk(chunk); err != nil {
		s.mu.Lock()
		s.forwarding = false
		s.mu.Unlock()
		logger.Debug("chunk forwarding stopped", "error", err)
	}
}

// snapshot returns the buffered output and chunk count at this instant.
func (s *session) snapshot() (string, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String(), s.chunks
}

// canForward reports whether transport writes are still being attempted.
func (s *session) canForward() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forwarding
}

// runHeartbeat emits keep-alives on a fixed interval until the finalizer
// closes stopHeartbeat. It runs on its own goroutine so a stalled provider
// never starves the ticker. A heartbeat write failure stops forwarding the
// same way a chunk failure does.
func (s *session) runHeartbeat(interval time.Duration, transport Transport, logger *telemetry.Logger) {
	defer close(s.heartbeatDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopHeartbeat:
			return
		case <-ticker.C:
			if !s.canForward() {
				continue
			}
			if err := transport.SendHeartbeat(); err != nil {
				s.mu.Lock()
				s.forwarding = false
				s.mu.Unlock()
				logger.Debug("heartbeat write failed", "error", err)
			}
		}
	}
}

// stopHeartbeatAndWait shuts the ticker goroutine down and waits for it to
// exit, guaranteeing no heartbeat frame lands after a terminal event.
func (s *session) stopHeartbeatAndWait() {
	close(s.stopHeartbeat)
	<-s.heartbeatDone
}
