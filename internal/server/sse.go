package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/attune-oss/attune/internal/chat"
	attuneErrors "github.com/attune-oss/attune/internal/errors"
)

// sseWriter frames a turn's output as Server-Sent Events. The heartbeat
// goroutine and the stream handler write concurrently, so every frame goes
// out under the mutex and flushes immediately.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter sets the stream headers and flushes them before any body
// bytes, so intermediaries see a live event stream from the first moment.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, attuneErrors.New(attuneErrors.CodeTransportError, "response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) SendChunk(chunk string) error {
	payload, err := json.Marshal(map[string]string{"chunk": chunk})
	if err != nil {
		return err
	}
	return s.write(fmt.Sprintf("data: %s\n\n", payload))
}

// SendHeartbeat writes an SSE comment line; clients never see it as data.
func (s *sseWriter) SendHeartbeat() error {
	return s.write(": heartbeat\n\n")
}

func (s *sseWriter) SendDone(ev chat.DoneEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.write(fmt.Sprintf("event: done\ndata: %s\n\n", payload))
}

func (s *sseWriter) SendError(message string) error {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return err
	}
	return s.write(fmt.Sprintf("event: error\ndata: %s\n\n", payload))
}
