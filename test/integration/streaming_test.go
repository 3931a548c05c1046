//go:build integration

package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/attune-oss/attune/internal/chat"
	"github.com/attune-oss/attune/internal/config"
	"github.com/attune-oss/attune/internal/memory"
	"github.com/attune-oss/attune/internal/provider"
	"github.com/attune-oss/attune/internal/server"
	"github.com/attune-oss/attune/internal/store"
	"github.com/attune-oss/attune/internal/telemetry"
	"github.com/attune-oss/attune/internal/testutil"
)

// TestChatTurn_EndToEnd runs a full turn over a real HTTP connection: memory
// capture fires, the reply streams as SSE, and the transcript lands in the
// database.
func TestChatTurn_EndToEnd(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "attune.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	agent := &store.Agent{Name: "aria", Persona: "You are Aria."}
	if err := st.CreateAgent(agent); err != nil {
		t.Fatal(err)
	}
	conv := &store.Conversation{UserID: "u1", AgentID: agent.ID}
	if err := st.CreateConversation(conv); err != nil {
		t.Fatal(err)
	}

	classifier := memory.NewClassifier(&testutil.ScriptedProvider{Routes: map[string]string{
		"Memory Trigger Detector": `{"should_remember": true, "trigger_type": "explicit"}`,
		"Memory Extractor":        `{"category": "preference", "fact": "The user only drinks iced lattes with no sugar."}`,
		"Memory Lookup Gate":      `{"lookup": false, "query": ""}`,
	}}, "mock-model")
	memStore := memory.NewChromemStore()
	mem := memory.NewManager(memStore, testutil.NewMockEmbedder(8), classifier,
		testutil.TestLogger(), telemetry.NewMetrics(), memory.ManagerConfig{})

	mock := &testutil.MockProvider{
		Responses: []*provider.Response{{Content: "Noted, iced lattes it is.", StopReason: "end_turn"}},
	}
	orch := chat.NewOrchestrator(st, mock, mem, testutil.TestLogger(), telemetry.NewMetrics(), chat.Options{
		Model:     "mock-model",
		Heartbeat: time.Second,
	})

	cfg := &config.Config{Name: "attune", Version: "test"}
	srv := server.New(cfg, st, mem, orch, nil, testutil.TestLogger(), telemetry.NewMetrics())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body := strings.NewReader(`{"conversation_id": "` + conv.ID + `", "content": "I only drink iced lattes, no sugar"}`)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/chat", body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Attune-User", "u1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var reply strings.Builder
	var sawDone bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "event: done":
			sawDone = true
		case strings.HasPrefix(line, "data: {\"chunk\""):
			var frame struct {
				Chunk string `json:"chunk"`
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
				t.Fatalf("bad chunk frame %q: %v", line, err)
			}
			reply.WriteString(frame.Chunk)
		}
	}
	if !sawDone {
		t.Error("stream closed without a done event")
	}
	if reply.String() != "Noted, iced lattes it is." {
		t.Errorf("streamed reply %q", reply.String())
	}

	msgs, err := st.ListMessages(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[1].Role != "assistant" {
		t.Fatalf("unexpected transcript length %d", len(msgs))
	}

	// The detached capture pipeline eventually writes one record.
	deadline := time.After(2 * time.Second)
	for {
		recs, err := memStore.List(context.Background(), "u1", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) == 1 {
			if recs[0].Category != memory.CategoryPreference {
				t.Errorf("unexpected category %s", recs[0].Category)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("expected 1 captured memory, got %d", len(recs))
		case <-time.After(10 * time.Millisecond):
		}
	}
}
