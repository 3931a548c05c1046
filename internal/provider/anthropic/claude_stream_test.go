package anthropic

import (
	"strings"
	"testing"

	"github.com/attune-oss/attune/internal/provider"
)

func TestParseStream_TextDeltas(t *testing.T) {
	// Simulate an SSE stream with a single text content block.
	sseData := strings.Join([]string{
		`data: {"type":"message_start","message":{"usage":{"input_tokens":25}}}`,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}`,
		`data: {"type":"content_block_stop","index":0}`,
		`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":10}}`,
		`data: {"type":"message_stop"}`,
		"",
	}, "\n")

	client := &Client{}
	var textChunks []string
	var doneEvent provider.StreamEvent

	handler := func(ev provider.StreamEvent) {
		if ev.Type == "text" {
			textChunks = append(textChunks, ev.Content)
		}
		if ev.Done {
			doneEvent = ev
		}
	}

	err := client.parseStream(strings.NewReader(sseData), handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(textChunks) != 2 {
		t.Fatalf("expected 2 text chunks, got %d", len(textChunks))
	}
	if textChunks[0] != "Hello" || textChunks[1] != " there" {
		t.Errorf("unexpected chunks: %v", textChunks)
	}

	if !doneEvent.Done {
		t.Fatal("expected done event")
	}
	if doneEvent.StopReason != "end_turn" {
		t.Errorf("expected stop_reason 'end_turn', got %q", doneEvent.StopReason)
	}
	if doneEvent.Usage.InputTokens != 25 || doneEvent.Usage.OutputTokens != 10 {
		t.Errorf("unexpected usage: %+v", doneEvent.Usage)
	}
}

func TestParseStream_TruncatedStream(t *testing.T) {
	// Connection dropped mid-stream: no message_stop event.
	sseData := strings.Join([]string{
		`data: {"type":"message_start","message":{"usage":{"input_tokens":12}}}`,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"partial"}}`,
		"",
	}, "\n")

	client := &Client{}
	var chunks []string
	var gotDone bool

	err := client.parseStream(strings.NewReader(sseData), func(ev provider.StreamEvent) {
		if ev.Type == "text" {
			chunks = append(chunks, ev.Content)
		}
		if ev.Done {
			gotDone = true
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 1 || chunks[0] != "partial" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
	// A done event is still emitted so callers can finalize.
	if !gotDone {
		t.Error("expected done event for truncated stream")
	}
}

func TestParseStream_SkipsMalformedLines(t *testing.T) {
	sseData := strings.Join([]string{
		`event: content_block_delta`,
		`data: not-json`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"ok"}}`,
		`data: {"type":"message_stop"}`,
		"",
	}, "\n")

	client := &Client{}
	var chunks []string

	err := client.parseStream(strings.NewReader(sseData), func(ev provider.StreamEvent) {
		if ev.Type == "text" {
			chunks = append(chunks, ev.Content)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "ok" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
}

func TestBuildRequest(t *testing.T) {
	client := NewClient("sk-test", "claude-sonnet-4-20250514")

	req := &provider.CompletionRequest{
		System: "You are a warm companion.",
		Messages: []provider.Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "how are you?"},
		},
		Temperature: 0.7,
	}

	apiReq := client.buildRequest(req)

	if apiReq["model"] != "claude-sonnet-4-20250514" {
		t.Errorf("unexpected model: %v", apiReq["model"])
	}
	if apiReq["max_tokens"] != 4096 {
		t.Errorf("expected default max_tokens 4096, got %v", apiReq["max_tokens"])
	}
	if apiReq["system"] != "You are a warm companion." {
		t.Errorf("unexpected system: %v", apiReq["system"])
	}
	if apiReq["temperature"] != 0.7 {
		t.Errorf("unexpected temperature: %v", apiReq["temperature"])
	}

	messages := apiReq["messages"].([]map[string]interface{})
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[2]["role"] != "user" || messages[2]["content"] != "how are you?" {
		t.Errorf("unexpected last message: %v", messages[2])
	}
}

func TestLineScanner_LongLines(t *testing.T) {
	// Lines larger than the 4096-byte read buffer must survive intact.
	long := strings.Repeat("x", 20000)
	input := "short\r\n" + long + "\ntrailing-without-newline"

	s := newLineScanner(strings.NewReader(input))

	var lines []string
	for s.Scan() {
		lines = append(lines, s.Text())
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "short" {
		t.Errorf("CR not trimmed: %q", lines[0])
	}
	if lines[1] != long {
		t.Errorf("long line corrupted (len %d)", len(lines[1]))
	}
	if lines[2] != "trailing-without-newline" {
		t.Errorf("unexpected final line: %q", lines[2])
	}
}
