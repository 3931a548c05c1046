package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONFileExporter_Export(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".attune", "metrics.jsonl")

	exporter, err := NewJSONFileExporter(path)
	if err != nil {
		t.Fatal(err)
	}
	defer exporter.Close()

	snapshot := MetricsSnapshot{
		Timestamp: time.Now(),
		Event:     "turn.completed",
		Metrics: map[string]interface{}{
			"turns_completed": int64(5),
			"chunks_streamed": int64(312),
		},
		Labels: map[string]string{
			"conversation": "conv-1",
			"agent":        "luna",
		},
	}

	if err := exporter.Export(snapshot); err != nil {
		t.Fatal(err)
	}

	// Write another snapshot
	snapshot.Event = "turn.disconnected"
	if err := exporter.Export(snapshot); err != nil {
		t.Fatal(err)
	}

	exporter.Close()

	// Read and verify
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	lines := splitLines(string(data))
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", len(lines))
	}

	var parsed MetricsSnapshot
	if err := json.Unmarshal([]byte(lines[0]), &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Event != "turn.completed" {
		t.Errorf("expected event 'turn.completed', got %q", parsed.Event)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.IncTurnsStarted()
	m.IncTurnsStarted()
	m.IncTurnsCompleted()
	m.IncTurnsDisconnected()
	m.AddChunksStreamed(42)
	m.IncMemoryWrites()
	m.IncMemoryLookups()

	summary := m.GetSummary()
	if summary["turns_started"] != int64(2) {
		t.Errorf("expected 2 turns started, got %v", summary["turns_started"])
	}
	if summary["turns_completed"] != int64(1) {
		t.Errorf("expected 1 turn completed, got %v", summary["turns_completed"])
	}
	if summary["active_turns"] != int64(0) {
		t.Errorf("expected 0 active turns, got %v", summary["active_turns"])
	}
	if summary["chunks_streamed"] != int64(42) {
		t.Errorf("expected 42 chunks streamed, got %v", summary["chunks_streamed"])
	}

	m.Reset()
	if m.GetSummary()["memory_writes"] != int64(0) {
		t.Error("expected zeroed counters after Reset")
	}
}

func TestMetrics_FlushWithExporter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.jsonl")

	exporter, err := NewJSONFileExporter(path)
	if err != nil {
		t.Fatal(err)
	}

	m := NewMetrics()
	m.SetExporter(exporter)
	m.IncTurnsStarted()
	m.IncTurnsCompleted()

	m.Flush("turn.completed", map[string]string{"conversation": "conv-9"})
	exporter.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(data) == 0 {
		t.Error("expected non-empty metrics file")
	}

	var snapshot MetricsSnapshot
	if err := json.Unmarshal(data[:len(data)-1], &snapshot); err != nil {
		t.Fatal(err)
	}
	if snapshot.Event != "turn.completed" {
		t.Errorf("expected event 'turn.completed', got %q", snapshot.Event)
	}
}

func TestMetrics_FlushWithoutExporter(t *testing.T) {
	m := NewMetrics()
	// Should not panic
	m.Flush("test", nil)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
