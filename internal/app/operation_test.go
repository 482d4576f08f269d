package app

import (
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	started := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	op := NewOperation("Import", started)

	if op.Name != "Import" {
		t.Errorf("Name = %q, want %q", op.Name, "Import")
	}
	if op.RunID == "" {
		t.Error("RunID is empty, want a UUID")
	}
	if !op.Started.Equal(started) {
		t.Errorf("Started = %v, want %v", op.Started, started)
	}

	op2 := NewOperation("Import", started)
	if op2.RunID == op.RunID {
		t.Error("two operations share a RunID, want distinct IDs")
	}
}

func TestOperation_Elapsed(t *testing.T) {
	started := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	op := NewOperation("Stats", started)

	now := started.Add(1500 * time.Millisecond)
	if got := op.Elapsed(now); got != 1500*time.Millisecond {
		t.Errorf("Elapsed() = %v, want 1.5s", got)
	}
}
