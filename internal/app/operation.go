package app

import (
	"time"

	"github.com/google/uuid"
)

// Operation identifies one CLI invocation in log output. Every run gets a
// fresh UUID so interleaved log lines from concurrent invocations can be
// told apart.
type Operation struct {
	RunID   string
	Name    string
	Started time.Time
}

// NewOperation creates an operation record for the named command.
func NewOperation(name string, started time.Time) *Operation {
	return &Operation{
		RunID:   uuid.New().String(),
		Name:    name,
		Started: started,
	}
}

// Elapsed returns the wall time since the operation started.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.Started)
}
