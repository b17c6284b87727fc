package money

import "github.com/google/uuid"

// ExecutionID is the 128-bit opaque identifier generated at the edge of
// every invocation and carried through every emitted record: events,
// stream messages, log lines and notifier calls.
type ExecutionID string

// NewExecutionID generates a fresh execution id.
func NewExecutionID() ExecutionID {
	return ExecutionID(uuid.New().String())
}

func (e ExecutionID) String() string { return string(e) }

// SyncAggregateID returns the synthetic aggregate id that scopes the
// run-level SyncStarted/SyncCompleted events for this execution.
func (e ExecutionID) SyncAggregateID() string {
	return "sync-" + string(e)
}
