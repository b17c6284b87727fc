package eventlog

import "fmt"

// ConcurrencyConflictError is returned by Append when the caller's
// expected_sequence does not match the sequence the store would assign.
// The caller is expected to reload the aggregate and re-apply its command;
// the log never resolves the conflict itself.
type ConcurrencyConflictError struct {
	AggregateID      string
	ExpectedSequence int64
	ActualNext       int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("eventlog: concurrency conflict on aggregate %s: expected next sequence %d, store is at %d",
		e.AggregateID, e.ExpectedSequence, e.ActualNext)
}
