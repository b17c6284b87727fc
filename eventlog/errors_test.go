package eventlog

import "testing"

func TestConcurrencyConflictErrorMessage(t *testing.T) {
	err := &ConcurrencyConflictError{AggregateID: "111-1234567-1234567", ExpectedSequence: 3, ActualNext: 5}
	got := err.Error()
	want := "eventlog: concurrency conflict on aggregate 111-1234567-1234567: expected next sequence 3, store is at 5"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
