package syncengine

import "github.com/konozy/ordersync/money"

// SyncResult is the orchestrator's return value (C6 contract): execution
// id, success flag, derived principal/net, an optional ERP hand-off marker,
// and structured error info on failure.
type SyncResult struct {
	ExecutionID money.ExecutionID
	Success     bool

	Principal   money.Money
	NetProceeds money.Money

	// Published is true once step 5 (non-dry-run) has published every
	// ParityVerified message for this order. It is not an ERP invoice id —
	// invoice creation is the projector's job, asynchronously.
	Published bool

	ErrorKind string
	Step      string
	Message   string
}

// errorKinds mirror the taxonomy in the error handling design.
const (
	ErrorKindMalformedPayload   = "MalformedPayload"
	ErrorKindBalanceViolation   = "BalanceViolation"
	ErrorKindConcurrencyConflict = "ConcurrencyConflict"
	ErrorKindUpstreamUnavailable = "UpstreamUnavailable"
)

func failure(executionID money.ExecutionID, step, kind, message string) SyncResult {
	return SyncResult{ExecutionID: executionID, Success: false, Step: step, ErrorKind: kind, Message: message}
}
