// Package syncengine is the sync use-case orchestrator (C6): the pipeline
// that turns one order's raw financial-event payload into durably logged
// domain events and, outside dry-run, a published hand-off to the ERP
// projector.
package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/konozy/ordersync/decomposer"
	"github.com/konozy/ordersync/handoff"
	"github.com/konozy/ordersync/logging"
	"github.com/konozy/ordersync/metrics"
	"github.com/konozy/ordersync/money"
	"github.com/konozy/ordersync/orderagg"
	"github.com/konozy/ordersync/snapshot"
	"github.com/konozy/ordersync/tracing"
)

// eventStore is the slice of eventlog.Store the orchestrator depends on.
// Narrowed to an interface so the pipeline can be driven with fakes in
// tests without a live Postgres instance.
type eventStore interface {
	EventsFor(ctx context.Context, aggregateID string, fromSeq, toSeq int64) ([]orderagg.Event, error)
	AppendBatch(ctx context.Context, events []orderagg.Event, expectedSequence *int64) (int64, error)
	LatestSequence(ctx context.Context, aggregateID string) (int64, error)
}

// snapshotStore is the slice of snapshot.Store the orchestrator depends on.
type snapshotStore interface {
	LatestFor(ctx context.Context, aggregateID string) (*snapshot.Record, error)
	Save(ctx context.Context, aggregateID, aggregateType string, state orderagg.State, sequenceNumber int64) error
}

// streamPublisher is the slice of handoff.Stream the orchestrator depends on.
type streamPublisher interface {
	Publish(ctx context.Context, msg handoff.ParityVerified) (string, error)
}

// outcomeNotifier is the slice of notifier.Notifier the orchestrator depends on.
type outcomeNotifier interface {
	NotifySuccess(ctx context.Context, message string)
	NotifyError(ctx context.Context, message string)
}

// Engine wires every collaborator the orchestrator pipeline touches.
type Engine struct {
	Events      eventStore
	Snapshots   snapshotStore
	Strategy    snapshot.Strategy
	Stream      streamPublisher
	Notify      outcomeNotifier
	FeeTable    money.FeeTable
	Tolerance   float64
	Marketplace string
}

// Sync runs the full single-order pipeline described in the orchestrator
// contract. purchaseDate seeds a brand-new aggregate; it is ignored when
// rehydrating an existing one.
func (e *Engine) Sync(ctx context.Context, orderIDRaw string, purchaseDate time.Time, buyerEmail string, payload decomposer.RawPayload, dryRun bool) (SyncResult, error) {
	ctx, execID := tracing.Start(ctx)
	start := time.Now()

	orderID, err := money.ParseOrderID(orderIDRaw)
	if err != nil {
		return failure(execID, "extract", ErrorKindMalformedPayload, err.Error()), nil
	}

	log := logging.WithContext(ctx)
	log.Info("sync started", logging.OrderID(string(orderID)), logging.BuyerEmail(buyerEmail))

	// Step 1: SyncStarted is a run-scoped event, logged only — there is no
	// aggregate for "sync-<execution_id>" in this slim engine; the run
	// itself is the unit of observability, not a persisted aggregate.

	// Step 2: decompose.
	warn := func(format string, args ...interface{}) {
		log.Warn(fmt.Sprintf(format, args...), logging.OrderID(string(orderID)))
	}
	breakdown, err := decomposer.Decompose(payload, orderID, e.FeeTable, e.Tolerance, warn)
	if err != nil {
		kind := ErrorKindMalformedPayload
		if _, ok := err.(*decomposer.BalanceViolationError); ok {
			kind = ErrorKindBalanceViolation
			metrics.RecordBalanceViolation(e.Marketplace)
		}
		metrics.RecordSyncError(kind)
		result := failure(execID, "extract", kind, err.Error())
		e.Notify.NotifyError(ctx, fmt.Sprintf("order %s failed at extract: %s", orderID, err.Error()))
		metrics.RecordSync(e.Marketplace, dryRun, false, time.Since(start))
		return result, nil
	}

	// Step 3: build or rehydrate the aggregate.
	order, err := e.loadOrRehydrate(ctx, orderID, purchaseDate, buyerEmail, execID)
	if err != nil {
		metrics.RecordSyncError(ErrorKindUpstreamUnavailable)
		return failure(execID, "load", ErrorKindUpstreamUnavailable, err.Error()), nil
	}

	order.RecordFinancials(breakdown)
	order.ValidateBreakdown(true, "Balance invariant satisfied within tolerance")
	if err := order.MarkShipped(); err != nil {
		// Already shipped/synced is not fatal here; the events above still
		// carry useful information and are appended regardless.
		log.Debug("mark shipped skipped", logging.OrderID(string(orderID)), logging.String("reason", err.Error()))
	}

	pending := order.PendingEvents()

	// Append with one local retry; a second failure is surfaced as a
	// ConcurrencyConflict.
	seq, err := e.appendWithRetry(ctx, orderID, pending)
	if err != nil {
		metrics.RecordConcurrencyConflict(orderagg.AggregateTypeOrder)
		metrics.RecordSyncError(ErrorKindConcurrencyConflict)
		return failure(execID, "save", ErrorKindConcurrencyConflict, err.Error()), nil
	}
	order.ClearPending()

	result := SyncResult{
		ExecutionID: execID,
		Success:     true,
		Principal:   breakdown.Principal,
		NetProceeds: breakdown.NetProceeds,
	}

	if dryRun {
		log.Info("sync completed (dry run)", logging.OrderID(string(orderID)))
		e.Notify.NotifySuccess(ctx, fmt.Sprintf("order %s synced (dry run)", orderID))
		metrics.RecordSync(e.Marketplace, dryRun, true, time.Since(start))
		return result, nil
	}

	if err := e.maybeSnapshot(ctx, string(orderID), order, seq); err != nil {
		// Snapshotting is an optimization; failing it does not fail the sync.
		log.Warn("snapshot write failed, continuing", logging.OrderID(string(orderID)), logging.String("error", err.Error()))
	}

	if err := e.publishHandoff(ctx, orderID, breakdown, execID); err != nil {
		// Per §4.4/4.7: the event log write and stream publish are not in
		// one transaction. The log is truth; a failed publish here is
		// recovered by replaying the stream from the log on a later run.
		log.Error("stream publish failed, will recover from event log", err, logging.Component("syncengine"), logging.OrderID(string(orderID)))
		e.Notify.NotifyError(ctx, fmt.Sprintf("order %s saved but hand-off publish failed: %s", orderID, err.Error()))
		metrics.RecordSync(e.Marketplace, dryRun, false, time.Since(start))
		result.Success = false
		result.ErrorKind = ErrorKindUpstreamUnavailable
		result.Step = "handoff"
		result.Message = err.Error()
		return result, nil
	}
	result.Published = true

	log.Info("sync completed", logging.OrderID(string(orderID)))
	e.Notify.NotifySuccess(ctx, fmt.Sprintf("order %s synced", orderID))
	metrics.RecordSync(e.Marketplace, dryRun, true, time.Since(start))
	return result, nil
}

func (e *Engine) loadOrRehydrate(ctx context.Context, orderID money.OrderID, purchaseDate time.Time, buyerEmail string, execID money.ExecutionID) (*orderagg.Order, error) {
	existing, err := e.Events.EventsFor(ctx, string(orderID), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("syncengine: load events: %w", err)
	}
	if len(existing) > 0 {
		order, err := orderagg.Rehydrate(existing)
		if err != nil {
			return nil, fmt.Errorf("syncengine: rehydrate: %w", err)
		}
		return order, nil
	}
	return orderagg.New(orderID, purchaseDate, buyerEmail, e.Marketplace, execID), nil
}

// appendWithRetry appends pending events, retrying the same batch once on
// any append error. No expected_sequence is passed, so each attempt lets
// AppendBatch read the aggregate's current sequence afresh. A second
// failure surfaces to the caller.
func (e *Engine) appendWithRetry(ctx context.Context, orderID money.OrderID, pending []orderagg.Event) (int64, error) {
	if len(pending) == 0 {
		return e.Events.LatestSequence(ctx, string(orderID))
	}

	appendStart := time.Now()
	seq, err := e.Events.AppendBatch(ctx, pending, nil)
	metrics.RecordEventAppend(orderagg.AggregateTypeOrder, time.Since(appendStart))
	if err == nil {
		return seq, nil
	}

	logging.WithContext(ctx).Warn("concurrency conflict, retrying once", logging.OrderID(string(orderID)))
	appendStart = time.Now()
	seq, err = e.Events.AppendBatch(ctx, pending, nil)
	metrics.RecordEventAppend(orderagg.AggregateTypeOrder, time.Since(appendStart))
	return seq, err
}

func (e *Engine) maybeSnapshot(ctx context.Context, aggregateID string, order *orderagg.Order, currentSeq int64) error {
	latest, err := e.Snapshots.LatestFor(ctx, aggregateID)
	if err != nil {
		return err
	}
	lastAt := time.Time{}
	lastSeq := int64(0)
	if latest != nil {
		lastAt = latest.CreatedAt
		lastSeq = latest.SequenceNumber
	}
	if !e.Strategy.ShouldSnapshot(aggregateID, currentSeq, lastAt, lastSeq) {
		return nil
	}
	if err := e.Snapshots.Save(ctx, aggregateID, orderagg.AggregateTypeOrder, order.Snapshot(), currentSeq); err != nil {
		return err
	}
	metrics.RecordSnapshotWritten(orderagg.AggregateTypeOrder)
	return nil
}

func (e *Engine) publishHandoff(ctx context.Context, orderID money.OrderID, breakdown decomposer.FinancialBreakdown, execID money.ExecutionID) error {
	perSKU := breakdown.PerSKU()
	for sku, totals := range perSKU {
		msg := handoff.ParityVerified{
			EventType:   handoff.EventTypeParityVerified,
			OrderID:     string(orderID),
			SKU:         sku,
			NetProceeds: totals.Net,
			AccountID:   "", // resolved by the ERP side from the fee table, not carried here
			Timestamp:   time.Now().UTC(),
			ExecutionID: execID.String(),
		}
		if _, err := e.Stream.Publish(ctx, msg); err != nil {
			return err
		}
		metrics.RecordStreamPublish("finance")
	}
	return nil
}
