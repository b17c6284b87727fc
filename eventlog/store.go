// Package eventlog is the append-only, per-aggregate sequenced event store
// (C4). It is the single source of truth for the system: no update, no
// delete, strict per-aggregate ordering by sequence_number, optimistic
// concurrency via a uniqueness constraint on (aggregate_id, sequence_number).
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/konozy/ordersync/logging"
	"github.com/konozy/ordersync/money"
	"github.com/konozy/ordersync/orderagg"
)

// Store is a Postgres-backed append-only event log.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates a connection pool against dsn and verifies connectivity.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("eventlog: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// Pool exposes the underlying connection pool so the snapshot store can
// share it instead of opening a second one.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// pgUniqueViolation is Postgres error code 23505.
const pgUniqueViolation = "23505"

// Append persists event with sequence_number = max_for_aggregate + 1. If
// expectedSequence is non-nil and does not equal the sequence that would be
// assigned, Append fails with *ConcurrencyConflictError without writing
// anything. Returns the assigned sequence number.
func (s *Store) Append(ctx context.Context, event orderagg.Event, expectedSequence *int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("eventlog: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var current int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM events WHERE aggregate_id = $1`,
		event.AggregateID,
	).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("eventlog: read current sequence: %w", err)
	}

	next := current + 1
	if expectedSequence != nil && *expectedSequence != next {
		return 0, &ConcurrencyConflictError{
			AggregateID:      event.AggregateID,
			ExpectedSequence: *expectedSequence,
			ActualNext:       next,
		}
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return 0, fmt.Errorf("eventlog: marshal payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO events (event_id, aggregate_id, aggregate_type, sequence_number, event_type, event_version, payload, execution_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, event.EventID, event.AggregateID, event.AggregateType, next, string(event.EventType), event.EventVersion, payload, event.ExecutionID.String(), event.OccurredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, &ConcurrencyConflictError{
				AggregateID:      event.AggregateID,
				ExpectedSequence: next,
				ActualNext:       next,
			}
		}
		return 0, fmt.Errorf("eventlog: insert event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("eventlog: commit: %w", err)
	}

	logging.Debug("event appended",
		logging.OrderID(event.AggregateID),
		logging.ExecutionID(event.ExecutionID.String()),
		logging.String("event_type", string(event.EventType)),
		logging.Int64("sequence_number", next),
	)
	return next, nil
}

// AppendBatch appends every pending event for one aggregate in a single
// transaction, assigning consecutive sequence numbers. It fails closed: if
// any event would conflict, none are persisted.
func (s *Store) AppendBatch(ctx context.Context, events []orderagg.Event, expectedSequence *int64) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("eventlog: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	aggregateID := events[0].AggregateID
	var current int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM events WHERE aggregate_id = $1`,
		aggregateID,
	).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("eventlog: read current sequence: %w", err)
	}

	next := current + 1
	if expectedSequence != nil && *expectedSequence != next {
		return 0, &ConcurrencyConflictError{AggregateID: aggregateID, ExpectedSequence: *expectedSequence, ActualNext: next}
	}

	seq := current
	for _, event := range events {
		seq++
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return 0, fmt.Errorf("eventlog: marshal payload: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO events (event_id, aggregate_id, aggregate_type, sequence_number, event_type, event_version, payload, execution_id, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, event.EventID, event.AggregateID, event.AggregateType, seq, string(event.EventType), event.EventVersion, payload, event.ExecutionID.String(), event.OccurredAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return 0, &ConcurrencyConflictError{AggregateID: aggregateID, ExpectedSequence: seq, ActualNext: seq}
			}
			return 0, fmt.Errorf("eventlog: insert event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("eventlog: commit: %w", err)
	}
	return seq, nil
}

// row mirrors one events table row before EventType-tagged decoding.
type row struct {
	eventID       string
	aggregateID   string
	aggregateType string
	sequence      int64
	eventType     string
	version       int
	payload       []byte
	executionID   string
	occurredAt    time.Time
}

func (r row) toEvent() (orderagg.Event, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(r.payload, &payload); err != nil {
		return orderagg.Event{}, fmt.Errorf("eventlog: decode payload for event %s: %w", r.eventID, err)
	}
	return orderagg.Event{
		EventID:       r.eventID,
		EventType:     orderagg.EventType(r.eventType),
		EventVersion:  r.version,
		AggregateID:   r.aggregateID,
		AggregateType: r.aggregateType,
		ExecutionID:   money.ExecutionID(r.executionID),
		OccurredAt:    r.occurredAt,
		Payload:       payload,
	}, nil
}

// EventsFor returns events for one aggregate in sequence order, optionally
// bounded by [fromSeq, toSeq]. A zero bound is unbounded on that side.
func (s *Store) EventsFor(ctx context.Context, aggregateID string, fromSeq, toSeq int64) ([]orderagg.Event, error) {
	query := `
		SELECT event_id, aggregate_id, aggregate_type, sequence_number, event_type, event_version, payload, execution_id, occurred_at
		FROM events
		WHERE aggregate_id = $1
		  AND ($2 = 0 OR sequence_number >= $2)
		  AND ($3 = 0 OR sequence_number <= $3)
		ORDER BY sequence_number ASC
	`
	rows, err := s.pool.Query(ctx, query, aggregateID, fromSeq, toSeq)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query events_for: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsForExecution returns every event tagged with executionID, in
// occurred_at order, regardless of which aggregate produced it.
func (s *Store) EventsForExecution(ctx context.Context, executionID string) ([]orderagg.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, aggregate_id, aggregate_type, sequence_number, event_type, event_version, payload, execution_id, occurred_at
		FROM events
		WHERE execution_id = $1
		ORDER BY occurred_at ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query events_for_execution: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]orderagg.Event, error) {
	var out []orderagg.Event
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.eventID, &r.aggregateID, &r.aggregateType, &r.sequence, &r.eventType, &r.version, &r.payload, &r.executionID, &r.occurredAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan row: %w", err)
		}
		ev, err := r.toEvent()
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// LatestSequence returns the highest sequence_number recorded for
// aggregateID, or 0 if the aggregate does not exist.
func (s *Store) LatestSequence(ctx context.Context, aggregateID string) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(sequence_number), 0) FROM events WHERE aggregate_id = $1`, aggregateID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("eventlog: latest_sequence: %w", err)
	}
	return seq, nil
}

// Exists reports whether any event has been recorded for aggregateID.
func (s *Store) Exists(ctx context.Context, aggregateID string) (bool, error) {
	seq, err := s.LatestSequence(ctx, aggregateID)
	if err != nil {
		return false, err
	}
	return seq > 0, nil
}
