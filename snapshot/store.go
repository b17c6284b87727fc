package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/konozy/ordersync/orderagg"
)

const snapshotVersion = 1

// Record is one persisted snapshot row.
type Record struct {
	AggregateID     string
	AggregateType   string
	SnapshotVersion int
	SequenceNumber  int64
	State           orderagg.State
	CreatedAt       time.Time
}

// Store is a Postgres-backed snapshot cache.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an already-open pool. The event log and snapshot store
// share one pool and one schema.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Save persists a snapshot for aggregateID at sequenceNumber. Snapshots are
// additive: saving an older sequence number than an existing row is
// permitted but LatestFor always returns the max.
func (s *Store) Save(ctx context.Context, aggregateID, aggregateType string, state orderagg.State, sequenceNumber int64) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("snapshot: marshal state: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO snapshots (aggregate_id, aggregate_type, snapshot_version, sequence_number, state)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (aggregate_id, sequence_number) DO UPDATE SET state = EXCLUDED.state
	`, aggregateID, aggregateType, snapshotVersion, sequenceNumber, blob)
	if err != nil {
		return fmt.Errorf("snapshot: save: %w", err)
	}
	return nil
}

// LatestFor returns the snapshot with the highest sequence_number for
// aggregateID, or (nil, nil) if none exists.
func (s *Store) LatestFor(ctx context.Context, aggregateID string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT aggregate_id, aggregate_type, snapshot_version, sequence_number, state, created_at
		FROM snapshots
		WHERE aggregate_id = $1
		ORDER BY sequence_number DESC
		LIMIT 1
	`, aggregateID)

	var rec Record
	var blob []byte
	err := row.Scan(&rec.AggregateID, &rec.AggregateType, &rec.SnapshotVersion, &rec.SequenceNumber, &blob, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: latest_for: %w", err)
	}
	if err := json.Unmarshal(blob, &rec.State); err != nil {
		return nil, fmt.Errorf("snapshot: decode state: %w", err)
	}
	return &rec, nil
}
