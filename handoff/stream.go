// Package handoff implements the durable hand-off stream (C7) between the
// sync orchestrator and the ERP projector, backed by Redis Streams.
// Delivery is at-least-once: the projector is idempotent on (order_id,
// sku), so duplicate delivery is an accepted cost, not a correctness bug.
package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/konozy/ordersync/logging"
	"github.com/konozy/ordersync/money"
)

// Wire event_type tags for the flat stream record. ParityVerified carries
// a sync's per-SKU net proceeds; Reimbursement carries a marketplace
// reimbursement with no sku/product, dispatched down a parallel ERP path.
const (
	EventTypeParityVerified = "ParityVerified"
	EventTypeReimbursement  = "Reimbursement"
)

// ParityVerified is the flat message shape published on the stream, per
// spec: event_type, order_id, sku, net_proceeds, account_id, timestamp,
// execution_id. One is published per (order, sku, net) tuple once the
// decomposer's Balance invariant holds; a Reimbursement-tagged message
// instead carries an order-level amount with no sku.
type ParityVerified struct {
	EventType   string      `json:"event_type"`
	OrderID     string      `json:"order_id"`
	SKU         string      `json:"sku"`
	NetProceeds money.Money `json:"net_proceeds"`
	AccountID   string      `json:"account_id"`
	Timestamp   time.Time   `json:"timestamp"`
	ExecutionID string      `json:"execution_id"`
}

// Stream wraps one Redis Streams topic with a bounded retention cap.
type Stream struct {
	client       *redis.Client
	topic        string
	retentionCap int64
}

// New wraps an already-connected redis client.
func New(client *redis.Client, topic string, retentionCap int64) *Stream {
	return &Stream{client: client, topic: topic, retentionCap: retentionCap}
}

// Publish appends msg to the stream, trimming to the configured retention
// cap. Retention is a backstop, not a correctness mechanism — the event log
// remains authoritative. Returns the assigned message id.
func (s *Stream) Publish(ctx context.Context, msg ParityVerified) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("handoff: marshal message: %w", err)
	}

	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.topic,
		MaxLen: s.retentionCap,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("handoff: xadd: %w", err)
	}

	logging.Debug("published ParityVerified",
		logging.String("event_type", msg.EventType),
		logging.OrderID(msg.OrderID),
		logging.SKU(msg.SKU),
		logging.ExecutionID(msg.ExecutionID),
		logging.String("message_id", id),
	)
	return id, nil
}

// EnsureConsumerGroup creates the consumer group at the tail of the stream
// if it does not already exist. Safe to call on every consumer start.
func (s *Stream) EnsureConsumerGroup(ctx context.Context, group string) error {
	err := s.client.XGroupCreateMkStream(ctx, s.topic, group, "$").Err()
	if err != nil && !isBusyGroupErr(err) {
		return fmt.Errorf("handoff: create consumer group %s: %w", group, err)
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && (err.Error() == "BUSYGROUP Consumer Group name already exists")
}

// Delivery is one pulled, not-yet-acknowledged message.
type Delivery struct {
	ID      string
	Message ParityVerified
}

// Read pulls up to count pending messages for consumer within group,
// blocking up to block for new entries. A zero block is sent as BLOCK 0,
// which waits until a new entry arrives; a negative block does not block.
func (s *Stream) Read(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]Delivery, error) {
	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{s.topic, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("handoff: xreadgroup: %w", err)
	}

	var out []Delivery
	for _, stream := range res {
		for _, entry := range stream.Messages {
			raw, ok := entry.Values["payload"].(string)
			if !ok {
				logging.Warn("handoff: dropping malformed stream entry", logging.String("message_id", entry.ID))
				continue
			}
			var msg ParityVerified
			if err := json.Unmarshal([]byte(raw), &msg); err != nil {
				logging.Warn("handoff: dropping undecodable stream entry", logging.String("message_id", entry.ID))
				continue
			}
			out = append(out, Delivery{ID: entry.ID, Message: msg})
		}
	}
	return out, nil
}

// Ack acknowledges one or more message ids within group.
func (s *Stream) Ack(ctx context.Context, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.client.XAck(ctx, s.topic, group, ids...).Err(); err != nil {
		return fmt.Errorf("handoff: xack: %w", err)
	}
	return nil
}
