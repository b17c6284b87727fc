package erp

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/konozy/ordersync/handoff"
	"github.com/konozy/ordersync/logging"
)

// WorkerPool runs N concurrent consumers against the same consumer group.
// Stream semantics (competing consumers) guarantee a message is delivered
// to exactly one consumer at a time; each consumer processes its own pulled
// batch sequentially to preserve its consumer-group position ordering.
type WorkerPool struct {
	stream     *handoff.Stream
	projector  *Projector
	group      string
	batchSize  int64
	blockFor   time.Duration
}

// NewWorkerPool wires a stream, a projector, and the consumer group name
// shared by every worker.
func NewWorkerPool(stream *handoff.Stream, projector *Projector, group string, batchSize int64, blockFor time.Duration) *WorkerPool {
	return &WorkerPool{stream: stream, projector: projector, group: group, batchSize: batchSize, blockFor: blockFor}
}

// Run starts n concurrent consumers and blocks until ctx is cancelled or
// any consumer returns a fatal error.
func (p *WorkerPool) Run(ctx context.Context, n int) error {
	if err := p.stream.EnsureConsumerGroup(ctx, p.group); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		consumerName := fmt.Sprintf("erp-worker-%d", i)
		g.Go(func() error {
			return p.consumeLoop(ctx, consumerName)
		})
	}
	return g.Wait()
}

func (p *WorkerPool) consumeLoop(ctx context.Context, consumerName string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		deliveries, err := p.stream.Read(ctx, p.group, consumerName, p.batchSize, p.blockFor)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.Error("erp worker: stream read failed", err, logging.String("consumer", consumerName))
			continue
		}

		// Sequential within the batch to preserve consumer-group ordering.
		for _, d := range deliveries {
			ack, err := p.dispatch(ctx, d.Message)
			if err != nil {
				logging.Error("erp worker: delivery failed, leaving unacknowledged", err,
					logging.Component("erp_projector"),
					logging.OrderID(d.Message.OrderID),
					logging.SKU(d.Message.SKU),
					logging.String("message_id", d.ID),
					logging.String("consumer", consumerName),
				)
				continue
			}
			if ack {
				if err := p.stream.Ack(ctx, p.group, d.ID); err != nil {
					logging.Error("erp worker: ack failed", err, logging.String("message_id", d.ID))
				}
			}
		}
	}
}

// dispatch routes a delivery to the invoice-posting path or the parallel
// reimbursement path per its event_type tag, per spec.md §4.8's
// "Reimbursement entries" paragraph.
func (p *WorkerPool) dispatch(ctx context.Context, msg handoff.ParityVerified) (bool, error) {
	if msg.EventType == handoff.EventTypeReimbursement {
		return p.projector.ProcessReimbursement(ctx, ReimbursementEvent{
			OrderID:   msg.OrderID,
			EventType: msg.EventType,
			Amount:    msg.NetProceeds,
		})
	}
	return p.projector.ProcessDelivery(ctx, msg)
}
