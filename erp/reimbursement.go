package erp

import (
	"context"
	"fmt"

	"github.com/konozy/ordersync/logging"
)

// ProcessReimbursement posts a reimbursement journal entry. Idempotent on
// (order_id, event_type): a duplicate delivery finds the existing entry and
// makes no ERP mutation.
func (p *Projector) ProcessReimbursement(ctx context.Context, ev ReimbursementEvent) (bool, error) {
	existing, err := p.client.FindReimbursementEntry(ctx, ev.OrderID, ev.EventType)
	if err != nil {
		return false, fmt.Errorf("erp: find_reimbursement_entry: %w", err)
	}
	if existing != "" {
		logging.Debug("reimbursement entry already posted, skipping",
			logging.OrderID(ev.OrderID), logging.String("event_type", ev.EventType))
		return true, nil
	}

	entryID, err := p.client.CreateReimbursementEntry(ctx, ev.OrderID, ev.EventType, ev.Amount)
	if err != nil {
		return false, fmt.Errorf("erp: create_reimbursement_entry: %w", err)
	}

	logging.Info("reimbursement entry posted",
		logging.OrderID(ev.OrderID), logging.String("event_type", ev.EventType), logging.String("entry_id", entryID))
	return true, nil
}
