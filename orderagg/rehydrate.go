package orderagg

import (
	"encoding/json"

	"github.com/konozy/ordersync/money"
)

// toPayloadMap serializes a typed payload into the generic map the event
// log stores. Money fields round-trip as decimal strings because Money
// implements json.Marshaler/Unmarshaler.
func toPayloadMap(payload interface{}) map[string]interface{} {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Payloads are built from typed structs within this package; a
		// marshal failure here means a programming error, not bad input.
		panic("orderagg: failed to marshal event payload: " + err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		panic("orderagg: failed to normalize event payload: " + err.Error())
	}
	return m
}

// decodePayload re-hydrates a generic payload map into a typed struct.
func decodePayload(m map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Rehydrate reconstructs an Order's current state by replaying an ordered
// event list from scratch. An empty event list yields no aggregate. To
// resume on top of a snapshot, use RehydrateFrom instead.
//
// OrderCreated establishes identity. OrderStatusChanged updates status and
// clears or sets error_message. FinancialsExtracted attaches the
// breakdown. Every other event is recorded in sequence tracking only —
// it is a projection, not a state mutation.
func Rehydrate(events []Event) (*Order, error) {
	if len(events) == 0 {
		return nil, nil
	}

	var o *Order
	for _, ev := range events {
		if o == nil {
			if ev.EventType != EventOrderCreated {
				// The first event for an order aggregate must be
				// OrderCreated; anything else means the log was fed out
				// of order.
				continue
			}
			o = &Order{}
		}
		if err := applyProjection(o, ev); err != nil {
			return nil, err
		}
		o.sequenceSeen++
	}

	if o == nil {
		return nil, nil
	}
	o.pending = nil
	return o, nil
}

// applyProjection folds a single event onto an already-allocated
// aggregate. It is the shared core of Rehydrate and RehydrateFrom.
func applyProjection(o *Order, ev Event) error {
	switch ev.EventType {
	case EventOrderCreated:
		var p OrderCreatedPayload
		if err := decodePayload(ev.Payload, &p); err != nil {
			return err
		}
		o.OrderID = money.OrderID(p.OrderID)
		o.PurchaseDate = p.PurchaseDate
		o.BuyerEmail = p.BuyerEmail
		o.Status = StatusPending
		o.ExecutionID = ev.ExecutionID
		o.Marketplace = p.Marketplace

	case EventOrderUpdated:
		var p OrderUpdatedPayload
		if err := decodePayload(ev.Payload, &p); err != nil {
			return err
		}
		o.Items = p.Items
		o.OrderTotal = p.OrderTotal

	case EventOrderStatusChanged:
		var p OrderStatusChangedPayload
		if err := decodePayload(ev.Payload, &p); err != nil {
			return err
		}
		o.Status = p.To
		o.ErrorMessage = p.ErrorMessage

	case EventFinancialsExtracted:
		var p FinancialsExtractedPayload
		if err := decodePayload(ev.Payload, &p); err != nil {
			return err
		}
		o.Breakdown = &p.Breakdown

	default:
		// OrderValidated, OrderSaved, InvoiceCreated, OrderSynced,
		// OrderFailed, NotificationSent, SyncStarted, SyncCompleted:
		// projections recorded elsewhere, no aggregate state to apply.
	}
	return nil
}
