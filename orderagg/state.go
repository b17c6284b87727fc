package orderagg

import (
	"time"

	"github.com/konozy/ordersync/decomposer"
	"github.com/konozy/ordersync/money"
)

// State is the plain-value snapshot of an Order's state, with no pending
// events and no behavior. It is what the snapshot store persists as its
// state_blob; truth still lives in the event log, this is a cache over it.
type State struct {
	OrderID      string
	PurchaseDate time.Time
	BuyerEmail   string
	Items        []OrderItem
	OrderTotal   money.Money
	Status       Status
	ExecutionID  string
	Marketplace  string
	ErrorMessage string
	Breakdown    *decomposer.FinancialBreakdown
}

// Snapshot captures the aggregate's current state with no pending events.
func (o *Order) Snapshot() State {
	return State{
		OrderID:      string(o.OrderID),
		PurchaseDate: o.PurchaseDate,
		BuyerEmail:   o.BuyerEmail,
		Items:        append([]OrderItem(nil), o.Items...),
		OrderTotal:   o.OrderTotal,
		Status:       o.Status,
		ExecutionID:  string(o.ExecutionID),
		Marketplace:  o.Marketplace,
		ErrorMessage: o.ErrorMessage,
		Breakdown:    o.Breakdown,
	}
}

// FromState restores an aggregate from a snapshot, positioned at
// sequenceNumber with no pending events; the caller is expected to replay
// events with sequence_number > sequenceNumber on top of it.
func FromState(s State, sequenceNumber int64) *Order {
	return &Order{
		OrderID:      money.OrderID(s.OrderID),
		PurchaseDate: s.PurchaseDate,
		BuyerEmail:   s.BuyerEmail,
		Items:        s.Items,
		OrderTotal:   s.OrderTotal,
		Status:       s.Status,
		ExecutionID:  money.ExecutionID(s.ExecutionID),
		Marketplace:  s.Marketplace,
		ErrorMessage: s.ErrorMessage,
		Breakdown:    s.Breakdown,
		sequenceSeen: sequenceNumber,
	}
}

// SequenceSeen returns the highest event sequence number folded into this
// aggregate so far.
func (o *Order) SequenceSeen() int64 { return o.sequenceSeen }

// RehydrateFrom replays events on top of an already-restored aggregate
// (e.g. one produced by FromState). Passing nil for base is equivalent to
// Rehydrate.
func RehydrateFrom(base *Order, events []Event) (*Order, error) {
	if base == nil {
		return Rehydrate(events)
	}
	o := base
	for _, ev := range events {
		if err := applyProjection(o, ev); err != nil {
			return nil, err
		}
		o.sequenceSeen++
	}
	return o, nil
}
