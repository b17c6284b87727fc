package orderagg

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/konozy/ordersync/decomposer"
	"github.com/konozy/ordersync/money"
)

// Status is the Order's lifecycle state.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusCancelled Status = "Cancelled"
	StatusSynced    Status = "Synced"
	StatusFailed    Status = "Failed"
)

// OrderItem is one line of the order as reported by the marketplace.
type OrderItem struct {
	SKU       string
	Title     string
	Quantity  int
	UnitPrice money.Money
	Total     money.Money
}

// Validate checks unit_price * quantity = total.
func (i OrderItem) Validate() error {
	if i.Quantity <= 0 {
		return fmt.Errorf("orderagg: item %s: quantity must be > 0", i.SKU)
	}
	expected := i.UnitPrice.Amount().Mul(decimal.NewFromInt(int64(i.Quantity)))
	got := i.Total.Amount()
	if !expected.Equal(got) {
		return fmt.Errorf("orderagg: item %s: unit_price*quantity=%s != total=%s", i.SKU, expected, got)
	}
	return nil
}

// Order is the aggregate root: a consistency boundary over one
// marketplace order. It exposes commands and accumulates pending domain
// events; it never touches I/O.
type Order struct {
	OrderID      money.OrderID
	PurchaseDate time.Time
	BuyerEmail   string
	Items        []OrderItem
	OrderTotal   money.Money
	Status       Status
	ExecutionID  money.ExecutionID
	Marketplace  string
	ErrorMessage string
	Breakdown    *decomposer.FinancialBreakdown

	sequenceSeen int64
	pending      []Event
}

// New creates a brand-new Pending order and records OrderCreated.
func New(orderID money.OrderID, purchaseDate time.Time, buyerEmail, marketplace string, executionID money.ExecutionID) *Order {
	o := &Order{
		OrderID:      orderID,
		PurchaseDate: purchaseDate,
		BuyerEmail:   buyerEmail,
		Status:       StatusPending,
		ExecutionID:  executionID,
		Marketplace:  marketplace,
	}
	o.record(EventOrderCreated, OrderCreatedPayload{
		OrderID:      string(orderID),
		PurchaseDate: purchaseDate,
		BuyerEmail:   buyerEmail,
		Marketplace:  marketplace,
	})
	return o
}

// PendingEvents returns the events accumulated since the last call to
// ClearPending. The aggregate owns these events until the event log
// successfully appends them.
func (o *Order) PendingEvents() []Event {
	return o.pending
}

// ClearPending drops the pending event list, e.g. after a successful
// append to the event log.
func (o *Order) ClearPending() {
	o.pending = nil
}

func (o *Order) record(t EventType, payload interface{}) {
	o.pending = append(o.pending, Event{
		EventID:       uuid.New().String(),
		EventType:     t,
		EventVersion:  1,
		AggregateID:   string(o.OrderID),
		AggregateType: AggregateTypeOrder,
		ExecutionID:   o.ExecutionID,
		OccurredAt:    time.Now().UTC(),
		Payload:       toPayloadMap(payload),
	})
}

// AddItem appends an item, recomputes OrderTotal, and records
// OrderUpdated. All items must share a currency.
func (o *Order) AddItem(item OrderItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if len(o.Items) > 0 && !o.Items[0].Total.SameCurrency(item.Total) {
		return fmt.Errorf("orderagg: item %s currency mismatch with order", item.SKU)
	}
	o.Items = append(o.Items, item)
	o.recomputeTotal()
	o.record(EventOrderUpdated, OrderUpdatedPayload{Items: o.Items, OrderTotal: o.OrderTotal})
	return nil
}

func (o *Order) recomputeTotal() {
	if len(o.Items) == 0 {
		return
	}
	total := money.Zero(o.Items[0].Total.Currency())
	for _, it := range o.Items {
		total = total.Add(it.Total)
	}
	o.OrderTotal = total
}

// RecordFinancials attaches a breakdown produced by the decomposer.
func (o *Order) RecordFinancials(b decomposer.FinancialBreakdown) {
	o.Breakdown = &b
	o.record(EventFinancialsExtracted, FinancialsExtractedPayload{Breakdown: b})
}

// ValidateBreakdown appends OrderValidated recording the Balance check
// outcome. The decomposer itself fails closed before this point; this
// event exists so the validation result is queryable from the log.
func (o *Order) ValidateBreakdown(passed bool, detail string) {
	o.record(EventOrderValidated, OrderValidatedPayload{Passed: passed, Detail: detail})
}

// MarkShipped transitions Pending -> Shipped. Rejected for a Cancelled
// order or from any state other than Pending.
func (o *Order) MarkShipped() error {
	if o.Status == StatusCancelled {
		return fmt.Errorf("orderagg: cannot ship a cancelled order %s", o.OrderID)
	}
	if o.Status != StatusPending {
		return fmt.Errorf("orderagg: cannot ship order %s from status %s", o.OrderID, o.Status)
	}
	return o.transition(StatusShipped)
}

// MarkCancelled transitions Pending -> Cancelled.
func (o *Order) MarkCancelled() error {
	if o.Status != StatusPending {
		return fmt.Errorf("orderagg: cannot cancel order %s from status %s", o.OrderID, o.Status)
	}
	return o.transition(StatusCancelled)
}

// MarkSynced transitions {Pending,Shipped} -> Synced. Rejected without a
// financial breakdown attached.
func (o *Order) MarkSynced() error {
	if o.Breakdown == nil {
		return fmt.Errorf("orderagg: cannot sync order %s without financial breakdown", o.OrderID)
	}
	if o.Status != StatusPending && o.Status != StatusShipped {
		return fmt.Errorf("orderagg: cannot sync order %s from status %s", o.OrderID, o.Status)
	}
	return o.transition(StatusSynced)
}

// MarkFailed transitions any status -> Failed, recording an error message.
func (o *Order) MarkFailed(errMsg string) error {
	from := o.Status
	o.Status = StatusFailed
	o.ErrorMessage = errMsg
	o.record(EventOrderStatusChanged, OrderStatusChangedPayload{From: from, To: StatusFailed, ErrorMessage: errMsg})
	return nil
}

func (o *Order) transition(to Status) error {
	from := o.Status
	o.Status = to
	if to != StatusFailed {
		o.ErrorMessage = ""
	}
	o.record(EventOrderStatusChanged, OrderStatusChangedPayload{From: from, To: to})
	return nil
}
