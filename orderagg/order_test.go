package orderagg

import (
	"testing"
	"time"

	"github.com/konozy/ordersync/money"
)

func mustMoney(t *testing.T, amt, ccy string) money.Money {
	t.Helper()
	m, err := money.New(amt, ccy)
	if err != nil {
		t.Fatalf("money.New(%q, %q): %v", amt, ccy, err)
	}
	return m
}

func TestNewRecordsOrderCreated(t *testing.T) {
	exec := money.NewExecutionID()
	o := New("111-1234567-1234567", time.Now().UTC(), "buyer@example.com", "amazon_us", exec)

	if o.Status != StatusPending {
		t.Fatalf("status = %s, want Pending", o.Status)
	}
	pending := o.PendingEvents()
	if len(pending) != 1 || pending[0].EventType != EventOrderCreated {
		t.Fatalf("pending events = %+v, want single OrderCreated", pending)
	}
}

func TestAddItemRecomputesTotalAndRejectsBadMath(t *testing.T) {
	exec := money.NewExecutionID()
	o := New("111-1234567-1234567", time.Now().UTC(), "buyer@example.com", "amazon_us", exec)
	o.ClearPending()

	good := OrderItem{SKU: "SKU-1", Title: "Widget", Quantity: 2, UnitPrice: mustMoney(t, "10.00", "USD"), Total: mustMoney(t, "20.00", "USD")}
	if err := o.AddItem(good); err != nil {
		t.Fatalf("AddItem(good): %v", err)
	}
	if !o.OrderTotal.Equal(mustMoney(t, "20.00", "USD")) {
		t.Fatalf("order total = %s, want 20.00 USD", o.OrderTotal)
	}
	if len(o.PendingEvents()) != 1 || o.PendingEvents()[0].EventType != EventOrderUpdated {
		t.Fatalf("expected one OrderUpdated event")
	}

	bad := OrderItem{SKU: "SKU-2", Title: "Gadget", Quantity: 3, UnitPrice: mustMoney(t, "10.00", "USD"), Total: mustMoney(t, "29.00", "USD")}
	if err := o.AddItem(bad); err == nil {
		t.Fatalf("AddItem(bad): expected error on unit_price*quantity mismatch")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	exec := money.NewExecutionID()

	o := New("111-1234567-1234567", time.Now().UTC(), "buyer@example.com", "amazon_us", exec)
	if err := o.MarkSynced(); err == nil {
		t.Fatalf("MarkSynced: expected error without a breakdown")
	}

	o2 := New("111-1234567-1234568", time.Now().UTC(), "buyer@example.com", "amazon_us", exec)
	if err := o2.MarkCancelled(); err != nil {
		t.Fatalf("MarkCancelled: %v", err)
	}
	if err := o2.MarkShipped(); err == nil {
		t.Fatalf("MarkShipped: expected error shipping a cancelled order")
	}
}

func TestRehydrateRoundTrips(t *testing.T) {
	exec := money.NewExecutionID()
	o := New("111-1234567-1234567", time.Now().UTC(), "buyer@example.com", "amazon_us", exec)
	item := OrderItem{SKU: "SKU-1", Title: "Widget", Quantity: 1, UnitPrice: mustMoney(t, "10.00", "USD"), Total: mustMoney(t, "10.00", "USD")}
	if err := o.AddItem(item); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := o.MarkShipped(); err != nil {
		t.Fatalf("MarkShipped: %v", err)
	}

	events := o.PendingEvents()
	replayed, err := Rehydrate(events)
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if replayed.Status != StatusShipped {
		t.Fatalf("replayed status = %s, want Shipped", replayed.Status)
	}
	if !replayed.OrderTotal.Equal(mustMoney(t, "10.00", "USD")) {
		t.Fatalf("replayed total = %s, want 10.00 USD", replayed.OrderTotal)
	}
	if replayed.SequenceSeen() != int64(len(events)) {
		t.Fatalf("sequenceSeen = %d, want %d", replayed.SequenceSeen(), len(events))
	}
	if len(replayed.PendingEvents()) != 0 {
		t.Fatalf("replayed aggregate should have no pending events")
	}
}

func TestRehydrateFromSnapshot(t *testing.T) {
	exec := money.NewExecutionID()
	o := New("111-1234567-1234567", time.Now().UTC(), "buyer@example.com", "amazon_us", exec)
	item := OrderItem{SKU: "SKU-1", Title: "Widget", Quantity: 1, UnitPrice: mustMoney(t, "10.00", "USD"), Total: mustMoney(t, "10.00", "USD")}
	if err := o.AddItem(item); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	snapEvents := o.PendingEvents()
	snapshotOrder, err := Rehydrate(snapEvents)
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	state := snapshotOrder.Snapshot()
	seq := snapshotOrder.SequenceSeen()

	o.ClearPending()
	if err := o.MarkShipped(); err != nil {
		t.Fatalf("MarkShipped: %v", err)
	}
	tailEvents := o.PendingEvents()

	restored := FromState(state, seq)
	final, err := RehydrateFrom(restored, tailEvents)
	if err != nil {
		t.Fatalf("RehydrateFrom: %v", err)
	}
	if final.Status != StatusShipped {
		t.Fatalf("status = %s, want Shipped", final.Status)
	}
	if final.SequenceSeen() != seq+int64(len(tailEvents)) {
		t.Fatalf("sequenceSeen = %d, want %d", final.SequenceSeen(), seq+int64(len(tailEvents)))
	}
}
