package erp

import (
	"context"
	"testing"
	"time"

	"github.com/konozy/ordersync/decomposer"
	"github.com/konozy/ordersync/handoff"
	"github.com/konozy/ordersync/money"
	"github.com/konozy/ordersync/orderagg"
)

// fakeEventReader replays a fixed event slice regardless of the
// aggregate id asked for, enough to drive Projector.loadOrder in tests.
type fakeEventReader struct {
	events []orderagg.Event
}

func (f fakeEventReader) EventsFor(ctx context.Context, aggregateID string, fromSeq, toSeq int64) ([]orderagg.Event, error) {
	return f.events, nil
}

func newTestOrderEvents(t *testing.T, orderID, sku string) []orderagg.Event {
	t.Helper()
	order := orderagg.New(money.OrderID(orderID), time.Now(), "buyer@example.com", "amazon", money.NewExecutionID())
	if err := order.AddItem(orderagg.OrderItem{
		SKU:       sku,
		Title:     "Widget",
		Quantity:  1,
		UnitPrice: mustMoney(t, "10.00", "USD"),
		Total:     mustMoney(t, "10.00", "USD"),
	}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	breakdown := decomposer.FinancialBreakdown{
		Principal: mustMoney(t, "10.00", "USD"),
		PrincipalLines: []decomposer.FinancialLine{
			{LineType: decomposer.LinePrincipal, Amount: mustMoney(t, "10.00", "USD"), SKU: sku},
		},
		Lines: []decomposer.FinancialLine{
			{LineType: decomposer.LineFee, FeeKind: "Commission", Amount: mustMoney(t, "-1.00", "USD"), SKU: sku},
		},
		NetProceeds: mustMoney(t, "9.00", "USD"),
		PostedDate:  time.Now(),
	}
	order.RecordFinancials(breakdown)
	return order.PendingEvents()
}

// TestProcessDeliveryIsIdempotent drives the same ParityVerified message
// through ProcessDelivery twice, covering spec scenario (c): the second
// delivery must hit the FindInvoiceByOrigin gate and post nothing further.
func TestProcessDeliveryIsIdempotent(t *testing.T) {
	const orderID = "111-1234567-1234567"
	const sku = "SKU-REAL-1"

	client := newFakeClient()
	client.partnerByEmail["buyer@example.com"] = "partner-1"
	client.productBySKU[sku] = 42

	events := newTestOrderEvents(t, orderID, sku)
	projector := NewProjector(client, fakeEventReader{events: events}, "amazon", "generic-partner", "Sales Journal")

	msg := handoff.ParityVerified{
		EventType:   handoff.EventTypeParityVerified,
		OrderID:     orderID,
		SKU:         sku,
		NetProceeds: mustMoney(t, "9.00", "USD"),
		Timestamp:   time.Now(),
		ExecutionID: "exec-1",
	}

	ack, err := projector.ProcessDelivery(context.Background(), msg)
	if err != nil {
		t.Fatalf("first ProcessDelivery: %v", err)
	}
	if !ack {
		t.Fatalf("first ProcessDelivery: expected ack=true")
	}
	if client.createInvoiceCalls != 1 {
		t.Fatalf("createInvoiceCalls = %d, want 1", client.createInvoiceCalls)
	}
	if client.postInvoiceCalls != 1 {
		t.Fatalf("postInvoiceCalls = %d, want 1", client.postInvoiceCalls)
	}

	ack, err = projector.ProcessDelivery(context.Background(), msg)
	if err != nil {
		t.Fatalf("second ProcessDelivery: %v", err)
	}
	if !ack {
		t.Fatalf("second ProcessDelivery: expected ack=true (idempotent no-op)")
	}
	if client.createInvoiceCalls != 1 {
		t.Fatalf("createInvoiceCalls after duplicate delivery = %d, want still 1", client.createInvoiceCalls)
	}
	if client.postInvoiceCalls != 1 {
		t.Fatalf("postInvoiceCalls after duplicate delivery = %d, want still 1", client.postInvoiceCalls)
	}
}

// TestProcessDeliveryReusesDraftInvoiceOnRetry covers the "draft already
// created by a prior attempt" branch: when an invoice exists but is not
// yet posted, ProcessDelivery must not create a second draft.
func TestProcessDeliveryReusesDraftInvoiceOnRetry(t *testing.T) {
	const orderID = "222-7654321-7654321"
	const sku = "SKU-REAL-2"

	client := newFakeClient()
	client.partnerByEmail["buyer@example.com"] = "partner-1"
	client.productBySKU[sku] = 7
	client.invoices[orderID] = &Invoice{InvoiceID: orderID + "-inv", Posted: false}

	events := newTestOrderEvents(t, orderID, sku)
	projector := NewProjector(client, fakeEventReader{events: events}, "amazon", "generic-partner", "Sales Journal")

	msg := handoff.ParityVerified{
		EventType:   handoff.EventTypeParityVerified,
		OrderID:     orderID,
		SKU:         sku,
		NetProceeds: mustMoney(t, "9.00", "USD"),
		Timestamp:   time.Now(),
		ExecutionID: "exec-2",
	}

	ack, err := projector.ProcessDelivery(context.Background(), msg)
	if err != nil {
		t.Fatalf("ProcessDelivery: %v", err)
	}
	if !ack {
		t.Fatalf("expected ack=true")
	}
	if client.createInvoiceCalls != 0 {
		t.Fatalf("createInvoiceCalls = %d, want 0 (draft already existed)", client.createInvoiceCalls)
	}
	if client.postInvoiceCalls != 1 {
		t.Fatalf("postInvoiceCalls = %d, want 1", client.postInvoiceCalls)
	}
}
