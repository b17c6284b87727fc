package handoff

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/konozy/ordersync/money"
)

func TestIsBusyGroupErr(t *testing.T) {
	if !isBusyGroupErr(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Fatalf("expected BUSYGROUP error to be recognized")
	}
	if isBusyGroupErr(errors.New("some other redis error")) {
		t.Fatalf("unrelated error should not be recognized as BUSYGROUP")
	}
}

// TestParityVerifiedWireFormatRoundTrip exercises the flat wire record per
// spec: event_type, order_id, sku, net_proceeds, account_id, timestamp,
// execution_id. A marshal/unmarshal round trip through the exact JSON keys
// is what a Redis stream field map actually carries.
func TestParityVerifiedWireFormatRoundTrip(t *testing.T) {
	net, err := money.New("9.00", "USD")
	if err != nil {
		t.Fatalf("money.New: %v", err)
	}
	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	want := ParityVerified{
		EventType:   EventTypeParityVerified,
		OrderID:     "111-1234567-1234567",
		SKU:         "SKU-REAL-1",
		NetProceeds: net,
		AccountID:   "acct-1",
		Timestamp:   ts,
		ExecutionID: "exec-1",
	}

	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal into raw map: %v", err)
	}
	for _, key := range []string{"event_type", "order_id", "sku", "net_proceeds", "account_id", "timestamp", "execution_id"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("wire record missing key %q: %s", key, data)
		}
	}
	netProceeds, ok := raw["net_proceeds"].(map[string]interface{})
	if !ok {
		t.Fatalf("net_proceeds = %v (%T), want a {amount, currency} object", raw["net_proceeds"], raw["net_proceeds"])
	}
	if netProceeds["amount"] != "9" {
		t.Fatalf("net_proceeds.amount = %v, want a decimal string \"9\", not a JSON number", netProceeds["amount"])
	}

	var got ParityVerified
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.EventType != want.EventType {
		t.Fatalf("EventType = %q, want %q", got.EventType, want.EventType)
	}
	if got.OrderID != want.OrderID {
		t.Fatalf("OrderID = %q, want %q", got.OrderID, want.OrderID)
	}
	if got.SKU != want.SKU {
		t.Fatalf("SKU = %q, want %q", got.SKU, want.SKU)
	}
	if !got.NetProceeds.Equal(want.NetProceeds) {
		t.Fatalf("NetProceeds = %s, want %s", got.NetProceeds, want.NetProceeds)
	}
	if got.AccountID != want.AccountID {
		t.Fatalf("AccountID = %q, want %q", got.AccountID, want.AccountID)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("Timestamp = %s, want %s", got.Timestamp, want.Timestamp)
	}
	if got.ExecutionID != want.ExecutionID {
		t.Fatalf("ExecutionID = %q, want %q", got.ExecutionID, want.ExecutionID)
	}
}
