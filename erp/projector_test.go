package erp

import (
	"testing"

	"github.com/konozy/ordersync/decomposer"
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

func TestAggregateByCodeSumsAcrossOrder(t *testing.T) {
	lines := []decomposer.FinancialLine{
		{LineType: decomposer.LineFee, FeeKind: "Commission", Amount: mustMoney(t, "-1.00", "USD")},
		{LineType: decomposer.LineFee, FeeKind: "Commission", Amount: mustMoney(t, "-2.00", "USD")},
		{LineType: decomposer.LineCharge, FeeKind: "Shipping", Amount: mustMoney(t, "5.00", "USD")},
	}
	got := aggregateByCode(lines)
	if !got["Commission"].Equal(mustMoney(t, "-3.00", "USD")) {
		t.Fatalf("Commission = %s, want -3.00 USD", got["Commission"])
	}
	if !got["Shipping"].Equal(mustMoney(t, "5.00", "USD")) {
		t.Fatalf("Shipping = %s, want 5.00 USD", got["Shipping"])
	}
}

func TestAssertNoProductCollision(t *testing.T) {
	ok := []InvoiceLine{{ProductID: 1}, {ProductID: 2}, {ProductID: 1, IsServiceFee: true}, {ProductID: 1, IsServiceFee: true}}
	if err := assertNoProductCollision(ok); err != nil {
		t.Fatalf("service product repeats should be allowed: %v", err)
	}

	bad := []InvoiceLine{{ProductID: 1}, {ProductID: 1}}
	if err := assertNoProductCollision(bad); err == nil {
		t.Fatalf("expected error on duplicate storable product lines")
	}
}

func TestIsPlaceholderSKU(t *testing.T) {
	if !isPlaceholderSKU("AMZ-111-1234567-1234567", "111-1234567-1234567") {
		t.Fatalf("expected placeholder SKU to be recognized")
	}
	if isPlaceholderSKU("SKU-REAL-1", "111-1234567-1234567") {
		t.Fatalf("real SKU should not be flagged as placeholder")
	}
}
