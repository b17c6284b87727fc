package decomposer

import (
	"testing"

	"github.com/konozy/ordersync/money"
)

func testOrderID(t *testing.T) money.OrderID {
	t.Helper()
	id, err := money.ParseOrderID("111-2223334-1234567")
	if err != nil {
		t.Fatalf("parse order id: %v", err)
	}
	return id
}

func testFeeTable(t *testing.T) money.FeeTable {
	t.Helper()
	mapping := money.AccountMapping{AccountID: "4000", AnalyticAccountID: "A1"}
	mappings := make(map[money.FeeKind]money.AccountMapping, len(money.KnownFeeKinds))
	for _, k := range money.KnownFeeKinds {
		mappings[k] = mapping
	}
	table, err := money.NewFeeTable(mappings, mapping, mapping)
	if err != nil {
		t.Fatalf("build fee table: %v", err)
	}
	return table
}

func TestDecomposeRejectsEmptyPayload(t *testing.T) {
	_, err := Decompose(RawPayload{}, testOrderID(t), testFeeTable(t), 0.01, nil)
	if _, ok := err.(*MalformedPayloadError); !ok {
		t.Fatalf("expected *MalformedPayloadError, got %v (%T)", err, err)
	}
}

func TestDecomposeRejectsItemWithNoSKU(t *testing.T) {
	payload := RawPayload{
		ShipmentGroups: []RawShipmentGroup{
			{
				PostedDate: "2026-07-01T00:00:00Z",
				Items: []RawItem{
					{Charges: []RawAmount{{Kind: "Principal", Amount: "10.00", Currency: "USD"}}},
				},
			},
		},
	}
	_, err := Decompose(payload, testOrderID(t), testFeeTable(t), 0.01, nil)
	if _, ok := err.(*MalformedPayloadError); !ok {
		t.Fatalf("expected *MalformedPayloadError, got %v (%T)", err, err)
	}
}

func TestDecomposeSumsPrincipalAndLines(t *testing.T) {
	payload := RawPayload{
		ShipmentGroups: []RawShipmentGroup{
			{
				PostedDate: "2026-07-01T00:00:00Z",
				Items: []RawItem{
					{
						SKU:     "SKU-1",
						Charges: []RawAmount{{Kind: "Principal", Amount: "20.00", Currency: "USD"}},
						Fees:    []RawAmount{{Kind: "commission", Amount: "-3.00", Currency: "USD"}},
						Promotions: []RawAmount{
							{Kind: "promo_rebate", Amount: "-1.00", Currency: "USD"},
						},
					},
				},
			},
		},
	}

	breakdown, err := Decompose(payload, testOrderID(t), testFeeTable(t), 0.01, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPrincipal, _ := money.New("20.00", "USD")
	if !breakdown.Principal.Equal(wantPrincipal) {
		t.Fatalf("principal = %s, want %s", breakdown.Principal, wantPrincipal)
	}

	wantNet, _ := money.New("16.00", "USD")
	if !breakdown.NetProceeds.Equal(wantNet) {
		t.Fatalf("net proceeds = %s, want %s", breakdown.NetProceeds, wantNet)
	}

	if len(breakdown.Lines) != 2 {
		t.Fatalf("expected 2 lines (fee + promo), got %d", len(breakdown.Lines))
	}
}

func TestDecomposeAccumulatesSameSKUAcrossShipmentGroups(t *testing.T) {
	payload := RawPayload{
		ShipmentGroups: []RawShipmentGroup{
			{
				PostedDate: "2026-07-01T00:00:00Z",
				Items: []RawItem{
					{SKU: "SKU-1", Charges: []RawAmount{{Kind: "Principal", Amount: "10.00", Currency: "USD"}}},
				},
			},
			{
				PostedDate: "2026-07-02T00:00:00Z",
				Items: []RawItem{
					{SKU: "SKU-1", Charges: []RawAmount{{Kind: "Principal", Amount: "5.00", Currency: "USD"}}},
				},
			},
		},
	}

	breakdown, err := Decompose(payload, testOrderID(t), testFeeTable(t), 0.01, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPrincipal, _ := money.New("15.00", "USD")
	if !breakdown.Principal.Equal(wantPrincipal) {
		t.Fatalf("principal = %s, want %s", breakdown.Principal, wantPrincipal)
	}

	// PostedDate takes the earliest of the shipment groups.
	if breakdown.PostedDate.Day() != 1 {
		t.Fatalf("expected earliest posted date (day 1), got day %d", breakdown.PostedDate.Day())
	}
}

func TestDecomposeRejectsMixedCurrency(t *testing.T) {
	payload := RawPayload{
		ShipmentGroups: []RawShipmentGroup{
			{
				Items: []RawItem{
					{SKU: "SKU-1", Charges: []RawAmount{{Kind: "Principal", Amount: "10.00", Currency: "USD"}}},
					{SKU: "SKU-2", Charges: []RawAmount{{Kind: "Principal", Amount: "10.00", Currency: "EUR"}}},
				},
			},
		},
	}
	_, err := Decompose(payload, testOrderID(t), testFeeTable(t), 0.01, nil)
	if _, ok := err.(*MixedCurrencyError); !ok {
		t.Fatalf("expected *MixedCurrencyError, got %v (%T)", err, err)
	}
}

func TestDecomposeDropsUnknownFeeKindWithWarning(t *testing.T) {
	var warned bool
	warn := func(format string, args ...interface{}) { warned = true }

	payload := RawPayload{
		ShipmentGroups: []RawShipmentGroup{
			{
				Items: []RawItem{
					{
						SKU:     "SKU-1",
						Charges: []RawAmount{{Kind: "Principal", Amount: "10.00", Currency: "USD"}},
						Fees:    []RawAmount{{Kind: "mystery_fee", Amount: "-2.00", Currency: "USD"}},
					},
				},
			},
		},
	}

	breakdown, err := Decompose(payload, testOrderID(t), testFeeTable(t), 0.01, warn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !warned {
		t.Fatalf("expected warn to be invoked for the unknown fee kind")
	}
	if len(breakdown.Lines) != 0 {
		t.Fatalf("unknown fee kind line should have been dropped, got %d lines", len(breakdown.Lines))
	}
}

func TestDecomposeEnforcesBalanceAgainstExpectedTotal(t *testing.T) {
	payload := RawPayload{
		ShipmentGroups: []RawShipmentGroup{
			{
				Items: []RawItem{
					{
						SKU:           "SKU-1",
						Charges:       []RawAmount{{Kind: "Principal", Amount: "20.00", Currency: "USD"}},
						Fees:          []RawAmount{{Kind: "commission", Amount: "-3.00", Currency: "USD"}},
						ExpectedTotal: "10.00", // way off from the itemized net of 17.00
					},
				},
			},
		},
	}

	_, err := Decompose(payload, testOrderID(t), testFeeTable(t), 0.01, nil)
	violation, ok := err.(*BalanceViolationError)
	if !ok {
		t.Fatalf("expected *BalanceViolationError, got %v (%T)", err, err)
	}
	if violation.Delta <= 0.01 {
		t.Fatalf("expected a delta beyond tolerance, got %f", violation.Delta)
	}
}

func TestDecomposeAcceptsWithinToleranceExpectedTotal(t *testing.T) {
	payload := RawPayload{
		ShipmentGroups: []RawShipmentGroup{
			{
				Items: []RawItem{
					{
						SKU:           "SKU-1",
						Charges:       []RawAmount{{Kind: "Principal", Amount: "20.00", Currency: "USD"}},
						Fees:          []RawAmount{{Kind: "commission", Amount: "-3.00", Currency: "USD"}},
						ExpectedTotal: "17.005",
					},
				},
			},
		},
	}

	if _, err := Decompose(payload, testOrderID(t), testFeeTable(t), 0.01, nil); err != nil {
		t.Fatalf("unexpected error within tolerance: %v", err)
	}
}

func TestPerSKUProjection(t *testing.T) {
	payload := RawPayload{
		ShipmentGroups: []RawShipmentGroup{
			{
				Items: []RawItem{
					{
						SKU:     "SKU-1",
						Charges: []RawAmount{{Kind: "Principal", Amount: "20.00", Currency: "USD"}},
						Fees:    []RawAmount{{Kind: "commission", Amount: "-3.00", Currency: "USD"}},
					},
					{
						SKU:     "SKU-2",
						Charges: []RawAmount{{Kind: "Principal", Amount: "5.00", Currency: "USD"}},
					},
				},
			},
		},
	}

	breakdown, err := Decompose(payload, testOrderID(t), testFeeTable(t), 0.01, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	perSKU := breakdown.PerSKU()
	if len(perSKU) != 2 {
		t.Fatalf("expected 2 skus, got %d", len(perSKU))
	}

	sku1 := perSKU["SKU-1"]
	wantNet1, _ := money.New("17.00", "USD")
	if !sku1.Net.Equal(wantNet1) {
		t.Fatalf("sku-1 net = %s, want %s", sku1.Net, wantNet1)
	}

	sku2 := perSKU["SKU-2"]
	wantNet2, _ := money.New("5.00", "USD")
	if !sku2.Net.Equal(wantNet2) {
		t.Fatalf("sku-2 net = %s, want %s", sku2.Net, wantNet2)
	}
}
