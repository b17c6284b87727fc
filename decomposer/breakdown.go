// Package decomposer turns a raw marketplace financial-event payload into
// a normalized, balance-checked FinancialBreakdown. It is pure and
// CPU-only: no I/O, no suspension points.
package decomposer

import (
	"time"

	"github.com/konozy/ordersync/money"
)

// LineType constrains the sign convention of a FinancialLine: fees and
// promos are negative, charges and principal are positive.
type LineType string

const (
	LineFee       LineType = "fee"
	LineCharge    LineType = "charge"
	LinePromo     LineType = "promo"
	LinePrincipal LineType = "principal"
)

// FinancialLine is one entry of a breakdown: a signed amount attributed to
// a SKU, optionally tagged with the fee kind and account mapping it was
// resolved against.
type FinancialLine struct {
	LineType    LineType
	Amount      money.Money
	Description string
	SKU         string
	FeeKind     string // raw upstream kind string, empty for principal/charge
	Account     money.AccountMapping
}

// FinancialBreakdown is the pure domain output of decomposition. It
// carries no ERP identifiers. Invariant (Balance):
//
//	principal.amount + Σ lines.amount = net_proceeds.amount
//
// within the configured tolerance.
//
// PrincipalLines holds the per-item principal contributions that make up
// Principal; they are tracked separately from Lines because the Balance
// invariant sums Principal once, not per line, but the ERP projector's
// per-SKU view still needs each item's share of it.
type FinancialBreakdown struct {
	Principal      money.Money
	PrincipalLines []FinancialLine
	Lines          []FinancialLine
	NetProceeds    money.Money
	PostedDate     time.Time
}

// SKUTotals is the per-SKU projection used by the ERP projector to attach
// each revenue line to the correct sale-order line.
type SKUTotals struct {
	Principal  money.Money
	Charges    money.Money
	Fees       money.Money
	Promos     money.Money
	TotalSales money.Money // equals Principal; kept distinct for readability at call sites
	Net        money.Money
}

// PerSKU projects the breakdown into a map keyed by SKU using the same
// sign conventions as the breakdown itself. Lines with no SKU (e.g.
// order-level adjustments not attributable to one item) are excluded —
// they have no natural per-SKU home and remain visible only in the
// aggregate breakdown.
func (b FinancialBreakdown) PerSKU() map[string]SKUTotals {
	out := make(map[string]SKUTotals)

	get := func(sku, currency string) SKUTotals {
		t, ok := out[sku]
		if !ok {
			t = SKUTotals{
				Principal:  money.Zero(currency),
				Charges:    money.Zero(currency),
				Fees:       money.Zero(currency),
				Promos:     money.Zero(currency),
				TotalSales: money.Zero(currency),
				Net:        money.Zero(currency),
			}
		}
		return t
	}

	for _, line := range b.PrincipalLines {
		if line.SKU == "" {
			continue
		}
		t := get(line.SKU, line.Amount.Currency())
		t.Principal = t.Principal.Add(line.Amount)
		t.TotalSales = t.TotalSales.Add(line.Amount)
		t.Net = t.Net.Add(line.Amount)
		out[line.SKU] = t
	}

	for _, line := range b.Lines {
		if line.SKU == "" {
			continue
		}
		t := get(line.SKU, line.Amount.Currency())
		switch line.LineType {
		case LineCharge:
			t.Charges = t.Charges.Add(line.Amount)
		case LineFee:
			t.Fees = t.Fees.Add(line.Amount)
		case LinePromo:
			t.Promos = t.Promos.Add(line.Amount)
		}
		t.Net = t.Net.Add(line.Amount)
		out[line.SKU] = t
	}

	return out
}
