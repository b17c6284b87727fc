package decomposer

import (
	"fmt"
	"time"

	"github.com/konozy/ordersync/money"
)

// Decompose turns a raw marketplace financial-event payload into a
// balance-checked FinancialBreakdown. orderID is used only for error
// context. tolerance is the permitted drift between the itemized sum and
// any upstream-reported settlement total, in major currency units. warn,
// if non-nil, is invoked synchronously for each dropped unknown-fee-kind
// line; Decompose never blocks on it, preserving the CPU-only contract.
func Decompose(payload RawPayload, orderID money.OrderID, table money.FeeTable, tolerance float64, warn func(format string, args ...interface{})) (FinancialBreakdown, error) {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	if len(payload.ShipmentGroups) == 0 {
		return FinancialBreakdown{}, &MalformedPayloadError{Reason: fmt.Sprintf("order %s: no shipment groups", orderID)}
	}

	var (
		postedDate      time.Time
		havePostedDate  bool
		currency        string
		principal       = money.Money{}
		principalLines  []FinancialLine
		lines           []FinancialLine
		expectedTotal   = money.Money{}
		haveExpectedSum bool
	)

	for _, group := range payload.ShipmentGroups {
		if !havePostedDate && group.PostedDate != "" {
			t, err := time.Parse(time.RFC3339, group.PostedDate)
			if err != nil {
				return FinancialBreakdown{}, &MalformedPayloadError{Reason: fmt.Sprintf("order %s: invalid posted_date %q: %v", orderID, group.PostedDate, err)}
			}
			postedDate = t
			havePostedDate = true
		} else if havePostedDate && group.PostedDate != "" {
			t, err := time.Parse(time.RFC3339, group.PostedDate)
			if err == nil && t.Before(postedDate) {
				postedDate = t
			}
		}

		for _, item := range group.Items {
			if item.SKU == "" {
				return FinancialBreakdown{}, &MalformedPayloadError{Reason: fmt.Sprintf("order %s: item with no sku", orderID)}
			}

			for _, charge := range item.Charges {
				amt, err := money.New(charge.Amount, charge.Currency)
				if err != nil {
					return FinancialBreakdown{}, &MalformedPayloadError{Reason: fmt.Sprintf("order %s sku %s: %v", orderID, item.SKU, err)}
				}

				if charge.Kind == "Principal" {
					if !amt.IsZero() {
						if currency == "" {
							currency = charge.Currency
						} else if charge.Currency != currency {
							return FinancialBreakdown{}, &MixedCurrencyError{First: currency, Other: charge.Currency}
						}
					}
					if principal.Currency() == "" && currency != "" {
						principal = money.Zero(currency)
					}
					if principal.Currency() != "" {
						principal = principal.Add(amt)
					}
					if !amt.IsZero() {
						principalLines = append(principalLines, FinancialLine{
							LineType: LinePrincipal, Amount: amt, Description: charge.Description, SKU: item.SKU,
						})
					}
					continue
				}

				line, ok := resolveLine(LineCharge, charge, item.SKU, table, warn)
				if !ok {
					continue
				}
				if !line.Amount.IsZero() {
					lines = append(lines, line)
				}
			}

			for _, fee := range item.Fees {
				line, ok := resolveLine(LineFee, fee, item.SKU, table, warn)
				if !ok {
					continue
				}
				if !line.Amount.IsZero() {
					lines = append(lines, line)
				}
			}

			for _, promo := range item.Promotions {
				line, ok := resolveLine(LinePromo, promo, item.SKU, table, warn)
				if !ok {
					continue
				}
				if !line.Amount.IsZero() {
					lines = append(lines, line)
				}
			}

			if item.ExpectedTotal != "" {
				t, err := money.New(item.ExpectedTotal, currency)
				if err != nil {
					return FinancialBreakdown{}, &MalformedPayloadError{Reason: fmt.Sprintf("order %s sku %s: invalid expected_total: %v", orderID, item.SKU, err)}
				}
				if !haveExpectedSum {
					expectedTotal = money.Zero(currency)
					haveExpectedSum = true
				}
				expectedTotal = expectedTotal.Add(t)
			}
		}
	}

	if currency == "" {
		return FinancialBreakdown{}, &MalformedPayloadError{Reason: fmt.Sprintf("order %s: no principal charge found", orderID)}
	}

	netProceeds := principal
	for _, line := range lines {
		netProceeds = netProceeds.Add(line.Amount)
	}

	if haveExpectedSum {
		if delta := netProceeds.AbsDiff(expectedTotal); delta > tolerance {
			return FinancialBreakdown{}, &BalanceViolationError{
				Principal:   principal.String(),
				LinesTotal:  netProceeds.Sub(principal).String(),
				NetExpected: expectedTotal.String(),
				NetComputed: netProceeds.String(),
				Delta:       delta,
				Tolerance:   tolerance,
			}
		}
	}

	return FinancialBreakdown{
		Principal:      principal,
		PrincipalLines: principalLines,
		Lines:          lines,
		NetProceeds:    netProceeds,
		PostedDate:     postedDate,
	}, nil
}

// resolveLine maps a raw amount to a FinancialLine via the fee table's two
// documented fallbacks. Amounts of exactly zero are dropped. Unknown
// non-zero kinds are dropped too, after a warning — the Balance check
// (against an upstream-reported total, when supplied) catches any
// material omission this leaves behind.
func resolveLine(lineType LineType, raw RawAmount, sku string, table money.FeeTable, warn func(string, ...interface{})) (FinancialLine, bool) {
	amt, err := money.New(raw.Amount, raw.Currency)
	if err != nil {
		return FinancialLine{}, false
	}
	if amt.IsZero() {
		return FinancialLine{}, false
	}

	mapping, ok := table.Resolve(raw.Kind)
	if !ok {
		warn("decomposer: dropping unknown fee kind %q for sku %s amount %s", raw.Kind, sku, amt.String())
		return FinancialLine{}, false
	}

	return FinancialLine{
		LineType:    lineType,
		Amount:      amt,
		Description: raw.Description,
		SKU:         sku,
		FeeKind:     raw.Kind,
		Account:     mapping,
	}, true
}
