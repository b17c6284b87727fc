package money

// FeeKind is a closed enumeration of known fee kinds. Each kind has a
// static mapping to an AccountMapping sourced from a configuration table;
// that table is authoritative and immutable at runtime.
type FeeKind string

const (
	FeeFulfillment      FeeKind = "fulfillment"
	FeeCommission       FeeKind = "commission"
	FeeRefundCommission FeeKind = "refund_commission"
	FeeShipping         FeeKind = "shipping"
	FeePromoRebate      FeeKind = "promo_rebate"
	FeeStorage          FeeKind = "storage"
)

// KnownFeeKinds lists every member of the closed taxonomy.
var KnownFeeKinds = []FeeKind{
	FeeFulfillment,
	FeeCommission,
	FeeRefundCommission,
	FeeShipping,
	FeePromoRebate,
	FeeStorage,
}

// AccountMapping is the (account_id, analytic_account_id) pair a fee or
// charge line is posted against.
type AccountMapping struct {
	AccountID         string
	AnalyticAccountID string
}

// FeeTable is the frozen fee-kind-to-account mapping. It is loaded once at
// process start and never mutated; every component that needs it receives
// a copy of the value, never a pointer into a shared mutable map.
type FeeTable struct {
	mappings map[FeeKind]AccountMapping

	// PrincipalAccount is the fallback target for payment-method fees.
	PrincipalAccount AccountMapping
	// CommissionAccount is the fallback target for shipping-chargeback
	// and shipping-hb line kinds.
	CommissionAccount AccountMapping
}

// NewFeeTable builds a FeeTable from a plain map, validating that every
// known fee kind has a mapping.
func NewFeeTable(mappings map[FeeKind]AccountMapping, principal, commission AccountMapping) (FeeTable, error) {
	for _, kind := range KnownFeeKinds {
		if _, ok := mappings[kind]; !ok {
			return FeeTable{}, &UnknownFeeKindError{Kind: kind, Reason: "no mapping configured for known fee kind"}
		}
	}
	cp := make(map[FeeKind]AccountMapping, len(mappings))
	for k, v := range mappings {
		cp[k] = v
	}
	return FeeTable{mappings: cp, PrincipalAccount: principal, CommissionAccount: commission}, nil
}

// Resolve returns the account mapping for a fee kind plus the two
// documented fallbacks: payment-method fees route to the principal
// account; shipping-chargeback and shipping-hb route to the commission
// account. Any other unmapped, non-zero kind is reported as unknown.
func (t FeeTable) Resolve(rawKind string) (AccountMapping, bool) {
	switch rawKind {
	case "payment_method_fee":
		return t.PrincipalAccount, true
	case "shipping_chargeback", "shipping_hb":
		return t.CommissionAccount, true
	}
	if mapping, ok := t.mappings[FeeKind(rawKind)]; ok {
		return mapping, true
	}
	return AccountMapping{}, false
}

// UnknownFeeKindError is raised when a non-zero amount carries a fee kind
// with no account mapping and no documented fallback.
type UnknownFeeKindError struct {
	Kind   FeeKind
	Reason string
}

func (e *UnknownFeeKindError) Error() string {
	return "money: unknown fee kind " + string(e.Kind) + ": " + e.Reason
}
