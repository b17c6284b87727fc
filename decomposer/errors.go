package decomposer

import "fmt"

// MalformedPayloadError is raised when the upstream payload is missing
// required structure (no shipment groups, an item with no SKU, etc).
type MalformedPayloadError struct {
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return "decomposer: malformed payload: " + e.Reason
}

// MixedCurrencyError is raised when principal charges within a single
// order carry more than one currency.
type MixedCurrencyError struct {
	First string
	Other string
}

func (e *MixedCurrencyError) Error() string {
	return fmt.Sprintf("decomposer: mixed currency in order: %s vs %s", e.First, e.Other)
}

// BalanceViolationError is raised when the itemized net (principal +
// Σlines) differs from the summed upstream ExpectedTotal of the items by
// more than the tolerance.
type BalanceViolationError struct {
	Principal   string
	LinesTotal  string
	NetExpected string
	NetComputed string
	Delta       float64
	Tolerance   float64
}

func (e *BalanceViolationError) Error() string {
	return fmt.Sprintf(
		"decomposer: balance violation: principal=%s lines=%s computed_net=%s delta=%.4f tolerance=%.4f",
		e.Principal, e.LinesTotal, e.NetComputed, e.Delta, e.Tolerance,
	)
}
