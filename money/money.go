// Package money implements the immutable value model shared by every
// component of the order sync engine: exact-decimal money, marketplace
// order identifiers, execution identifiers, and the fee taxonomy.
//
// Nothing in this package touches I/O. Money is exact decimal throughout;
// floating point never appears in an amount.
package money

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount tagged with an ISO-4217 currency code.
// Equality is value-equality: two Money values are equal iff their
// currencies match and their amounts compare equal.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// New builds a Money value from a decimal string, e.g. "198.83".
func New(amountStr, currency string) (Money, error) {
	d, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Money{}, fmt.Errorf("money: invalid amount %q: %w", amountStr, err)
	}
	return Money{amount: d, currency: currency}, nil
}

// FromDecimal wraps an already-parsed decimal.
func FromDecimal(d decimal.Decimal, currency string) Money {
	return Money{amount: d, currency: currency}
}

// Amount returns the underlying decimal.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the ISO-4217 code.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Negative reports whether the amount is strictly less than zero.
func (m Money) Negative() bool { return m.amount.IsNegative() }

// Add returns m + other. If either operand is the zero-value placeholder
// (no currency yet), the result takes the other's currency; otherwise both
// must share a currency, or Add panics — money arithmetic never silently
// mixes currencies; callers that might cross currencies must check first
// via SameCurrency.
func (m Money) Add(other Money) Money {
	if m.currency == "" {
		return Money{amount: m.amount.Add(other.amount), currency: other.currency}
	}
	if other.currency == "" {
		return Money{amount: m.amount.Add(other.amount), currency: m.currency}
	}
	if m.currency != other.currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", m.currency, other.currency))
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// SameCurrency reports whether both values carry the same currency code,
// or one of them is the zero-value placeholder (no currency assigned yet).
func (m Money) SameCurrency(other Money) bool {
	return m.currency == "" || other.currency == "" || m.currency == other.currency
}

// Equal is value-equality: same currency, same amount.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return m.Add(other.Neg())
}

// Div divides the amount by a positive integer quantity, used to derive a
// per-unit price from a line total.
func (m Money) Div(quantity int64) Money {
	return Money{amount: m.amount.Div(decimal.NewFromInt(quantity)), currency: m.currency}
}

// AbsDiff returns the absolute difference between two amounts in the same
// currency, as a float64 — used only for tolerance comparisons against a
// configured threshold, never for accounting output.
func (m Money) AbsDiff(other Money) float64 {
	diff := m.amount.Sub(other.amount)
	f, _ := diff.Abs().Float64()
	return f
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// moneyWire is the on-the-wire shape: the amount travels as a decimal
// string so a JSON decoder never round-trips it through float64.
type moneyWire struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount as a decimal string, never a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyWire{Amount: m.amount.String(), Currency: m.currency})
}

// UnmarshalJSON re-parses the decimal string form.
func (m *Money) UnmarshalJSON(data []byte) error {
	var wire moneyWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d, err := decimal.NewFromString(wire.Amount)
	if err != nil {
		return fmt.Errorf("money: invalid amount %q: %w", wire.Amount, err)
	}
	m.amount = d
	m.currency = wire.Currency
	return nil
}

var orderIDPattern = regexp.MustCompile(`^\d{3}-\d{7}-\d{7}$`)

// OrderID is an opaque marketplace order identifier validated against the
// marketplace format DDD-DDDDDDD-DDDDDDD.
type OrderID string

// ParseOrderID validates and wraps a raw order id string.
func ParseOrderID(raw string) (OrderID, error) {
	if !orderIDPattern.MatchString(raw) {
		return "", fmt.Errorf("money: invalid order id format %q", raw)
	}
	return OrderID(raw), nil
}

func (o OrderID) String() string { return string(o) }
