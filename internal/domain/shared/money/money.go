package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// DefaultCurrency is used for all marketplace pricing.
const DefaultCurrency = "CAD"

// Money keeps amounts in integer cents to avoid floating point drift.
type Money struct {
	Cents    int64
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(cents int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Cents: cents, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(cents int64, currency string) Money {
	m, err := New(cents, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Cents wraps a cent amount in the default currency.
func Cents(cents int64) Money {
	return Money{Cents: cents, Currency: DefaultCurrency}
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Cents: 0, Currency: strings.ToUpper(currency)}
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Cents: m.Cents - other.Cents, Currency: m.Currency}, nil
}

// Multiply multiplies the amount by the provided factor.
func (m Money) Multiply(times int64) Money {
	return Money{Cents: m.Cents * times, Currency: m.Currency}
}

// Percent computes pct% of the amount, rounded half-up to the nearest cent.
// Rounding happens exactly once here; callers must not re-derive the result
// from other components.
func (m Money) Percent(pct int64) Money {
	raw := m.Cents * pct
	cents := raw / 100
	if raw%100 >= 50 {
		cents++
	}
	return Money{Cents: cents, Currency: m.Currency}
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Cents < 0
}

// String renders the amount with two decimal places, e.g. "128.00 CAD".
func (m Money) String() string {
	sign := ""
	cents := m.Cents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, m.Currency)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
