package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimal places used for display rounding
const DisplayPlaces int32 = 2

// Currency represents a supported currency code
type Currency string

const (
	CurrencyNIS Currency = "NIS"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// ParseCurrency converts a currency code into a Currency
// Returns an error for codes outside the supported set
func ParseCurrency(code string) (Currency, error) {
	c := Currency(code)
	if !c.Valid() {
		return "", fmt.Errorf("invalid currency %q", code)
	}
	return c, nil
}

// Valid reports whether the currency is one of the supported codes
func (c Currency) Valid() bool {
	switch c {
	case CurrencyNIS, CurrencyUSD, CurrencyEUR:
		return true
	default:
		return false
	}
}

// Money is an immutable decimal amount tagged with a currency.
// The amount keeps full precision; rounding only happens in RoundForDisplay.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a Money value
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount, currency: currency}
}

// ZeroMoney returns a zero amount in the given currency
func ZeroMoney(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the unrounded amount
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency tag
func (m Money) Currency() Currency { return m.currency }

// Add returns m + other. Both values must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add %s to %s", other.currency, m.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// MultiplyByScalar returns m scaled by quantity
func (m Money) MultiplyByScalar(quantity decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(quantity), currency: m.currency}
}

// ConvertTo converts m into the target currency using the pairwise rate from rates.
// A conversion into the same currency never needs a rate.
func (m Money) ConvertTo(target Currency, rates RateTable) (Money, error) {
	if m.currency == target {
		return m, nil
	}
	rate, ok := rates.Rate(m.currency, target)
	if !ok {
		return Money{}, &ResolutionError{Kind: ErrMissingExchangeRate, From: m.currency, To: target}
	}
	return Money{amount: m.amount.Mul(rate), currency: target}, nil
}

// RoundForDisplay rounds the amount to DisplayPlaces (half away from zero)
func (m Money) RoundForDisplay() Money {
	return Money{amount: m.amount.Round(DisplayPlaces), currency: m.currency}
}

// Equal reports whether both values have the same currency and numerically equal amounts
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders the amount at display precision followed by the currency code
func (m Money) String() string {
	return m.amount.StringFixed(DisplayPlaces) + " " + string(m.currency)
}

type currencyPair struct {
	from Currency
	to   Currency
}

// RateTable holds pairwise exchange rates: 1 unit of "from" equals rate units of "to".
// The zero value is an empty table. Inverse pairs are never derived implicitly.
type RateTable struct {
	rates map[currencyPair]decimal.Decimal
}

// NewRateTable creates an empty rate table
func NewRateTable() RateTable {
	return RateTable{rates: make(map[currencyPair]decimal.Decimal)}
}

// With returns a copy of the table with the (from, to) rate set
func (t RateTable) With(from, to Currency, rate decimal.Decimal) RateTable {
	next := make(map[currencyPair]decimal.Decimal, len(t.rates)+1)
	for k, v := range t.rates {
		next[k] = v
	}
	next[currencyPair{from: from, to: to}] = rate
	return RateTable{rates: next}
}

// Rate returns the rate for converting from into to
func (t RateTable) Rate(from, to Currency) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	rate, ok := t.rates[currencyPair{from: from, to: to}]
	return rate, ok
}

// Len returns the number of explicit pairs in the table
func (t RateTable) Len() int { return len(t.rates) }

// Validate ensures every rate is a supported pair with a positive value
func (t RateTable) Validate() error {
	for pair, rate := range t.rates {
		if !pair.from.Valid() || !pair.to.Valid() {
			return fmt.Errorf("invalid rate pair %s->%s", pair.from, pair.to)
		}
		if rate.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("rate %s->%s must be positive", pair.from, pair.to)
		}
	}
	return nil
}
