package models

import (
	"math"

	"github.com/Rhymond/go-money"
)

// DefaultCurrency is used when the provider omits a currency code.
const DefaultCurrency = "USD"

// MajorToMinor converts an amount in major currency units (e.g. dollars)
// to integer minor units (e.g. cents), rounding to the nearest minor unit.
// Conversion happens once, at the boundary; everything past this point
// works in int64 minor units.
func MajorToMinor(major float64, currencyCode string) int64 {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(DefaultCurrency)
	}
	return int64(math.Round(major * math.Pow10(currency.Fraction)))
}

// FormatMinor renders minor units for display, e.g. 1234 -> "$12.34".
func FormatMinor(minor int64, currencyCode string) string {
	if money.GetCurrency(currencyCode) == nil {
		currencyCode = DefaultCurrency
	}
	return money.New(minor, currencyCode).Display()
}
