// Package utils provides presentation-boundary formatting helpers.
//
// The simulation itself accumulates plain float64 values; rounding happens
// only here, when numbers leave the engine for reports, CSV exports, or
// JSON payloads.
package utils

import (
	"github.com/shopspring/decimal"
)

// Round rounds a float to the given number of decimal places.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// RoundMoney rounds a monetary value to cents.
func RoundMoney(v float64) float64 {
	return Round(v, 2)
}

// FormatMoney formats a monetary value with two fixed decimal places.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatPct formats a percentage with one fixed decimal place.
func FormatPct(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

// FormatQty formats a position quantity with four fixed decimal places.
func FormatQty(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}
