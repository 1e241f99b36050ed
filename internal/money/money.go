// Package money rounds and formats monetary amounts for output.
package money

import "github.com/shopspring/decimal"

// Places is the number of decimal places kept in exported amounts.
const Places = 2

// Round rounds v half away from zero to Places decimals.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(Places).InexactFloat64()
}

// Format renders v with exactly Places decimals.
func Format(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(Places)
}

// Percent renders a percentage with one decimal, e.g. "87.5".
func Percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}
