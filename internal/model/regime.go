package model

// Regime classifies a calendar month by its synthetic profit bias.
type Regime string

const (
	RegimeStrongPositive Regime = "strong_positive"
	RegimeNegative       Regime = "negative"
	RegimeMixed          Regime = "mixed"
)

// RegimeParams is the normal distribution of profit per transaction for a regime.
type RegimeParams struct {
	Mean       float64
	Volatility float64
}
