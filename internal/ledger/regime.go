package ledger

import (
	"time"

	"github.com/sells-group/segment-cli/internal/model"
)

// regimeParams holds the profit-per-transaction distribution for each regime.
var regimeParams = map[model.Regime]model.RegimeParams{
	model.RegimeStrongPositive: {Mean: 8000, Volatility: 1000},
	model.RegimeNegative:       {Mean: -5000, Volatility: 2000},
	model.RegimeMixed:          {Mean: 1000, Volatility: 6000},
}

// RegimeFor classifies a month. June and December are high season,
// January and February low season, everything else mixed.
func RegimeFor(m time.Month) model.Regime {
	switch m {
	case time.June, time.December:
		return model.RegimeStrongPositive
	case time.January, time.February:
		return model.RegimeNegative
	default:
		return model.RegimeMixed
	}
}

// ParamsFor returns the distribution parameters of a regime.
func ParamsFor(r model.Regime) model.RegimeParams {
	return regimeParams[r]
}
