// Package ledger generates the synthetic daily transaction ledger.
package ledger

import (
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/segment-cli/internal/model"
)

const (
	// PriceFloor is the symbolic unit price used when the sampled margin
	// would push the price to zero or below.
	PriceFloor = 1.0

	minQuantity = 1
	maxQuantity = 50 // exclusive
	minUnitCost = 10.0
	maxUnitCost = 100.0

	budgetLow  = 0.9
	budgetHigh = 1.2
	lossBudget = 0.5
)

// Ledger is the immutable result of a generation run. Rows are ordered by
// (CustomerKey, Date).
type Ledger struct {
	rows      []model.Transaction
	customers []Customer
	stores    []Store
}

// Rows returns the ledger rows. Callers must not modify the returned slice.
func (l *Ledger) Rows() []model.Transaction { return l.rows }

// Len returns the number of rows.
func (l *Ledger) Len() int { return len(l.rows) }

// Customers returns the customer identity pool.
func (l *Ledger) Customers() []Customer { return l.customers }

// Stores returns the store identity pool.
func (l *Ledger) Stores() []Store { return l.stores }

// Build generates the full ledger for cfg. The same configuration always
// yields the same rows.
func Build(cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	customers := newCustomers(cfg.Customers)
	stores := newStores(cfg.Stores, rng)

	active := cfg.ActivePerDay()
	rows := make([]model.Transaction, 0, cfg.Days()*active)

	last := truncateDay(cfg.End)
	for day := truncateDay(cfg.Start); !day.After(last); day = day.AddDate(0, 0, 1) {
		params := ParamsFor(RegimeFor(day.Month()))

		// Partial Fisher-Yates: the first `active` entries are a sample
		// without replacement.
		perm := rng.Perm(cfg.Customers)
		for _, idx := range perm[:active] {
			store := stores[rng.IntN(len(stores))]
			rows = append(rows, sampleRow(rng, day, customers[idx], store, params))
		}
	}

	Accumulate(rows)

	zap.L().Info("ledger: generated",
		zap.Int("rows", len(rows)),
		zap.Int("days", cfg.Days()),
		zap.Int("customers", cfg.Customers),
		zap.Int("active_per_day", active),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Ledger{rows: rows, customers: customers, stores: stores}, nil
}

// FromRows wraps pre-built rows in a Ledger, sorting them and recomputing
// the running totals. Useful for constructing small synthetic ledgers.
func FromRows(rows []model.Transaction) *Ledger {
	cp := make([]model.Transaction, len(rows))
	copy(cp, rows)
	Accumulate(cp)

	seen := make(map[string]bool)
	var customers []Customer
	for _, r := range cp {
		if !seen[r.CustomerKey] {
			seen[r.CustomerKey] = true
			customers = append(customers, Customer{Key: r.CustomerKey, Name: r.Name})
		}
	}
	return &Ledger{rows: cp, customers: customers}
}

func sampleRow(rng *rand.Rand, day time.Time, c Customer, s Store, p model.RegimeParams) model.Transaction {
	qty := minQuantity + rng.IntN(maxQuantity-minQuantity)
	unitCost := minUnitCost + rng.Float64()*(maxUnitCost-minUnitCost)

	margin := (p.Mean + rng.NormFloat64()*p.Volatility) / float64(qty)
	unitPrice := unitCost + margin
	if unitPrice <= 0 {
		unitPrice = PriceFloor
	}

	income := unitPrice * float64(qty)
	expense := unitCost * float64(qty)
	profit := income - expense

	var budget float64
	if profit > 0 {
		budget = profit * (budgetLow + rng.Float64()*(budgetHigh-budgetLow))
	} else {
		budget = math.Abs(profit) * lossBudget
	}

	return model.Transaction{
		DateKey:           model.DateKeyOf(day),
		Date:              day,
		Year:              day.Year(),
		Month:             int(day.Month()),
		Day:               day.Day(),
		CustomerKey:       c.Key,
		Name:              c.Name,
		StoreKey:          s.Key,
		StoreDescription:  s.Description,
		UnitCost:          unitCost,
		UnitPrice:         unitPrice,
		SalesQuantity:     qty,
		Income:            income,
		Expense:           expense,
		Profit:            profit,
		BudgetProfit:      budget,
		PercentCompliance: sampleCompliance(rng, profit, budget),
	}
}

// sampleCompliance draws the per-row compliance proxy. It depends only on
// the signs of profit and budget, never on their ratio.
func sampleCompliance(rng *rand.Rand, profit, budget float64) float64 {
	switch {
	case budget == 0:
		return rng.Float64() * 100
	case profit >= 0:
		return 50 + rng.Float64()*50
	default:
		return rng.Float64() * 50
	}
}
