package model

import "time"

// Transaction is one ledger row: a single customer's activity on a single day.
type Transaction struct {
	DateKey int       `json:"date_key"` // YYYYMMDD
	Date    time.Time `json:"date"`
	Year    int       `json:"year"`
	Month   int       `json:"month"`
	Day     int       `json:"day"`

	CustomerKey string `json:"customer_key"`
	Name        string `json:"name"`

	StoreKey         string `json:"store_key"`
	StoreDescription string `json:"store_description"`

	UnitCost          float64 `json:"unit_cost"`
	UnitPrice         float64 `json:"unit_price"`
	SalesQuantity     int     `json:"sales_quantity"`
	Income            float64 `json:"income"`
	Expense           float64 `json:"expense"`
	Profit            float64 `json:"profit"`
	BudgetProfit      float64 `json:"budget_profit"`
	PercentCompliance float64 `json:"percent_compliance"` // sampled proxy in [0,100]

	// Year-to-date running sums per (Year, CustomerKey).
	ProfitAccumulated       float64 `json:"profit_accumulated"`
	BudgetProfitAccumulated float64 `json:"budget_profit_accumulated"`
}

// DateKeyOf returns the integer YYYYMMDD key for t.
func DateKeyOf(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
