package ledger

import (
	"sort"

	"github.com/sells-group/segment-cli/internal/model"
)

// Accumulate sorts rows by (CustomerKey, Date) in place and fills the
// year-to-date running sums. Sums reset whenever the customer or the
// calendar year changes.
func Accumulate(rows []model.Transaction) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CustomerKey != rows[j].CustomerKey {
			return rows[i].CustomerKey < rows[j].CustomerKey
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	var (
		prevKey        string
		prevYear       int
		profit, budget float64
	)
	for i := range rows {
		r := &rows[i]
		if i == 0 || r.CustomerKey != prevKey || r.Year != prevYear {
			profit, budget = 0, 0
			prevKey, prevYear = r.CustomerKey, r.Year
		}
		profit += r.Profit
		budget += r.BudgetProfit
		r.ProfitAccumulated = profit
		r.BudgetProfitAccumulated = budget
	}
}
