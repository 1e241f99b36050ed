// Package store persists a segmentation run's tables to SQLite or Postgres.
package store

import (
	"context"

	"github.com/sells-group/segment-cli/internal/db"
	"github.com/sells-group/segment-cli/internal/model"
)

// Table names written by every sink.
const (
	LedgerTable    = "ledger_transactions"
	CustomersTable = "customer_segments"
	MonthlyTable   = "monthly_segments"
)

// Tables is the output of one run: the ledger and both segment tables.
type Tables struct {
	Ledger    []model.Transaction
	Customers []model.CustomerSegment
	Monthly   []model.MonthlySegment
}

// Counts returns the row count per table name.
func (t Tables) Counts() map[string]int {
	return map[string]int{
		LedgerTable:    len(t.Ledger),
		CustomersTable: len(t.Customers),
		MonthlyTable:   len(t.Monthly),
	}
}

// Sink defines the persistence interface for run tables.
type Sink interface {
	Migrate(ctx context.Context) error
	WriteTables(ctx context.Context, runID string, tables Tables) error
	Close() error
}

var (
	ledgerColumns = []string{
		"run_id", "date_key", "date", "year", "month", "day",
		"customer_key", "name", "store_key", "store_description",
		"unit_cost", "unit_price", "sales_quantity", "income", "expense",
		"profit", "budget_profit", "percent_compliance",
		"profit_accumulated", "budget_profit_accumulated",
	}
	customerColumns = []string{
		"run_id", "customer_key", "name", "profit", "budget_profit",
		"income", "percent_compliance", "segment",
	}
	monthlyColumns = []string{
		"run_id", "year", "month", "customer_key", "name", "profit",
		"budget_profit", "income", "percent_compliance", "segment",
	}
)

var (
	customerUpsert = db.Upsert{
		Table:        db.Table{Name: CustomersTable, Columns: customerColumns},
		ConflictKeys: []string{"run_id", "customer_key"},
	}
	monthlyUpsert = db.Upsert{
		Table:        db.Table{Name: MonthlyTable, Columns: monthlyColumns},
		ConflictKeys: []string{"run_id", "year", "month", "customer_key"},
	}
)

func ledgerRows(runID string, rows []model.Transaction) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			runID, r.DateKey, r.Date, r.Year, r.Month, r.Day,
			r.CustomerKey, r.Name, r.StoreKey, r.StoreDescription,
			r.UnitCost, r.UnitPrice, r.SalesQuantity, r.Income, r.Expense,
			r.Profit, r.BudgetProfit, r.PercentCompliance,
			r.ProfitAccumulated, r.BudgetProfitAccumulated,
		}
	}
	return out
}

func customerRows(runID string, rows []model.CustomerSegment) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			runID, r.CustomerKey, r.Name, r.Profit, r.BudgetProfit,
			r.Income, r.PercentCompliance, r.Segment.String(),
		}
	}
	return out
}

func monthlyRows(runID string, rows []model.MonthlySegment) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			runID, r.Year, r.Month, r.CustomerKey, r.Name, r.Profit,
			r.BudgetProfit, r.Income, r.PercentCompliance, r.Segment.String(),
		}
	}
	return out
}
