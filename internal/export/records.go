package export

import (
	"github.com/sells-group/segment-cli/internal/ledger"
	"github.com/sells-group/segment-cli/internal/model"
	"github.com/sells-group/segment-cli/internal/money"
)

// Parquet row layouts. Amounts are rounded to cents on the way out.

type ledgerRecord struct {
	RunID                   string  `parquet:"run_id"`
	DateKey                 int32   `parquet:"date_key"`
	Date                    string  `parquet:"date"`
	Year                    int32   `parquet:"year"`
	Month                   int32   `parquet:"month"`
	Day                     int32   `parquet:"day"`
	CustomerKey             string  `parquet:"customer_key"`
	Name                    string  `parquet:"name"`
	StoreKey                string  `parquet:"store_key"`
	StoreDescription        string  `parquet:"store_description"`
	UnitCost                float64 `parquet:"unit_cost"`
	UnitPrice               float64 `parquet:"unit_price"`
	SalesQuantity           int32   `parquet:"sales_quantity"`
	Income                  float64 `parquet:"income"`
	Expense                 float64 `parquet:"expense"`
	Profit                  float64 `parquet:"profit"`
	BudgetProfit            float64 `parquet:"budget_profit"`
	PercentCompliance       float64 `parquet:"percent_compliance"`
	ProfitAccumulated       float64 `parquet:"profit_accumulated"`
	BudgetProfitAccumulated float64 `parquet:"budget_profit_accumulated"`
}

type customerRecord struct {
	RunID             string  `parquet:"run_id"`
	CustomerKey       string  `parquet:"customer_key"`
	Name              string  `parquet:"name"`
	Profit            float64 `parquet:"profit"`
	BudgetProfit      float64 `parquet:"budget_profit"`
	Income            float64 `parquet:"income"`
	PercentCompliance float64 `parquet:"percent_compliance"`
	Segment           string  `parquet:"segment"`
}

type monthlyRecord struct {
	RunID             string  `parquet:"run_id"`
	Year              int32   `parquet:"year"`
	Month             int32   `parquet:"month"`
	CustomerKey       string  `parquet:"customer_key"`
	Name              string  `parquet:"name"`
	Profit            float64 `parquet:"profit"`
	BudgetProfit      float64 `parquet:"budget_profit"`
	Income            float64 `parquet:"income"`
	PercentCompliance float64 `parquet:"percent_compliance"`
	Segment           string  `parquet:"segment"`
}

func ledgerRecords(runID string, rows []model.Transaction) []ledgerRecord {
	out := make([]ledgerRecord, len(rows))
	for i, r := range rows {
		out[i] = ledgerRecord{
			RunID:                   runID,
			DateKey:                 int32(r.DateKey),
			Date:                    r.Date.Format(ledger.DateLayout),
			Year:                    int32(r.Year),
			Month:                   int32(r.Month),
			Day:                     int32(r.Day),
			CustomerKey:             r.CustomerKey,
			Name:                    r.Name,
			StoreKey:                r.StoreKey,
			StoreDescription:        r.StoreDescription,
			UnitCost:                money.Round(r.UnitCost),
			UnitPrice:               money.Round(r.UnitPrice),
			SalesQuantity:           int32(r.SalesQuantity),
			Income:                  money.Round(r.Income),
			Expense:                 money.Round(r.Expense),
			Profit:                  money.Round(r.Profit),
			BudgetProfit:            money.Round(r.BudgetProfit),
			PercentCompliance:       money.Round(r.PercentCompliance),
			ProfitAccumulated:       money.Round(r.ProfitAccumulated),
			BudgetProfitAccumulated: money.Round(r.BudgetProfitAccumulated),
		}
	}
	return out
}

func customerRecords(runID string, rows []model.CustomerSegment) []customerRecord {
	out := make([]customerRecord, len(rows))
	for i, r := range rows {
		out[i] = customerRecord{
			RunID:             runID,
			CustomerKey:       r.CustomerKey,
			Name:              r.Name,
			Profit:            money.Round(r.Profit),
			BudgetProfit:      money.Round(r.BudgetProfit),
			Income:            money.Round(r.Income),
			PercentCompliance: money.Round(r.PercentCompliance),
			Segment:           r.Segment.String(),
		}
	}
	return out
}

func monthlyRecords(runID string, rows []model.MonthlySegment) []monthlyRecord {
	out := make([]monthlyRecord, len(rows))
	for i, r := range rows {
		out[i] = monthlyRecord{
			RunID:             runID,
			Year:              int32(r.Year),
			Month:             int32(r.Month),
			CustomerKey:       r.CustomerKey,
			Name:              r.Name,
			Profit:            money.Round(r.Profit),
			BudgetProfit:      money.Round(r.BudgetProfit),
			Income:            money.Round(r.Income),
			PercentCompliance: money.Round(r.PercentCompliance),
			Segment:           r.Segment.String(),
		}
	}
	return out
}
