package dataset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/segment-cli/internal/model"
)

const allMonthsLabel = "All months"

// Query filters the monthly table. Year is required; Month 0 and a zero
// Segment mean "all". Name is a case-insensitive substring used only by
// CustomerTable.
type Query struct {
	Year    int
	Month   int
	Segment model.Segment
	Name    string
}

// Validate rejects queries that cannot match by construction.
func (q Query) Validate() error {
	if q.Year <= 0 {
		return eris.New("dataset: year is required")
	}
	if q.Month < 0 || q.Month > 12 {
		return eris.Errorf("dataset: month must be 0..12, got %d", q.Month)
	}
	if q.Segment != 0 && !q.Segment.Valid() {
		return eris.Errorf("dataset: invalid segment %d", int(q.Segment))
	}
	return nil
}

// PeriodLabel renders the period, e.g. "All months 2024" or "June 2025".
func (q Query) PeriodLabel() string {
	if q.Month == 0 {
		return fmt.Sprintf("%s %d", allMonthsLabel, q.Year)
	}
	return fmt.Sprintf("%s %d", time.Month(q.Month), q.Year)
}

// Filter returns the monthly rows matching year, month and segment. No
// matches is an empty slice, not an error.
func (d *Dataset) Filter(q Query) []model.MonthlySegment {
	out := make([]model.MonthlySegment, 0)
	for _, m := range d.monthly {
		if m.Year != q.Year {
			continue
		}
		if q.Month != 0 && m.Month != q.Month {
			continue
		}
		if q.Segment != 0 && m.Segment != q.Segment {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Bubble is one segment's aggregate for the overview chart.
type Bubble struct {
	Segment       model.Segment `json:"segment"`
	TotalProfit   float64       `json:"total_profit"`
	AvgCompliance float64       `json:"avg_compliance"`
	Customers     int           `json:"customers"`
}

// Bubbles groups the filtered rows by segment. Rows are first collapsed per
// customer (profit summed, compliance averaged over the customer's months)
// so each customer weighs equally in the segment's compliance mean.
func (d *Dataset) Bubbles(q Query) []Bubble {
	q.Name = ""
	perCustomer := d.DrillDown(q)

	acc := make(map[model.Segment]*Bubble)
	for _, c := range perCustomer {
		b, ok := acc[c.Segment]
		if !ok {
			b = &Bubble{Segment: c.Segment}
			acc[c.Segment] = b
		}
		b.TotalProfit += c.Profit
		b.AvgCompliance += c.Compliance
		b.Customers++
	}

	out := make([]Bubble, 0, len(acc))
	for _, b := range acc {
		b.AvgCompliance /= float64(b.Customers)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

// CustomerPoint is one customer's aggregate for the drill-down chart.
type CustomerPoint struct {
	CustomerKey  string        `json:"customer_key"`
	Name         string        `json:"name"`
	Segment      model.Segment `json:"segment"`
	Profit       float64       `json:"profit"`
	Compliance   float64       `json:"compliance"`
	Income       float64       `json:"income"`
	BudgetProfit float64       `json:"budget_profit"`
}

// DrillDown groups the filtered rows by customer: profit, income and
// budget summed, compliance averaged. Ordered by CustomerKey.
func (d *Dataset) DrillDown(q Query) []CustomerPoint {
	rows := d.Filter(q)

	index := make(map[string]int)
	counts := make([]int, 0)
	out := make([]CustomerPoint, 0)
	for _, m := range rows {
		i, ok := index[m.CustomerKey]
		if !ok {
			i = len(out)
			index[m.CustomerKey] = i
			out = append(out, CustomerPoint{CustomerKey: m.CustomerKey, Name: m.Name, Segment: m.Segment})
			counts = append(counts, 0)
		}
		out[i].Profit += m.Profit
		out[i].Income += m.Income
		out[i].BudgetProfit += m.BudgetProfit
		out[i].Compliance += m.PercentCompliance
		counts[i]++
	}
	for i := range out {
		out[i].Compliance /= float64(counts[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerKey < out[j].CustomerKey })
	return out
}

// TableRow is one line of the client-facing table.
type TableRow struct {
	CustomerKey string        `json:"customer_key"`
	Name        string        `json:"name"`
	Segment     model.Segment `json:"segment"`
	Profit      float64       `json:"profit"`
}

// CustomerTable returns per-customer profit for the filter, optionally
// narrowed by a case-insensitive substring of Name, sorted by profit
// descending.
func (d *Dataset) CustomerTable(q Query) []TableRow {
	needle := strings.TrimSpace(q.Name)
	fold := cases.Fold()
	if needle != "" {
		needle = fold.String(needle)
	}

	out := make([]TableRow, 0)
	for _, c := range d.DrillDown(q) {
		if needle != "" && !strings.Contains(fold.String(c.Name), needle) {
			continue
		}
		out = append(out, TableRow{CustomerKey: c.CustomerKey, Name: c.Name, Segment: c.Segment, Profit: c.Profit})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Profit != out[j].Profit {
			return out[i].Profit > out[j].Profit
		}
		return out[i].CustomerKey < out[j].CustomerKey
	})
	return out
}

// Overview summarises a filter for status lines.
type Overview struct {
	Period  string `json:"period"`
	Records int    `json:"records"`
	Empty   bool   `json:"empty"`
}

// Overview counts the monthly rows matching year and month.
func (d *Dataset) Overview(q Query) Overview {
	q.Segment = 0
	n := len(d.Filter(q))
	return Overview{Period: q.PeriodLabel(), Records: n, Empty: n == 0}
}
