package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/segment-cli/internal/model"
	"github.com/sells-group/segment-cli/internal/segment"
)

func monthly(year, month int, key, name string, seg model.Segment, profit, compliance, income, budget float64) model.MonthlySegment {
	return model.MonthlySegment{
		Year: year, Month: month, CustomerKey: key, Name: name, Segment: seg,
		Profit: profit, PercentCompliance: compliance, Income: income, BudgetProfit: budget,
	}
}

func fixture() *Dataset {
	return New(nil, &segment.Result{
		Customers: []model.CustomerSegment{
			{CustomerKey: "CLT-001", Name: "Customer 1", Segment: 1},
			{CustomerKey: "CLT-002", Name: "Customer 2", Segment: 4},
			{CustomerKey: "CLT-003", Name: "Customer 3", Segment: 4},
		},
		Monthly: []model.MonthlySegment{
			monthly(2024, 1, "CLT-001", "Customer 1", 1, -100, 20, 10, 50),
			monthly(2024, 1, "CLT-002", "Customer 2", 4, 500, 80, 900, 450),
			monthly(2024, 2, "CLT-001", "Customer 1", 1, -50, 40, 10, 25),
			monthly(2024, 2, "CLT-003", "Customer 3", 4, 700, 60, 1000, 600),
			monthly(2025, 6, "CLT-002", "Customer 2", 4, 900, 90, 1200, 800),
		},
	})
}

func TestNew_CopiesInputs(t *testing.T) {
	res := &segment.Result{Monthly: []model.MonthlySegment{monthly(2024, 1, "A", "a", 1, 1, 1, 1, 1)}}
	d := New(nil, res)
	res.Monthly[0].Profit = 999

	assert.Equal(t, 1.0, d.Monthly()[0].Profit)
	assert.NotEmpty(t, d.RunID())
	assert.False(t, d.BuiltAt().IsZero())

	got := d.Monthly()
	got[0].Profit = 42
	assert.Equal(t, 1.0, d.Monthly()[0].Profit)
}

func TestFilter(t *testing.T) {
	d := fixture()

	assert.Len(t, d.Filter(Query{Year: 2024}), 4)
	assert.Len(t, d.Filter(Query{Year: 2024, Month: 2}), 2)
	assert.Len(t, d.Filter(Query{Year: 2024, Segment: 4}), 2)
	assert.Len(t, d.Filter(Query{Year: 2025, Month: 6, Segment: 4}), 1)

	empty := d.Filter(Query{Year: 2030})
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestBubbles(t *testing.T) {
	d := fixture()

	got := d.Bubbles(Query{Year: 2024})
	require.Len(t, got, 2)

	assert.Equal(t, model.Segment(1), got[0].Segment)
	assert.Equal(t, -150.0, got[0].TotalProfit)
	assert.Equal(t, 30.0, got[0].AvgCompliance)
	assert.Equal(t, 1, got[0].Customers)

	assert.Equal(t, model.Segment(4), got[1].Segment)
	assert.Equal(t, 1200.0, got[1].TotalProfit)
	assert.Equal(t, 70.0, got[1].AvgCompliance)
	assert.Equal(t, 2, got[1].Customers)

	assert.Empty(t, d.Bubbles(Query{Year: 1999}))
}

func TestDrillDown(t *testing.T) {
	d := fixture()

	got := d.DrillDown(Query{Year: 2024, Segment: 1})
	require.Len(t, got, 1)
	assert.Equal(t, CustomerPoint{
		CustomerKey: "CLT-001", Name: "Customer 1", Segment: 1,
		Profit: -150, Compliance: 30, Income: 20, BudgetProfit: 75,
	}, got[0])
}

func TestCustomerTable(t *testing.T) {
	d := fixture()

	got := d.CustomerTable(Query{Year: 2024})
	require.Len(t, got, 3)
	assert.Equal(t, "CLT-003", got[0].CustomerKey)
	assert.Equal(t, "CLT-002", got[1].CustomerKey)
	assert.Equal(t, "CLT-001", got[2].CustomerKey)

	got = d.CustomerTable(Query{Year: 2024, Name: "  CUSTOMER 2 "})
	require.Len(t, got, 1)
	assert.Equal(t, "Customer 2", got[0].Name)
	assert.Equal(t, model.Segment(4), got[0].Segment)

	got = d.CustomerTable(Query{Year: 2024, Name: "   "})
	assert.Len(t, got, 3)

	assert.Empty(t, d.CustomerTable(Query{Year: 2024, Name: "nobody"}))
}

func TestOverviewAndPeriods(t *testing.T) {
	d := fixture()

	ov := d.Overview(Query{Year: 2024, Segment: 4})
	assert.Equal(t, Overview{Period: "All months 2024", Records: 4, Empty: false}, ov)

	ov = d.Overview(Query{Year: 2025, Month: 1})
	assert.Equal(t, "January 2025", ov.Period)
	assert.True(t, ov.Empty)

	p := d.Periods()
	assert.Equal(t, []int{2024, 2025}, p.Years)
	require.Len(t, p.Months, 13)
	assert.Equal(t, MonthOption{Value: 0, Label: "All months"}, p.Months[0])
	assert.Equal(t, MonthOption{Value: 12, Label: "December"}, p.Months[12])
}

func TestQueryValidate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Query{Year: 2024}.Validate())
	assert.Error(t, Query{}.Validate())
	assert.Error(t, Query{Year: 2024, Month: 13}.Validate())
	assert.Error(t, Query{Year: 2024, Segment: 9}.Validate())
}
