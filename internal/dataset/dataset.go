// Package dataset holds the immutable pipeline output tables and the read
// queries the presentation layer runs against them.
package dataset

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/segment-cli/internal/model"
	"github.com/sells-group/segment-cli/internal/segment"
)

// Dataset is built once and never mutated, so it is safe for concurrent
// readers without locking.
type Dataset struct {
	runID     string
	builtAt   time.Time
	ledger    []model.Transaction
	customers []model.CustomerSegment
	monthly   []model.MonthlySegment
}

// New wraps pipeline outputs. Slices are copied so later changes by the
// caller cannot leak in.
func New(ledger []model.Transaction, res *segment.Result) *Dataset {
	d := &Dataset{
		runID:   uuid.New().String(),
		builtAt: time.Now().UTC(),
	}
	d.ledger = append([]model.Transaction(nil), ledger...)
	if res != nil {
		d.customers = append([]model.CustomerSegment(nil), res.Customers...)
		d.monthly = append([]model.MonthlySegment(nil), res.Monthly...)
	}
	return d
}

// RunID identifies the pipeline build this dataset came from.
func (d *Dataset) RunID() string { return d.runID }

// BuiltAt is the UTC time the dataset was assembled.
func (d *Dataset) BuiltAt() time.Time { return d.builtAt }

// Ledger returns a copy of the transaction rows.
func (d *Dataset) Ledger() []model.Transaction {
	return append([]model.Transaction(nil), d.ledger...)
}

// Customers returns a copy of the lifetime segment summary.
func (d *Dataset) Customers() []model.CustomerSegment {
	return append([]model.CustomerSegment(nil), d.customers...)
}

// Monthly returns a copy of the monthly segmented summary.
func (d *Dataset) Monthly() []model.MonthlySegment {
	return append([]model.MonthlySegment(nil), d.monthly...)
}

// Periods lists the years and months present in the monthly table.
type Periods struct {
	Years  []int         `json:"years"`
	Months []MonthOption `json:"months"`
}

// MonthOption is one month filter choice. Value 0 means all months.
type MonthOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Periods returns the filter options: every year with data, and the month
// list headed by the "All months" option.
func (d *Dataset) Periods() Periods {
	years := make(map[int]bool)
	for _, m := range d.monthly {
		years[m.Year] = true
	}
	p := Periods{Years: make([]int, 0, len(years))}
	for y := range years {
		p.Years = append(p.Years, y)
	}
	sort.Ints(p.Years)

	p.Months = append(p.Months, MonthOption{Value: 0, Label: allMonthsLabel})
	for m := time.January; m <= time.December; m++ {
		p.Months = append(p.Months, MonthOption{Value: int(m), Label: m.String()})
	}
	return p
}
