// Package segment derives lifetime customer segments from the ledger and
// projects them onto monthly summaries.
package segment

import (
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/segment-cli/internal/model"
)

var (
	// ErrEmptyPopulation means the ledger holds no customers.
	ErrEmptyPopulation = eris.New("segment: no customers to cluster")
	// ErrTooFewCustomers means there are fewer customers than segments.
	ErrTooFewCustomers = eris.New("segment: fewer customers than segments")
	// ErrDegenerateFeatures means the customers collapse onto fewer
	// distinct feature points than segments.
	ErrDegenerateFeatures = eris.New("segment: fewer distinct feature points than segments")
	// ErrSegmentLookupMiss means a monthly row references a customer with
	// no lifetime segment. The two tables were not derived from the same
	// ledger.
	ErrSegmentLookupMiss = eris.New("segment: customer missing from segment lookup")
)

// Result holds both derived tables.
type Result struct {
	Customers []model.CustomerSegment // ordered by CustomerKey
	Monthly   []model.MonthlySegment  // ordered by (Year, Month, CustomerKey)
}

// Lookup maps CustomerKey to its lifetime segment.
type Lookup map[string]model.Segment

// Build runs the full segmentation over ledger rows.
func Build(rows []model.Transaction, cfg KMeansConfig) (*Result, error) {
	start := time.Now()

	customers := Summarize(rows)
	if err := Assign(customers, cfg); err != nil {
		return nil, err
	}

	monthly, err := Monthly(rows, LookupOf(customers))
	if err != nil {
		return nil, err
	}

	zap.L().Info("segment: built",
		zap.Int("customers", len(customers)),
		zap.Int("monthly_rows", len(monthly)),
		zap.Any("segment_sizes", sizes(customers)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Customers: customers, Monthly: monthly}, nil
}

// Summarize aggregates the ledger per customer: lifetime sums of profit,
// budget and income, the first-seen name, and the lifetime compliance
// ratio. Segments are left unassigned.
func Summarize(rows []model.Transaction) []model.CustomerSegment {
	index := make(map[string]int)
	var out []model.CustomerSegment
	for _, r := range rows {
		i, ok := index[r.CustomerKey]
		if !ok {
			i = len(out)
			index[r.CustomerKey] = i
			out = append(out, model.CustomerSegment{CustomerKey: r.CustomerKey, Name: r.Name})
		}
		out[i].Profit += r.Profit
		out[i].BudgetProfit += r.BudgetProfit
		out[i].Income += r.Income
	}

	for i := range out {
		out[i].PercentCompliance = LifetimeCompliance(out[i].Profit, out[i].BudgetProfit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerKey < out[j].CustomerKey })
	return out
}

// LifetimeCompliance is profit/budget as a percentage, clamped below at
// zero. A zero budget yields zero.
func LifetimeCompliance(profit, budget float64) float64 {
	if budget == 0 {
		return 0
	}
	return math.Max(0, profit/budget*100)
}

// Assign clusters customers on (Profit, PercentCompliance) and sets each
// customer's Segment, ranking clusters by mean profit ascending.
func Assign(customers []model.CustomerSegment, cfg KMeansConfig) error {
	if cfg.K != model.SegmentCount {
		return eris.Errorf("segment: cluster count must be %d, got %d", model.SegmentCount, cfg.K)
	}
	if len(customers) == 0 {
		return ErrEmptyPopulation
	}
	if len(customers) < cfg.K {
		return eris.Wrapf(ErrTooFewCustomers, "segment: %d customers for %d segments", len(customers), cfg.K)
	}

	points := make([]Point, len(customers))
	for i, c := range customers {
		points[i] = Point{c.Profit, c.PercentCompliance}
	}
	if n := distinctPoints(points); n < cfg.K {
		return eris.Wrapf(ErrDegenerateFeatures, "segment: %d distinct points for %d segments", n, cfg.K)
	}

	res := KMeans(points, cfg)

	ranks, err := rankClusters(customers, res.Labels, cfg.K)
	if err != nil {
		return err
	}
	for i := range customers {
		customers[i].Segment = ranks[res.Labels[i]]
	}
	return nil
}

// rankClusters maps raw cluster indices to segments ordered by mean
// lifetime profit. Ties keep the lower cluster index first.
func rankClusters(customers []model.CustomerSegment, labels []int, k int) ([]model.Segment, error) {
	sums := make([]float64, k)
	counts := make([]int, k)
	for i, c := range customers {
		sums[labels[i]] += c.Profit
		counts[labels[i]]++
	}

	order := make([]int, k)
	for c := range order {
		if counts[c] == 0 {
			return nil, eris.Wrapf(ErrDegenerateFeatures, "segment: cluster %d is empty", c)
		}
		order[c] = c
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sums[order[i]]/float64(counts[order[i]]) < sums[order[j]]/float64(counts[order[j]])
	})

	ranks := make([]model.Segment, k)
	for rank, cluster := range order {
		ranks[cluster] = model.Segment(rank + 1)
	}
	return ranks, nil
}

// LookupOf builds the CustomerKey -> Segment lookup.
func LookupOf(customers []model.CustomerSegment) Lookup {
	l := make(Lookup, len(customers))
	for _, c := range customers {
		l[c.CustomerKey] = c.Segment
	}
	return l
}

type monthKey struct {
	year, month int
	customer    string
}

// Monthly aggregates the ledger per (Year, Month, CustomerKey) and attaches
// each customer's lifetime segment. Compliance is the mean of the sampled
// row values. A customer absent from lookup is a fatal inconsistency.
func Monthly(rows []model.Transaction, lookup Lookup) ([]model.MonthlySegment, error) {
	index := make(map[monthKey]int)
	counts := make([]int, 0)
	var out []model.MonthlySegment

	for _, r := range rows {
		k := monthKey{r.Year, r.Month, r.CustomerKey}
		i, ok := index[k]
		if !ok {
			seg, found := lookup[r.CustomerKey]
			if !found {
				return nil, eris.Wrapf(ErrSegmentLookupMiss, "segment: customer %s", r.CustomerKey)
			}
			i = len(out)
			index[k] = i
			out = append(out, model.MonthlySegment{
				Year:        r.Year,
				Month:       r.Month,
				CustomerKey: r.CustomerKey,
				Name:        r.Name,
				Segment:     seg,
			})
			counts = append(counts, 0)
		}
		out[i].Profit += r.Profit
		out[i].BudgetProfit += r.BudgetProfit
		out[i].Income += r.Income
		out[i].PercentCompliance += r.PercentCompliance
		counts[i]++
	}

	for i := range out {
		out[i].PercentCompliance /= float64(counts[i])
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.CustomerKey < b.CustomerKey
	})
	return out, nil
}

func sizes(customers []model.CustomerSegment) map[string]int {
	m := make(map[string]int, model.SegmentCount)
	for _, c := range customers {
		m[c.Segment.String()]++
	}
	return m
}
