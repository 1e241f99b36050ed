package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentCount is the number of ordered segments every customer is assigned to.
const SegmentCount = 4

// Segment is an ordered customer category. Segment 1 holds the least profitable
// customers, Segment SegmentCount the most profitable.
type Segment int

// String returns the display label, e.g. "Segment 3".
func (s Segment) String() string {
	return fmt.Sprintf("Segment %d", int(s))
}

// Valid reports whether s is one of the assignable segments.
func (s Segment) Valid() bool {
	return s >= 1 && s <= SegmentCount
}

// MarshalText encodes the segment as its display label.
func (s Segment) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts "Segment N" or a bare "N".
func (s *Segment) UnmarshalText(b []byte) error {
	v, err := ParseSegment(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSegment parses a segment label. Both "Segment 2" and "2" are accepted,
// case-insensitively.
func ParseSegment(label string) (Segment, error) {
	raw := strings.TrimSpace(label)
	if len(raw) >= len("segment") && strings.EqualFold(raw[:len("segment")], "segment") {
		raw = strings.TrimSpace(raw[len("segment"):])
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("model: invalid segment %q", label)
	}
	s := Segment(n)
	if !s.Valid() {
		return 0, fmt.Errorf("model: segment %d out of range 1..%d", n, SegmentCount)
	}
	return s, nil
}

// CustomerSegment is the lifetime summary of one customer.
type CustomerSegment struct {
	CustomerKey       string  `json:"customer_key"`
	Name              string  `json:"name"`
	Profit            float64 `json:"profit"`
	BudgetProfit      float64 `json:"budget_profit"`
	Income            float64 `json:"income"`
	PercentCompliance float64 `json:"percent_compliance"` // lifetime ratio, clamped at 0
	Segment           Segment `json:"segment"`
}

// MonthlySegment is one (Year, Month, CustomerKey) aggregate with the
// customer's lifetime segment attached.
type MonthlySegment struct {
	Year              int     `json:"year"`
	Month             int     `json:"month"`
	CustomerKey       string  `json:"customer_key"`
	Name              string  `json:"name"`
	Profit            float64 `json:"profit"`
	BudgetProfit      float64 `json:"budget_profit"`
	Income            float64 `json:"income"`
	PercentCompliance float64 `json:"percent_compliance"` // mean of sampled row values
	Segment           Segment `json:"segment"`
}
