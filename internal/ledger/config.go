package ledger

import (
	"time"

	"github.com/rotisserie/eris"
)

// ErrInvalidConfig is returned (wrapped) for any generator configuration
// that cannot produce a ledger.
var ErrInvalidConfig = eris.New("ledger: invalid configuration")

// DateLayout is the layout used for configured start/end dates.
const DateLayout = "2006-01-02"

// Config controls ledger generation.
type Config struct {
	Seed           uint64
	Start          time.Time // first day, inclusive
	End            time.Time // last day, inclusive
	Customers      int
	Stores         int
	ActiveFraction float64 // share of customers active on any given day
}

// DefaultConfig returns the two-calendar-year demo configuration.
func DefaultConfig() Config {
	return Config{
		Seed:           42,
		Start:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		Customers:      300,
		Stores:         8,
		ActiveFraction: 0.4,
	}
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, eris.Wrapf(ErrInvalidConfig, "ledger: parse date %q: %v", s, err)
	}
	return t, nil
}

// ActivePerDay is the number of customers sampled as active each day.
func (c Config) ActivePerDay() int {
	return int(float64(c.Customers) * c.ActiveFraction)
}

// Days returns the number of calendar days in the configured range.
func (c Config) Days() int {
	start, end := truncateDay(c.Start), truncateDay(c.End)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Validate checks the configuration and returns an error wrapping
// ErrInvalidConfig describing the first problem found.
func (c Config) Validate() error {
	switch {
	case c.Start.IsZero() || c.End.IsZero():
		return eris.Wrap(ErrInvalidConfig, "ledger: start and end dates are required")
	case truncateDay(c.End).Before(truncateDay(c.Start)):
		return eris.Wrapf(ErrInvalidConfig, "ledger: end date %s is before start date %s",
			c.End.Format(DateLayout), c.Start.Format(DateLayout))
	case c.Customers <= 0:
		return eris.Wrapf(ErrInvalidConfig, "ledger: customers must be positive, got %d", c.Customers)
	case c.Stores <= 0:
		return eris.Wrapf(ErrInvalidConfig, "ledger: stores must be positive, got %d", c.Stores)
	case c.ActiveFraction <= 0 || c.ActiveFraction > 1:
		return eris.Wrapf(ErrInvalidConfig, "ledger: active fraction must be in (0,1], got %g", c.ActiveFraction)
	case c.ActivePerDay() == 0:
		return eris.Wrapf(ErrInvalidConfig, "ledger: active fraction %g of %d customers selects nobody",
			c.ActiveFraction, c.Customers)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
