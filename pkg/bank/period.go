package bank

import (
	"strings"
	"time"
)

// Period lengths recognised in free-form period phrases.
const (
	WeekDays  = 7
	MonthDays = 30

	// UnusualWindowDays is the averaging window for unusual spending. It is
	// fixed regardless of the requested period.
	UnusualWindowDays = 30
)

// PeriodDays maps a phrase such as "this week" or "last month" to a number
// of days. Anything that mentions neither defaults to a week.
func PeriodDays(period string) int {
	p := strings.ToLower(period)
	switch {
	case strings.Contains(p, "week"):
		return WeekDays
	case strings.Contains(p, "month"):
		return MonthDays
	default:
		return WeekDays
	}
}

// since returns the inclusive start date, days before today.
func (s *Store) since(days int) string {
	return s.today().AddDate(0, 0, -days).Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(v string) (time.Time, error) {
	return time.Parse(DateLayout, v)
}
