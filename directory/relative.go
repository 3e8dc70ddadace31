package directory

import (
	"fmt"
	"time"
)

// DateLayout formats timestamps a week or more in the past.
const DateLayout = "Jan 2, 2006"

// RelativeTime renders t relative to now using whole, floored units:
// under a minute "Just now", then minutes, hours, and days up to a week,
// then the calendar date. A zero t renders as "".
func RelativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	default:
		return t.Local().Format(DateLayout)
	}
}
