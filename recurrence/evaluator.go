package recurrence

import (
	"fmt"
	"time"
)

// IsDueOn reports whether the pattern fires on the calendar day of t.
// Only the date part of t is considered.
func IsDueOn(p Pattern, t time.Time) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	switch p.Frequency {
	case FrequencyDaily:
		return true, nil
	case FrequencyWeekly:
		// No scheduled days means the rule fires every day.
		if len(p.DaysOfWeek) == 0 {
			return true, nil
		}
		weekday := t.Weekday()
		for _, d := range p.DaysOfWeek {
			if d == weekday {
				return true, nil
			}
		}
		return false, nil
	case FrequencyMonthly:
		return t.Day() == effectiveAnchor(p.AnchorDay, t), nil
	default:
		// Validate already rejected unknown tags.
		return false, fmt.Errorf("%w: %q", ErrUnsupportedFrequency, p.Frequency)
	}
}

// effectiveAnchor clamps the anchor day to the length of t's month, so
// an anchor of 31 fires on April 30 rather than never.
func effectiveAnchor(anchor int, t time.Time) int {
	if last := daysInMonth(t); anchor > last {
		return last
	}
	return anchor
}

// daysInMonth returns the number of days in t's month.
func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
