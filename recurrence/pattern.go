// Package recurrence decides whether a recurring task definition is due
// on a given calendar day, and computes the next due instant after a
// successful generation. All functions are pure; callers supply the
// calendar day, typically the org-local day derived from a trusted
// clock.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Frequency is the tag of a recurrence pattern variant.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

var (
	// ErrUnsupportedFrequency is returned for a frequency tag the
	// engine does not recognize. It is fatal for the single definition
	// carrying it, never for a whole generation batch.
	ErrUnsupportedFrequency = errors.New("unsupported recurrence frequency")
	// ErrInvalidPattern is returned when a pattern's fields are out of
	// range for its frequency.
	ErrInvalidPattern = errors.New("invalid recurrence pattern")
)

// Pattern is a tagged recurrence rule.
//
//   - daily: no extra fields.
//   - weekly: DaysOfWeek holds the weekdays the rule fires on. An empty
//     set means every day, matching how the original scheduler treats
//     templates without scheduled days.
//   - monthly: AnchorDay is the day-of-month (1-31) the rule fires on.
//     In months shorter than the anchor the rule fires on the last day
//     of the month instead of silently skipping.
type Pattern struct {
	Frequency  Frequency
	DaysOfWeek []time.Weekday // weekly only
	AnchorDay  int            // monthly only, 1-31
}

// Validate checks the pattern's fields against its frequency.
func (p Pattern) Validate() error {
	switch p.Frequency {
	case FrequencyDaily:
		return nil
	case FrequencyWeekly:
		for _, d := range p.DaysOfWeek {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("%w: weekday %d out of range", ErrInvalidPattern, d)
			}
		}
		return nil
	case FrequencyMonthly:
		if p.AnchorDay < 1 || p.AnchorDay > 31 {
			return fmt.Errorf("%w: anchor day %d out of range", ErrInvalidPattern, p.AnchorDay)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFrequency, p.Frequency)
	}
}
