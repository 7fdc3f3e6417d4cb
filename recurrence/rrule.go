package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// rruleWeekdays maps time.Weekday (Sunday=0) onto rrule-go weekdays.
var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// NextDue returns the pattern's next due instant strictly after the
// given instant, at local midnight in after's location. The occurrence
// generator stores this as the definition's advanced nextDueAt marker.
func NextDue(p Pattern, after time.Time) (time.Time, error) {
	if err := p.Validate(); err != nil {
		return time.Time{}, err
	}

	opt := rrule.ROption{Dtstart: startOfDay(after)}
	switch p.Frequency {
	case FrequencyDaily:
		opt.Freq = rrule.DAILY
	case FrequencyWeekly:
		if len(p.DaysOfWeek) == 0 {
			// Every day, same as IsDueOn.
			opt.Freq = rrule.DAILY
			break
		}
		opt.Freq = rrule.WEEKLY
		for _, d := range p.DaysOfWeek {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case FrequencyMonthly:
		// BYMONTHDAY skips months shorter than the anchor, which
		// contradicts the clamp policy, so monthly advancement is
		// computed directly.
		return nextMonthlyDue(p.AnchorDay, after), nil
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, fmt.Errorf("build recurrence rule: %w", err)
	}

	next := rule.After(after, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: no occurrence after %s", ErrInvalidPattern, after.Format(time.RFC3339))
	}
	return next, nil
}

// nextMonthlyDue finds the first clamped anchor day strictly after the
// given instant. At most 13 months need to be examined.
func nextMonthlyDue(anchor int, after time.Time) time.Time {
	loc := after.Location()
	firstOfMonth := time.Date(after.Year(), after.Month(), 1, 0, 0, 0, 0, loc)
	for i := 0; i < 13; i++ {
		month := firstOfMonth.AddDate(0, i, 0)
		candidate := time.Date(month.Year(), month.Month(), effectiveAnchor(anchor, month), 0, 0, 0, 0, loc)
		if candidate.After(after) {
			return candidate
		}
	}
	// Unreachable: a clamped anchor exists in every month.
	return time.Time{}
}

// FromRRule translates RFC 5545 RRULE text (without the "RRULE:"
// prefix) into an engine pattern. Only daily, weekly and monthly rules
// with an interval of one map onto the engine's pattern space; anything
// else is rejected.
func FromRRule(s string) (Pattern, error) {
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return Pattern{}, fmt.Errorf("parse RRULE %q: %w", s, err)
	}
	if opt.Interval > 1 {
		return Pattern{}, fmt.Errorf("%w: interval %d not supported", ErrInvalidPattern, opt.Interval)
	}

	switch opt.Freq {
	case rrule.DAILY:
		return Pattern{Frequency: FrequencyDaily}, nil
	case rrule.WEEKLY:
		p := Pattern{Frequency: FrequencyWeekly}
		for _, wd := range opt.Byweekday {
			// rrule-go counts weekdays from Monday=0.
			p.DaysOfWeek = append(p.DaysOfWeek, time.Weekday((wd.Day()+1)%7))
		}
		return p, nil
	case rrule.MONTHLY:
		if len(opt.Bymonthday) != 1 {
			return Pattern{}, fmt.Errorf("%w: monthly rules need exactly one BYMONTHDAY", ErrInvalidPattern)
		}
		p := Pattern{Frequency: FrequencyMonthly, AnchorDay: opt.Bymonthday[0]}
		if err := p.Validate(); err != nil {
			return Pattern{}, err
		}
		return p, nil
	default:
		return Pattern{}, fmt.Errorf("%w: RRULE frequency in %q", ErrUnsupportedFrequency, s)
	}
}
