package recurrence

import (
	"github.com/emersion/go-ical"
)

// FromComponent extracts a recurrence pattern from an iCalendar
// component (VEVENT, VTODO). The second return value is false when the
// component carries no RRULE at all; an RRULE outside the engine's
// pattern space yields an error. This is the import path for calendar
// data synced from external providers.
func FromComponent(comp *ical.Component) (Pattern, bool, error) {
	prop := comp.Props.Get(ical.PropRecurrenceRule)
	if prop == nil || prop.Value == "" {
		return Pattern{}, false, nil
	}

	p, err := FromRRule(prop.Value)
	if err != nil {
		return Pattern{}, false, err
	}
	return p, true, nil
}
