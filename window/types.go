// Package window validates user actions against the time window of a
// scheduled instance, using a server-authoritative instant. It owns the
// instance status machine and the HH:mm clock-time type.
package window

import (
	"fmt"
	"time"

	"github.com/samber/mo"
)

// Status is the lifecycle state of a scheduled window instance.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"
)

// Terminal reports whether no further window-gated action may succeed
// from this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusVerified, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusSubmitted, StatusVerified, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// ClockTime is a local time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:mm" (seconds are tolerated and dropped, as
// database time columns often render "HH:mm:ss").
func ParseClockTime(s string) (ClockTime, error) {
	var ct ClockTime
	var sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &ct.Hour, &ct.Minute, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &ct.Hour, &ct.Minute); err != nil {
			return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
		}
	}
	if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q out of range", s)
	}
	return ct, nil
}

func (ct ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute)
}

// On anchors the clock time onto the calendar day of date, in date's
// location.
func (ct ClockTime) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), ct.Hour, ct.Minute, 0, 0, date.Location())
}

// Instance is one occurrence of a time-windowed activity on a specific
// calendar day. Date is local midnight of that day; Start and End, when
// present, bound the action window. An End at or before Start means the
// window runs past midnight into the next day.
type Instance struct {
	ID             string
	TemplateID     string
	OrganizationID string
	TeamID         string
	Date           time.Time
	Status         Status
	Start          mo.Option[ClockTime]
	End            mo.Option[ClockTime]
}

// Window resolves the instance's window to concrete instants. ok is
// false when the instance declares no window; an instance with only one
// bound is treated as windowless.
func (i *Instance) Window() (start, end time.Time, ok bool) {
	st, stOK := i.Start.Get()
	en, enOK := i.End.Get()
	if !stOK || !enOK {
		return time.Time{}, time.Time{}, false
	}

	start = st.On(i.Date)
	end = en.On(i.Date)
	if !end.After(start) {
		// Overnight window, e.g. 22:00-02:00.
		end = end.Add(24 * time.Hour)
	}
	return start, end, true
}
