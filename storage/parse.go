package storage

import (
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/D3MONSAUSAGE/teamtegrate-engine/recurrence"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/window"
)

// Row is a loosely-typed record as returned by a schema-less query
// layer. The parse functions below are the only place such data crosses
// into the engine; malformed rows fail with an invalid-input Error
// instead of leaking untyped values further in.
type Row = map[string]any

// ParseDefinitionRow converts a row into a RecurringTaskDefinition.
// Rows that are themselves generated instances (non-null parent
// reference) or not flagged recurring are rejected.
func ParseDefinitionRow(row Row) (*RecurringTaskDefinition, error) {
	id, err := stringField(row, "id")
	if err != nil {
		return nil, err
	}
	if v, ok := row["parent_id"]; ok && v != nil {
		return nil, invalidInput(fmt.Sprintf("row %s is a generated instance, not a definition", id), nil)
	}
	if isRecurring, _ := row["is_recurring"].(bool); !isRecurring {
		return nil, invalidInput(fmt.Sprintf("row %s is not marked recurring", id), nil)
	}

	patternRaw, ok := row["recurrence_pattern"].(map[string]any)
	if !ok {
		return nil, invalidInput(fmt.Sprintf("row %s has no recurrence_pattern object", id), nil)
	}
	pattern, err := parsePattern(patternRaw)
	if err != nil {
		return nil, invalidInput(fmt.Sprintf("row %s recurrence_pattern", id), err)
	}

	nextDueRaw, err := stringField(row, "next_due_at")
	if err != nil {
		return nil, err
	}
	nextDue, err := time.Parse(time.RFC3339, nextDueRaw)
	if err != nil {
		return nil, invalidInput(fmt.Sprintf("row %s next_due_at", id), err)
	}

	def := &RecurringTaskDefinition{
		ID:        id,
		Pattern:   pattern,
		NextDueAt: nextDue,
	}
	def.Title, _ = row["title"].(string)
	def.OrganizationID, _ = row["organization_id"].(string)
	def.Timezone, _ = row["timezone"].(string)
	if users, ok := row["assigned_user_ids"].([]any); ok {
		for _, u := range users {
			if s, ok := u.(string); ok {
				def.AssignedUserIDs = append(def.AssignedUserIDs, s)
			}
		}
	}
	return def, nil
}

// ParseInstanceRow converts a row into a window.Instance. The date
// column is a timezone-naive "2006-01-02" value; scheduled_start and
// scheduled_end are "HH:mm" strings or null.
func ParseInstanceRow(row Row) (*window.Instance, error) {
	id, err := stringField(row, "id")
	if err != nil {
		return nil, err
	}

	dateRaw, err := stringField(row, "date")
	if err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", dateRaw)
	if err != nil {
		return nil, invalidInput(fmt.Sprintf("row %s date", id), err)
	}

	statusRaw, err := stringField(row, "status")
	if err != nil {
		return nil, err
	}
	status := window.Status(statusRaw)
	if !status.Known() {
		return nil, invalidInput(fmt.Sprintf("row %s has unknown status %q", id, statusRaw), nil)
	}

	inst := &window.Instance{
		ID:     id,
		Date:   date,
		Status: status,
		Start:  mo.None[window.ClockTime](),
		End:    mo.None[window.ClockTime](),
	}
	inst.TemplateID, _ = row["template_id"].(string)
	inst.OrganizationID, _ = row["org_id"].(string)
	inst.TeamID, _ = row["team_id"].(string)

	if inst.Start, err = clockTimeField(row, "scheduled_start", id); err != nil {
		return nil, err
	}
	if inst.End, err = clockTimeField(row, "scheduled_end", id); err != nil {
		return nil, err
	}
	return inst, nil
}

func parsePattern(raw map[string]any) (recurrence.Pattern, error) {
	freq, ok := raw["frequency"].(string)
	if !ok {
		return recurrence.Pattern{}, fmt.Errorf("missing frequency tag")
	}

	p := recurrence.Pattern{Frequency: recurrence.Frequency(freq)}
	if days, ok := raw["days_of_week"].([]any); ok {
		for _, d := range days {
			n, ok := numberField(d)
			if !ok {
				return recurrence.Pattern{}, fmt.Errorf("non-numeric day of week %v", d)
			}
			p.DaysOfWeek = append(p.DaysOfWeek, time.Weekday(n))
		}
	}
	if anchor, ok := numberField(raw["anchor_day"]); ok {
		p.AnchorDay = anchor
	}

	if err := p.Validate(); err != nil {
		return recurrence.Pattern{}, err
	}
	return p, nil
}

func clockTimeField(row Row, key, id string) (mo.Option[window.ClockTime], error) {
	v, ok := row[key]
	if !ok || v == nil {
		return mo.None[window.ClockTime](), nil
	}
	s, ok := v.(string)
	if !ok {
		return mo.None[window.ClockTime](), invalidInput(fmt.Sprintf("row %s %s is not a string", id, key), nil)
	}
	ct, err := window.ParseClockTime(s)
	if err != nil {
		return mo.None[window.ClockTime](), invalidInput(fmt.Sprintf("row %s %s", id, key), err)
	}
	return mo.Some(ct), nil
}

func stringField(row Row, key string) (string, error) {
	s, ok := row[key].(string)
	if !ok || s == "" {
		return "", invalidInput(fmt.Sprintf("missing or non-string %s", key), nil)
	}
	return s, nil
}

// numberField accepts the numeric shapes JSON decoding produces.
func numberField(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

func invalidInput(msg string, err error) *Error {
	return &Error{Type: ErrInvalidInput, Message: msg, Err: err}
}
