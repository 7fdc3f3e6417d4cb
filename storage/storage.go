// Package storage defines the data-access contract the engine runs
// against, the typed records it exchanges, and the parsing of
// loosely-typed rows into those records. Implementations own the
// atomicity guarantees the engine relies on; see Store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/D3MONSAUSAGE/teamtegrate-engine/recurrence"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/window"
)

// ErrorType classifies storage errors.
type ErrorType string

const (
	ErrNotFound ErrorType = "not_found"
	// ErrConflict signals that the atomic create already happened for
	// this cycle. The generator treats it as a benign skip, not a
	// failure.
	ErrConflict     ErrorType = "conflict"
	ErrInvalidInput ErrorType = "invalid_input"
	ErrUnavailable  ErrorType = "unavailable"
)

// Error is a storage-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConflict reports whether err is a storage conflict.
func IsConflict(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == ErrConflict
}

// IsNotFound reports whether err is a storage not-found.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == ErrNotFound
}

// RecurringTaskDefinition is a parent task that spawns occurrences. It
// is never itself an instance; rows with a parent reference are
// excluded at the fetch boundary.
type RecurringTaskDefinition struct {
	ID              string
	Title           string
	OrganizationID  string
	AssignedUserIDs []string
	Pattern         recurrence.Pattern
	// NextDueAt is the earliest instant at which generation should next
	// be attempted. Advanced atomically with each created occurrence.
	NextDueAt time.Time
	// Timezone is the org's IANA zone for calendar-day evaluation.
	// Empty means UTC.
	Timezone string
}

// TaskOccurrence is one generated instance of a recurring definition.
type TaskOccurrence struct {
	ID              string
	ParentID        string
	Title           string
	OrganizationID  string
	AssignedUserIDs []string
	CreatedAt       time.Time
	// DueDate is the org-local calendar day this occurrence was
	// generated for. At most one occurrence exists per parent and day.
	DueDate time.Time
}

// WindowTemplate describes a time-windowed activity that gets one
// instance per scheduled day.
type WindowTemplate struct {
	ID             string
	OrganizationID string
	TeamID         string
	Name           string
	Active         bool
	// ScheduledDays restricts materialization to these weekdays. Empty
	// means every day.
	ScheduledDays []time.Weekday
	Start         mo.Option[window.ClockTime]
	End           mo.Option[window.ClockTime]
	Timezone      string
	// RecipientIDs receive upcoming-window notifications.
	RecipientIDs []string
}

// Store is the engine's data-access collaborator.
//
// CreateOccurrenceAndAdvance and CreateWindowInstance carry the
// subsystem's core correctness guarantee: they must be atomic, so that
// concurrent or retried generator runs never produce duplicates for the
// same cycle. One invocation succeeds; the others must observe the
// advanced marker (or a uniqueness constraint) and fail with a conflict
// Error. SetInstanceStatus must be a no-op for a repeated identical
// status.
type Store interface {
	// FindDueRecurringDefinitions returns parent definitions with
	// nextDueAt <= now. Generated instances never appear in the result.
	FindDueRecurringDefinitions(ctx context.Context, now time.Time) ([]RecurringTaskDefinition, error)
	// CreateOccurrenceAndAdvance atomically creates the occurrence for
	// the definition's current due cycle and advances nextDueAt to
	// nextDue. Returns a conflict Error when the cycle was already
	// generated.
	CreateOccurrenceAndAdvance(ctx context.Context, definitionID string, now, nextDue time.Time) (*TaskOccurrence, error)

	// FindActiveWindowTemplates returns all active templates.
	FindActiveWindowTemplates(ctx context.Context) ([]WindowTemplate, error)
	// CreateWindowInstance creates one instance per (template, date);
	// duplicates fail with a conflict Error.
	CreateWindowInstance(ctx context.Context, inst *window.Instance) (*window.Instance, error)
	// GetWindowInstance fetches an instance by id.
	GetWindowInstance(ctx context.Context, instanceID string) (*window.Instance, error)
	// SetInstanceStatus transitions an instance. Idempotent on repeated
	// identical status; transitioning a finalized instance to a
	// different status is a conflict.
	SetInstanceStatus(ctx context.Context, instanceID string, status window.Status) error
}
