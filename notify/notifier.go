// Package notify defines the notification collaborator the generator
// fans out to. Delivery is somebody else's problem: implementations are
// best-effort, and the generator logs failures without rolling back the
// work that triggered them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// EventType tags a notification event.
type EventType string

const (
	// EventOccurrenceCreated fires once per generated task occurrence.
	EventOccurrenceCreated EventType = "task_occurrence_created"
	// EventWindowUpcoming fires when a materialized instance's window
	// opens within the upcoming-notice lead time.
	EventWindowUpcoming EventType = "window_upcoming"
)

// Event is what recipients are told about.
type Event struct {
	Type         EventType
	OccurrenceID string
	InstanceID   string
	// MinutesUntilStart is set on upcoming-window events.
	MinutesUntilStart int
	// Key is a stable idempotency key (org:team:type:source:instance).
	// Deduper suppresses repeats of the same key; an empty key is never
	// deduplicated.
	Key string
}

// Notifier delivers an event to a set of users.
type Notifier interface {
	Notify(ctx context.Context, userIDs []string, ev Event) error
}

// EventKey builds the stable idempotency key used across the engine,
// mirroring the dedupe keys of the original notification pipeline.
func EventKey(orgID, teamID string, typ EventType, sourceID, targetID string) string {
	if teamID == "" {
		teamID = "no-team"
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s", orgID, teamID, typ, sourceID, targetID)
}

// LogNotifier writes events to a structured log and never fails. Useful
// as a default sink and in tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses the default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, userIDs []string, ev Event) error {
	n.logger.Info("notification dispatched",
		"type", ev.Type,
		"occurrence_id", ev.OccurrenceID,
		"instance_id", ev.InstanceID,
		"recipients", len(userIDs))
	return nil
}
