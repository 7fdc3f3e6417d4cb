// Package generator materializes work from schedules: task occurrences
// from recurring definitions, and window instances from templates. It
// is driven by an external periodic trigger and keeps no state between
// runs; the atomicity that makes retried runs safe lives in the storage
// contract.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/D3MONSAUSAGE/teamtegrate-engine/clock"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/notify"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/recurrence"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/storage"
)

// ItemError records a per-item failure inside a batch.
type ItemError struct {
	ID      string
	Message string
}

// Report summarizes one generation run. Per-item failures land in
// Errors; they never abort the batch.
type Report struct {
	Generated       int
	Skipped         int
	TotalCandidates int
	Errors          []ItemError
}

func (r *Report) fail(id string, err error) {
	r.Errors = append(r.Errors, ItemError{ID: id, Message: err.Error()})
}

// Generator orchestrates evaluation, atomic creation and notification.
type Generator struct {
	store    storage.Store
	notifier notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

// New creates a generator. A nil notifier disables notifications, a nil
// clock uses the system clock, a nil logger uses the default.
func New(store storage.Store, notifier notify.Notifier, clk clock.Clock, logger *slog.Logger) *Generator {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: store, notifier: notifier, clock: clk, logger: logger}
}

// Run generates due occurrences at the generator's own clock. This is
// the entry point for periodic trigger wiring; the clock keeps "now"
// server-authoritative.
func (g *Generator) Run(ctx context.Context) (*Report, error) {
	return g.GenerateDueOccurrences(ctx, g.clock.Now())
}

// GenerateDueOccurrences creates one occurrence per due parent
// definition and advances each parent's next-due marker. Conflicts from
// concurrent or retried runs count as skips. A failed fetch is fatal;
// everything after that is per-item.
func (g *Generator) GenerateDueOccurrences(ctx context.Context, now time.Time) (*Report, error) {
	log := g.logger.With("correlation_id", uuid.NewString())

	defs, err := g.store.FindDueRecurringDefinitions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("fetch due definitions: %w", err)
	}
	log.Info("generation started", "candidates", len(defs))

	report := &Report{TotalCandidates: len(defs)}
	for _, def := range defs {
		localNow := inZone(now, def.Timezone, log)

		due, err := recurrence.IsDueOn(def.Pattern, localNow)
		if err != nil {
			report.fail(def.ID, err)
			log.Error("pattern evaluation failed", "definition_id", def.ID, "error", err)
			continue
		}
		if !due {
			report.Skipped++
			continue
		}

		nextDue, err := recurrence.NextDue(def.Pattern, localNow)
		if err != nil {
			report.fail(def.ID, err)
			log.Error("next-due computation failed", "definition_id", def.ID, "error", err)
			continue
		}

		occ, err := g.store.CreateOccurrenceAndAdvance(ctx, def.ID, now, nextDue)
		if storage.IsConflict(err) {
			// Another invocation won this cycle.
			report.Skipped++
			log.Info("occurrence already generated", "definition_id", def.ID)
			continue
		}
		if err != nil {
			report.fail(def.ID, err)
			log.Error("occurrence creation failed", "definition_id", def.ID, "error", err)
			continue
		}

		report.Generated++
		log.Info("occurrence created",
			"definition_id", def.ID,
			"occurrence_id", occ.ID,
			"next_due_at", nextDue)

		g.notifyAssigned(ctx, def, occ.ID, log)
	}

	log.Info("generation finished",
		"generated", report.Generated,
		"skipped", report.Skipped,
		"errors", len(report.Errors))
	return report, nil
}

// notifyAssigned tells the assigned users about a fresh occurrence.
// Best-effort: failures are logged, never propagated, and never roll
// back the created occurrence.
func (g *Generator) notifyAssigned(ctx context.Context, def storage.RecurringTaskDefinition, occurrenceID string, log *slog.Logger) {
	if g.notifier == nil || len(def.AssignedUserIDs) == 0 {
		return
	}

	ev := notify.Event{
		Type:         notify.EventOccurrenceCreated,
		OccurrenceID: occurrenceID,
		Key:          notify.EventKey(def.OrganizationID, "", notify.EventOccurrenceCreated, def.ID, occurrenceID),
	}
	if err := g.notifier.Notify(ctx, def.AssignedUserIDs, ev); err != nil {
		log.Warn("notification failed",
			"definition_id", def.ID,
			"occurrence_id", occurrenceID,
			"error", err)
	}
}

// inZone moves now into the org's IANA zone, falling back to UTC when
// the zone is empty or unknown.
func inZone(now time.Time, tz string, log *slog.Logger) time.Time {
	if tz == "" {
		return now.In(time.UTC)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("unknown timezone, falling back to UTC", "timezone", tz)
		return now.In(time.UTC)
	}
	return now.In(loc)
}
