package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/D3MONSAUSAGE/teamtegrate-engine/notify"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/storage"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/window"
)

// upcomingNotice is how close to its window start a fresh instance must
// be for recipients to get an upcoming notification.
const upcomingNotice = 30 * time.Minute

// MaterializeWindows runs MaterializeWindowInstances at the generator's
// own clock, for periodic trigger wiring.
func (g *Generator) MaterializeWindows(ctx context.Context) (*Report, error) {
	return g.MaterializeWindowInstances(ctx, g.clock.Now())
}

// MaterializeWindowInstances creates one pending instance per active
// template for the template's org-local calendar day. Templates not
// scheduled for that weekday are skipped, as are templates whose
// instance for the day already exists (uniqueness conflict). Recipients
// of templates whose window opens within the notice lead time are
// notified once, deduplicated by a stable key.
func (g *Generator) MaterializeWindowInstances(ctx context.Context, now time.Time) (*Report, error) {
	log := g.logger.With("correlation_id", uuid.NewString())

	templates, err := g.store.FindActiveWindowTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch active templates: %w", err)
	}
	log.Info("materialization started", "candidates", len(templates))

	report := &Report{TotalCandidates: len(templates)}
	for _, tpl := range templates {
		localNow := inZone(now, tpl.Timezone, log)

		if !scheduledOn(tpl.ScheduledDays, localNow.Weekday()) {
			report.Skipped++
			continue
		}

		inst := &window.Instance{
			TemplateID:     tpl.ID,
			OrganizationID: tpl.OrganizationID,
			TeamID:         tpl.TeamID,
			Date:           time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, localNow.Location()),
			Status:         window.StatusPending,
			Start:          tpl.Start,
			End:            tpl.End,
		}

		created, err := g.store.CreateWindowInstance(ctx, inst)
		if storage.IsConflict(err) {
			report.Skipped++
			log.Info("instance already materialized", "template_id", tpl.ID, "date", inst.Date.Format("2006-01-02"))
			continue
		}
		if err != nil {
			report.fail(tpl.ID, err)
			log.Error("instance creation failed", "template_id", tpl.ID, "error", err)
			continue
		}

		report.Generated++
		log.Info("instance created",
			"template_id", tpl.ID,
			"instance_id", created.ID,
			"date", created.Date.Format("2006-01-02"))

		g.notifyUpcoming(ctx, tpl, created, localNow, log)
	}

	log.Info("materialization finished",
		"created", report.Generated,
		"skipped", report.Skipped,
		"errors", len(report.Errors))
	return report, nil
}

// notifyUpcoming sends the upcoming-window notice when the instance's
// window opens within the lead time. Best-effort, like all
// notifications.
func (g *Generator) notifyUpcoming(ctx context.Context, tpl storage.WindowTemplate, inst *window.Instance, localNow time.Time, log *slog.Logger) {
	if g.notifier == nil || len(tpl.RecipientIDs) == 0 {
		return
	}
	start, _, ok := inst.Window()
	if !ok {
		return
	}

	until := start.Sub(localNow)
	if until <= 0 || until > upcomingNotice {
		return
	}

	ev := notify.Event{
		Type:              notify.EventWindowUpcoming,
		InstanceID:        inst.ID,
		MinutesUntilStart: int(until.Round(time.Minute) / time.Minute),
		Key:               notify.EventKey(tpl.OrganizationID, tpl.TeamID, notify.EventWindowUpcoming, tpl.ID, inst.ID),
	}
	if err := g.notifier.Notify(ctx, tpl.RecipientIDs, ev); err != nil {
		log.Warn("upcoming notification failed",
			"template_id", tpl.ID,
			"instance_id", inst.ID,
			"error", err)
	}
}

// scheduledOn reports whether the weekday is a scheduled day. An empty
// schedule means every day.
func scheduledOn(days []time.Weekday, weekday time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d == weekday {
			return true
		}
	}
	return false
}
