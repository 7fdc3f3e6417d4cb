package generator

import (
	"context"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D3MONSAUSAGE/teamtegrate-engine/notify"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/storage"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/storage/memory"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/window"
)

func openingTemplate(id string, days ...time.Weekday) storage.WindowTemplate {
	return storage.WindowTemplate{
		ID:             id,
		OrganizationID: "org-1",
		TeamID:         "team-1",
		Name:           "Opening checklist",
		Active:         true,
		ScheduledDays:  days,
		Start:          mo.Some(window.ClockTime{Hour: 9}),
		End:            mo.Some(window.ClockTime{Hour: 11}),
		RecipientIDs:   []string{"manager-1"},
	}
}

func TestMaterializeWindowInstances(t *testing.T) {
	store := memory.New()
	g := New(store, nil, nil, nil)
	// Wednesday.
	now := time.Date(2024, time.January, 10, 6, 0, 0, 0, time.UTC)
	store.AddTemplate(openingTemplate("tpl-1", time.Wednesday))

	report, err := g.MaterializeWindowInstances(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)
	assert.Zero(t, report.Skipped)

	// Materializing again for the same day is idempotent.
	report, err = g.MaterializeWindowInstances(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, report.Generated)
	assert.Equal(t, 1, report.Skipped)
}

func TestMaterializeWindowInstances_InstanceShape(t *testing.T) {
	store := memory.New()
	g := New(store, nil, nil, nil)
	now := time.Date(2024, time.January, 10, 6, 0, 0, 0, time.UTC)
	store.AddTemplate(openingTemplate("tpl-1"))

	report, err := g.MaterializeWindowInstances(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, report.Generated)

	templates, err := store.FindActiveWindowTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 1)

	// The created instance starts pending on today's date with the
	// template's window.
	inst := &window.Instance{
		TemplateID: "tpl-1",
		Date:       time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
	}
	_, err = store.CreateWindowInstance(context.Background(), inst)
	assert.True(t, storage.IsConflict(err), "date slot is occupied by the materialized instance")
}

func TestMaterializeWindowInstances_WeekdayFilter(t *testing.T) {
	store := memory.New()
	g := New(store, nil, nil, nil)
	// Wednesday; template runs Mondays only.
	now := time.Date(2024, time.January, 10, 6, 0, 0, 0, time.UTC)
	store.AddTemplate(openingTemplate("tpl-monday", time.Monday))

	report, err := g.MaterializeWindowInstances(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, report.Generated)
	assert.Equal(t, 1, report.Skipped)
}

func TestMaterializeWindowInstances_InactiveTemplatesIgnored(t *testing.T) {
	store := memory.New()
	g := New(store, nil, nil, nil)
	now := time.Date(2024, time.January, 10, 6, 0, 0, 0, time.UTC)

	tpl := openingTemplate("tpl-off")
	tpl.Active = false
	store.AddTemplate(tpl)

	report, err := g.MaterializeWindowInstances(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, report.TotalCandidates)
}

func TestMaterializeWindowInstances_UpcomingNotification(t *testing.T) {
	store := memory.New()
	notifier := &fakeNotifier{}
	g := New(store, notifier, nil, nil)

	// 08:40, window opens 09:00: inside the 30-minute notice.
	now := time.Date(2024, time.January, 10, 8, 40, 0, 0, time.UTC)
	store.AddTemplate(openingTemplate("tpl-1"))

	report, err := g.MaterializeWindowInstances(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, report.Generated)

	calls := notifier.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"manager-1"}, calls[0].userIDs)
	assert.Equal(t, notify.EventWindowUpcoming, calls[0].event.Type)
	assert.Equal(t, 20, calls[0].event.MinutesUntilStart)
	assert.NotEmpty(t, calls[0].event.Key)
}

func TestMaterializeWindowInstances_NoNoticeOutsideLeadTime(t *testing.T) {
	store := memory.New()
	notifier := &fakeNotifier{}
	g := New(store, notifier, nil, nil)

	// 06:00, window opens 09:00: too early for a notice.
	now := time.Date(2024, time.January, 10, 6, 0, 0, 0, time.UTC)
	store.AddTemplate(openingTemplate("tpl-1"))

	_, err := g.MaterializeWindowInstances(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, notifier.recorded())
}

func TestMaterializeWindowInstances_FetchFailureIsFatal(t *testing.T) {
	g := New(failingStore{}, nil, nil, nil)

	_, err := g.MaterializeWindowInstances(context.Background(), time.Now())
	require.Error(t, err)

	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.ErrUnavailable, se.Type)
}
