package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDue(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		after   time.Time
		want    time.Time
	}{
		{
			name:    "daily advances to next midnight",
			pattern: Pattern{Frequency: FrequencyDaily},
			after:   time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC),
			want:    date(2024, time.January, 11),
		},
		{
			name:    "daily at exact midnight still advances a day",
			pattern: Pattern{Frequency: FrequencyDaily},
			after:   date(2024, time.January, 10),
			want:    date(2024, time.January, 11),
		},
		{
			name: "weekly advances to next scheduled day",
			pattern: Pattern{
				Frequency:  FrequencyWeekly,
				DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			},
			after: time.Date(2024, time.January, 9, 10, 0, 0, 0, time.UTC), // Tuesday
			want:  date(2024, time.January, 10),                           // Wednesday
		},
		{
			name: "weekly wraps the week",
			pattern: Pattern{
				Frequency:  FrequencyWeekly,
				DaysOfWeek: []time.Weekday{time.Monday},
			},
			after: time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC), // Wednesday
			want:  date(2024, time.January, 15),                             // next Monday
		},
		{
			name:    "weekly without days behaves daily",
			pattern: Pattern{Frequency: FrequencyWeekly},
			after:   time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC),
			want:    date(2024, time.January, 11),
		},
		{
			name:    "monthly advances within the month",
			pattern: Pattern{Frequency: FrequencyMonthly, AnchorDay: 15},
			after:   time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC),
			want:    date(2024, time.January, 15),
		},
		{
			name:    "monthly anchor 31 clamps into leap February",
			pattern: Pattern{Frequency: FrequencyMonthly, AnchorDay: 31},
			after:   time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC),
			want:    date(2024, time.February, 29),
		},
		{
			name:    "monthly anchor 31 clamps into April",
			pattern: Pattern{Frequency: FrequencyMonthly, AnchorDay: 31},
			after:   time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC),
			want:    date(2024, time.April, 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NextDue(tt.pattern, tt.after)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(next), "want %s, got %s", tt.want, next)
			assert.True(t, next.After(tt.after), "next due must be strictly after the generation instant")
		})
	}
}

func TestNextDue_UnsupportedFrequency(t *testing.T) {
	_, err := NextDue(Pattern{Frequency: "hourly"}, date(2024, time.January, 10))
	assert.ErrorIs(t, err, ErrUnsupportedFrequency)
}

func TestFromRRule(t *testing.T) {
	tests := []struct {
		name  string
		rrule string
		want  Pattern
	}{
		{
			name:  "daily",
			rrule: "FREQ=DAILY",
			want:  Pattern{Frequency: FrequencyDaily},
		},
		{
			name:  "weekly with days",
			rrule: "FREQ=WEEKLY;BYDAY=MO,WE,FR",
			want: Pattern{
				Frequency:  FrequencyWeekly,
				DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			},
		},
		{
			name:  "weekly with Sunday",
			rrule: "FREQ=WEEKLY;BYDAY=SU",
			want: Pattern{
				Frequency:  FrequencyWeekly,
				DaysOfWeek: []time.Weekday{time.Sunday},
			},
		},
		{
			name:  "monthly with anchor",
			rrule: "FREQ=MONTHLY;BYMONTHDAY=15",
			want:  Pattern{Frequency: FrequencyMonthly, AnchorDay: 15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromRRule(tt.rrule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestFromRRule_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		rrule string
		want  error
	}{
		{
			name:  "hourly frequency",
			rrule: "FREQ=HOURLY",
			want:  ErrUnsupportedFrequency,
		},
		{
			name:  "interval above one",
			rrule: "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO",
			want:  ErrInvalidPattern,
		},
		{
			name:  "monthly without month day",
			rrule: "FREQ=MONTHLY",
			want:  ErrInvalidPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRRule(tt.rrule)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
