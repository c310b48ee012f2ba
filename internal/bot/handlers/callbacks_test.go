package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pillbot/internal/models"
)

func TestParseCallbackAck(t *testing.T) {
	action, err := parseCallback("ack:7:2025-07-14")
	require.NoError(t, err)

	assert.Equal(t, "ack", action.Kind)
	assert.Equal(t, 7, action.ReminderID)
	assert.Equal(t, time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), action.Date)
}

func TestParseCallbackWork(t *testing.T) {
	yes, err := parseCallback("work:yes:3:2025-07-12")
	require.NoError(t, err)
	assert.Equal(t, "work", yes.Kind)
	assert.True(t, yes.HasWork)
	assert.Equal(t, 3, yes.ReminderID)

	no, err := parseCallback("work:no:3:2025-07-12")
	require.NoError(t, err)
	assert.False(t, no.HasWork)
}

func TestParseCallbackRejectsMalformed(t *testing.T) {
	for _, data := range []string{
		"",
		"ack",
		"ack:7",
		"ack:seven:2025-07-14",
		"ack:7:14-07-2025",
		"ack:7:2025-07-14:extra",
		"work:3:2025-07-12",
		"work:maybe:3:2025-07-12",
		"snooze:7:2025-07-14",
	} {
		_, err := parseCallback(data)
		assert.Error(t, err, "data %q", data)
	}
}

func TestRenderSchedule(t *testing.T) {
	tests := []struct {
		name     string
		reminder models.Reminder
		want     string
	}{
		{
			name:     "simple daily",
			reminder: models.Reminder{Frequency: models.FrequencyDaily, DailyMode: models.DailyModeSimple, BaseTime: "09:00"},
			want:     "daily at 09:00",
		},
		{
			name:     "weekly",
			reminder: models.Reminder{Frequency: models.FrequencyWeekly, DayOfWeek: 4, BaseTime: "18:30"},
			want:     "weekly on Friday at 18:30",
		},
		{
			name:     "monthly safe day",
			reminder: models.Reminder{Frequency: models.FrequencyMonthly, DayOfMonth: 15, BaseTime: "12:00"},
			want:     "monthly on day 15 at 12:00",
		},
		{
			name: "monthly day 31 with skip",
			reminder: models.Reminder{
				Frequency: models.FrequencyMonthly, DayOfMonth: 31,
				MonthFallback: models.FallbackSkip, BaseTime: "23:00",
			},
			want: "monthly on day 31 at 23:00 (skipped in shorter months)",
		},
		{
			name: "monthly day 31 with last-day fallback",
			reminder: models.Reminder{
				Frequency: models.FrequencyMonthly, DayOfMonth: 31,
				MonthFallback: models.FallbackLastDay, BaseTime: "23:00",
			},
			want: "monthly on day 31 at 23:00 (last day in shorter months)",
		},
		{
			name: "advanced daily without weekend override",
			reminder: models.Reminder{
				Frequency: models.FrequencyDaily, DailyMode: models.DailyModeAdvanced,
				EvenTime: "08:00", OddTime: "20:00",
			},
			want: "daily at 08:00 (even days) / 20:00 (odd days)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderSchedule(&tt.reminder))
		})
	}
}

func TestRenderScheduleAdvancedWeekend(t *testing.T) {
	r := models.Reminder{
		Frequency: models.FrequencyDaily, DailyMode: models.DailyModeAdvanced,
		EvenTime: "08:00", OddTime: "20:00",
		WeekendOverride: true, WeekendNoWorkTime: "10:00", WeekendWithWorkTime: "07:30", AskHour: 21,
	}

	got := renderSchedule(&r)
	assert.Contains(t, got, "weekends 10:00 (day off) / 07:30 (workday)")
	assert.Contains(t, got, "asked at 21:00")
}
