package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pillbot/internal/models"
)

// run feeds inputs in order and returns the wizard after the last one.
// It fails the test if the dialog finishes early or reports an error.
func run(t *testing.T, inputs ...string) *wizard {
	t.Helper()
	w := &wizard{state: stateFrequency, draft: models.Reminder{Active: true, UserID: 42}}
	for i, input := range inputs {
		_, done, err := w.feed(input)
		require.NoError(t, err, "input %d (%q)", i, input)
		if i < len(inputs)-1 {
			require.False(t, done, "dialog finished early at input %d (%q)", i, input)
		}
	}
	return w
}

func TestWizardSimpleDaily(t *testing.T) {
	w := run(t, "daily", "simple", "09:00")

	assert.Equal(t, stateDone, w.state)
	assert.Equal(t, models.FrequencyDaily, w.draft.Frequency)
	assert.Equal(t, models.DailyModeSimple, w.draft.DailyMode)
	assert.Equal(t, "09:00", w.draft.BaseTime)
	assert.False(t, w.draft.WeekendOverride)
}

func TestWizardWeeklyByName(t *testing.T) {
	w := run(t, "weekly", "Friday", "18:30")

	assert.Equal(t, stateDone, w.state)
	assert.Equal(t, models.FrequencyWeekly, w.draft.Frequency)
	assert.Equal(t, 4, w.draft.DayOfWeek)
	assert.Equal(t, "18:30", w.draft.BaseTime)
}

func TestWizardWeeklyByNumber(t *testing.T) {
	w := run(t, "weekly", "6", "07:15")

	assert.Equal(t, 6, w.draft.DayOfWeek, "6 is Sunday")
	assert.Equal(t, "07:15", w.draft.BaseTime)
}

func TestWizardMonthlySafeDaySkipsFallbackQuestion(t *testing.T) {
	w := run(t, "monthly", "15", "12:00")

	assert.Equal(t, stateDone, w.state)
	assert.Equal(t, 15, w.draft.DayOfMonth)
	assert.Equal(t, models.FallbackLastDay, w.draft.MonthFallback)
}

func TestWizardMonthlyDay31AsksFallback(t *testing.T) {
	w := &wizard{state: stateFrequency}
	_, _, err := w.feed("monthly")
	require.NoError(t, err)
	_, done, err := w.feed("31")
	require.NoError(t, err)
	require.False(t, done)
	assert.Equal(t, stateMonthFallback, w.state)

	_, _, err = w.feed("skip")
	require.NoError(t, err)
	_, done, err = w.feed("23:00")
	require.NoError(t, err)

	assert.True(t, done)
	assert.Equal(t, 31, w.draft.DayOfMonth)
	assert.Equal(t, models.FallbackSkip, w.draft.MonthFallback)
	assert.Equal(t, "23:00", w.draft.BaseTime)
}

func TestWizardAdvancedDailyFullFlow(t *testing.T) {
	w := run(t, "daily", "advanced", "08:00", "20:00", "yes", "10:00", "07:30", "21")

	assert.Equal(t, stateDone, w.state)
	assert.Equal(t, models.DailyModeAdvanced, w.draft.DailyMode)
	assert.Equal(t, "08:00", w.draft.EvenTime)
	assert.Equal(t, "20:00", w.draft.OddTime)
	assert.True(t, w.draft.WeekendOverride)
	assert.Equal(t, "10:00", w.draft.WeekendNoWorkTime)
	assert.Equal(t, "07:30", w.draft.WeekendWithWorkTime)
	assert.Equal(t, 21, w.draft.AskHour)
	assert.True(t, w.draft.NeedsWorkQuestion())
}

func TestWizardAdvancedDailyWithoutWeekendOverride(t *testing.T) {
	w := run(t, "daily", "advanced", "08:00", "20:00", "no")

	assert.Equal(t, stateDone, w.state)
	assert.True(t, w.draft.IsAdvancedDaily())
	assert.False(t, w.draft.WeekendOverride)
	assert.False(t, w.draft.NeedsWorkQuestion())
}

func TestWizardInvalidInputKeepsState(t *testing.T) {
	w := &wizard{state: stateFrequency}

	_, done, err := w.feed("sometimes")
	assert.Error(t, err)
	assert.False(t, done)
	assert.Equal(t, stateFrequency, w.state)

	_, _, err = w.feed("daily")
	require.NoError(t, err)
	assert.Equal(t, stateDailyMode, w.state)

	_, done, err = w.feed("fancy")
	assert.Error(t, err)
	assert.False(t, done)
	assert.Equal(t, stateDailyMode, w.state)

	_, _, err = w.feed("simple")
	require.NoError(t, err)
	_, done, err = w.feed("25:99")
	assert.Error(t, err)
	assert.False(t, done)
	assert.Equal(t, stateTime, w.state)
	assert.Empty(t, w.draft.BaseTime)
}

func TestWizardInputIsNormalized(t *testing.T) {
	w := run(t, "  DAILY ", "Simple", "09:00")

	assert.Equal(t, models.FrequencyDaily, w.draft.Frequency)
	assert.Equal(t, models.DailyModeSimple, w.draft.DailyMode)
}

func TestWizardStoreLifecycle(t *testing.T) {
	s := newWizardStore()

	assert.False(t, s.active(1))
	assert.False(t, s.cancel(1), "cancel with no wizard is a no-op")

	prompt := s.begin(1)
	assert.Contains(t, prompt, "daily")
	assert.True(t, s.active(1))
	assert.False(t, s.active(2), "wizards are per user")

	assert.True(t, s.cancel(1))
	assert.False(t, s.active(1))
}

func TestWizardStoreBeginRestarts(t *testing.T) {
	s := newWizardStore()
	s.begin(1)
	_, _, err := s.get(1).feed("weekly")
	require.NoError(t, err)
	assert.Equal(t, stateWeekday, s.get(1).state)

	s.begin(1)
	assert.Equal(t, stateFrequency, s.get(1).state, "begin resets an in-progress dialog")
}
