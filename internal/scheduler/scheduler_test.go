package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pillbot/internal/models"
)

type fakeSource struct {
	active []*models.ReminderWithOwner
	work   []*models.ReminderWithOwner
}

func (f *fakeSource) ListActive(ctx context.Context) ([]*models.ReminderWithOwner, error) {
	return f.active, nil
}

func (f *fakeSource) ListNeedingWorkQuestion(ctx context.Context) ([]*models.ReminderWithOwner, error) {
	return f.work, nil
}

func stateKey(reminderID int, date time.Time) string {
	return fmt.Sprintf("%d|%s", reminderID, date.Format(models.DateLayout))
}

// fakeStates mirrors the repository's upsert semantics.
type fakeStates struct {
	mu   sync.Mutex
	rows map[string]*models.ReminderState
}

func newFakeStates() *fakeStates {
	return &fakeStates{rows: make(map[string]*models.ReminderState)}
}

func (f *fakeStates) Get(ctx context.Context, reminderID int, date time.Time) (*models.ReminderState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[stateKey(reminderID, date)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeStates) MarkSent(ctx context.Context, userID int64, reminderID int, date time.Time, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stateKey(reminderID, date)
	row, ok := f.rows[key]
	if !ok {
		row = &models.ReminderState{ReminderID: reminderID, StateDate: date}
		f.rows[key] = row
	}
	sent := sentAt.UTC()
	row.LastSent = &sent
	return nil
}

func (f *fakeStates) Acknowledge(reminderID int, date time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stateKey(reminderID, date)
	row, ok := f.rows[key]
	if !ok {
		row = &models.ReminderState{ReminderID: reminderID, StateDate: date}
		f.rows[key] = row
	}
	row.Acknowledged = true
}

func (f *fakeStates) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeWork struct {
	mu   sync.Mutex
	rows map[string]*models.WorkStatus
}

func newFakeWork() *fakeWork {
	return &fakeWork{rows: make(map[string]*models.WorkStatus)}
}

func (f *fakeWork) Get(ctx context.Context, reminderID int, targetDate time.Time) (*models.WorkStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[stateKey(reminderID, targetDate)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeWork) CreateAsked(ctx context.Context, reminderID int, targetDate time.Time, askedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stateKey(reminderID, targetDate)
	if _, ok := f.rows[key]; ok {
		return nil
	}
	f.rows[key] = &models.WorkStatus{ReminderID: reminderID, TargetDate: targetDate, AskedAt: askedAt}
	return nil
}

func (f *fakeWork) respond(reminderID int, targetDate time.Time, hasWork bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stateKey(reminderID, targetDate)
	row, ok := f.rows[key]
	if !ok {
		row = &models.WorkStatus{ReminderID: reminderID, TargetDate: targetDate}
		f.rows[key] = row
	}
	row.Responded = true
	row.HasWork = hasWork
}

type fakeNotifier struct {
	mu        sync.Mutex
	reminders []string
	questions []string
	failIDs   map[int]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failIDs: make(map[int]bool)}
}

func (f *fakeNotifier) SendReminder(ctx context.Context, userID int64, reminderID int, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[reminderID] {
		return fmt.Errorf("delivery failed for reminder %d", reminderID)
	}
	f.reminders = append(f.reminders, stateKey(reminderID, date))
	return nil
}

func (f *fakeNotifier) SendWorkQuestion(ctx context.Context, userID int64, reminderID int, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, stateKey(reminderID, date))
	return nil
}

func (f *fakeNotifier) sentReminders() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reminders)
}

func (f *fakeNotifier) sentQuestions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.questions)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fixture struct {
	sched    *Scheduler
	source   *fakeSource
	states   *fakeStates
	work     *fakeWork
	notifier *fakeNotifier
}

func newFixture(interval time.Duration) *fixture {
	source := &fakeSource{}
	states := newFakeStates()
	work := newFakeWork()
	notifier := newFakeNotifier()
	return &fixture{
		sched:    New(source, states, work, notifier, interval, quietLogger()),
		source:   source,
		states:   states,
		work:     work,
		notifier: notifier,
	}
}

// tick runs one evaluation pass at the given instant and waits for all
// dispatches to finish.
func (fx *fixture) tick(at time.Time) {
	fx.sched.now = func() time.Time { return at }
	fx.sched.CheckReminders(context.Background())
	fx.sched.wg.Wait()
}

func (fx *fixture) questionTick(at time.Time) {
	fx.sched.now = func() time.Time { return at }
	fx.sched.CheckWorkQuestions(context.Background())
	fx.sched.wg.Wait()
}

func dailyReminder(id int, userID int64, baseTime, timezone string) *models.ReminderWithOwner {
	return &models.ReminderWithOwner{
		Reminder: models.Reminder{
			ReminderID: id,
			UserID:     userID,
			Active:     true,
			Frequency:  models.FrequencyDaily,
			DailyMode:  models.DailyModeSimple,
			BaseTime:   baseTime,
		},
		Timezone: timezone,
	}
}

func TestShouldDispatchTiming(t *testing.T) {
	interval := 300 * time.Second
	sent := time.Date(2025, time.July, 14, 6, 0, 1, 0, time.UTC)
	state := &models.ReminderState{LastSent: &sent}

	assert.True(t, shouldDispatch(nil, sent, interval), "unsent is always dispatchable")
	assert.True(t, shouldDispatch(&models.ReminderState{}, sent, interval))
	assert.False(t, shouldDispatch(state, sent.Add(299*time.Second), interval))
	assert.True(t, shouldDispatch(state, sent.Add(300*time.Second), interval))
}

func TestEndToEndMoscowDaily(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	fx := newFixture(300 * time.Second)
	fx.source.active = []*models.ReminderWithOwner{dailyReminder(1, 42, "09:00", "Europe/Moscow")}

	// One second past the due time: exactly one dispatch.
	fx.tick(time.Date(2025, time.July, 14, 9, 0, 1, 0, loc))
	assert.Equal(t, 1, fx.notifier.sentReminders())
	assert.Equal(t, 1, fx.states.count())

	// User confirms. Five minutes later nothing more goes out for the date.
	fx.states.Acknowledge(1, time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC))
	fx.tick(time.Date(2025, time.July, 14, 9, 5, 1, 0, loc))
	assert.Equal(t, 1, fx.notifier.sentReminders())

	// Additional ticks change nothing either.
	fx.tick(time.Date(2025, time.July, 14, 12, 0, 0, 0, loc))
	assert.Equal(t, 1, fx.notifier.sentReminders())
	assert.Equal(t, 1, fx.states.count(), "no duplicate state rows")

	// A new date starts over at unsent.
	fx.tick(time.Date(2025, time.July, 15, 9, 0, 1, 0, loc))
	assert.Equal(t, 2, fx.notifier.sentReminders())
}

func TestRenotifyAtIntervalBoundary(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	fx := newFixture(300 * time.Second)
	fx.source.active = []*models.ReminderWithOwner{dailyReminder(1, 42, "09:00", "Europe/Moscow")}

	first := time.Date(2025, time.July, 14, 9, 0, 1, 0, loc)
	fx.tick(first)
	require.Equal(t, 1, fx.notifier.sentReminders())

	// 299s after the recorded send: too early.
	fx.tick(first.Add(299 * time.Second))
	assert.Equal(t, 1, fx.notifier.sentReminders())

	// 300s: re-notify and refresh last_sent.
	fx.tick(first.Add(300 * time.Second))
	assert.Equal(t, 2, fx.notifier.sentReminders())

	state, err := fx.states.Get(context.Background(), 1, models.DateOf(first))
	require.NoError(t, err)
	require.NotNil(t, state.LastSent)
	assert.Equal(t, first.Add(300*time.Second).UTC(), *state.LastSent)
}

func TestAcknowledgedBeforeFirstSendIsTerminal(t *testing.T) {
	fx := newFixture(300 * time.Second)
	fx.source.active = []*models.ReminderWithOwner{dailyReminder(1, 42, "09:00", "UTC")}

	date := time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)
	fx.states.Acknowledge(1, date)
	fx.states.Acknowledge(1, date) // idempotent: no error, no duplicate row
	assert.Equal(t, 1, fx.states.count())

	fx.tick(time.Date(2025, time.July, 14, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, 0, fx.notifier.sentReminders())
}

func TestNotDueBeforeResolvedTime(t *testing.T) {
	fx := newFixture(300 * time.Second)
	fx.source.active = []*models.ReminderWithOwner{dailyReminder(1, 42, "09:00", "UTC")}

	fx.tick(time.Date(2025, time.July, 14, 8, 59, 59, 0, time.UTC))
	assert.Equal(t, 0, fx.notifier.sentReminders())
	assert.Equal(t, 0, fx.states.count(), "no state row before the first delivery attempt")
}

func TestWeeklyOnlyFiresOnConfiguredDay(t *testing.T) {
	fx := newFixture(300 * time.Second)
	fx.source.active = []*models.ReminderWithOwner{{
		Reminder: models.Reminder{
			ReminderID: 1, UserID: 42, Active: true,
			Frequency: models.FrequencyWeekly, DayOfWeek: 2, // Wednesday
			BaseTime: "10:00",
		},
		Timezone: "UTC",
	}}

	// 2025-06-02 is Monday; iterate the week at 10:01 local.
	for offset := 0; offset < 7; offset++ {
		fx.tick(time.Date(2025, time.June, 2+offset, 10, 1, 0, 0, time.UTC))
	}
	assert.Equal(t, 1, fx.notifier.sentReminders())
}

func advancedWeekendReminder(id int, userID int64) *models.ReminderWithOwner {
	return &models.ReminderWithOwner{
		Reminder: models.Reminder{
			ReminderID: id, UserID: userID, Active: true,
			Frequency: models.FrequencyDaily, DailyMode: models.DailyModeAdvanced,
			EvenTime: "08:00", OddTime: "20:00",
			WeekendOverride:   true,
			WeekendNoWorkTime: "10:00", WeekendWithWorkTime: "07:30",
			AskHour: 20,
		},
		Timezone: "UTC",
	}
}

func TestWeekendUnknownAnswerUsesNoWorkTime(t *testing.T) {
	fx := newFixture(300 * time.Second)
	fx.source.active = []*models.ReminderWithOwner{advancedWeekendReminder(1, 42)}

	// Saturday 2025-07-12, question never answered.
	fx.tick(time.Date(2025, time.July, 12, 7, 31, 0, 0, time.UTC))
	assert.Equal(t, 0, fx.notifier.sentReminders(), "with-work time must not apply")

	fx.tick(time.Date(2025, time.July, 12, 10, 0, 1, 0, time.UTC))
	assert.Equal(t, 1, fx.notifier.sentReminders())
}

func TestWeekendWithWorkAnswerUsesEarlyTime(t *testing.T) {
	fx := newFixture(300 * time.Second)
	fx.source.active = []*models.ReminderWithOwner{advancedWeekendReminder(1, 42)}

	saturday := time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC)
	fx.work.respond(1, saturday, true)

	fx.tick(time.Date(2025, time.July, 12, 7, 31, 0, 0, time.UTC))
	assert.Equal(t, 1, fx.notifier.sentReminders())
}

func TestWorkQuestionTargetsTomorrow(t *testing.T) {
	fx := newFixture(300 * time.Second)
	fx.source.work = []*models.ReminderWithOwner{advancedWeekendReminder(1, 42)}

	// Thursday evening: tomorrow is Friday, no question.
	fx.questionTick(time.Date(2025, time.July, 10, 20, 30, 0, 0, time.UTC))
	assert.Equal(t, 0, fx.notifier.sentQuestions())

	// Friday before the ask hour: not yet.
	fx.questionTick(time.Date(2025, time.July, 11, 19, 59, 0, 0, time.UTC))
	assert.Equal(t, 0, fx.notifier.sentQuestions())

	// Friday evening past the ask hour: one question, keyed by Saturday.
	fx.questionTick(time.Date(2025, time.July, 11, 20, 0, 30, 0, time.UTC))
	require.Equal(t, 1, fx.notifier.sentQuestions())

	saturday := time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC)
	status, err := fx.work.Get(context.Background(), 1, saturday)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.False(t, status.Responded)

	// Later ticks the same evening do not ask again.
	fx.questionTick(time.Date(2025, time.July, 11, 21, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, fx.notifier.sentQuestions())
}

func TestResolveTimeReadsTargetDate(t *testing.T) {
	// Answer recorded Friday evening for Saturday; Saturday's evaluation
	// must pick it up.
	fx := newFixture(300 * time.Second)
	rem := advancedWeekendReminder(1, 42)
	fx.source.work = []*models.ReminderWithOwner{rem}
	fx.source.active = []*models.ReminderWithOwner{rem}

	fx.questionTick(time.Date(2025, time.July, 11, 20, 0, 30, 0, time.UTC))
	require.Equal(t, 1, fx.notifier.sentQuestions())

	saturday := time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC)
	fx.work.respond(1, saturday, true)

	fx.tick(time.Date(2025, time.July, 12, 7, 30, 1, 0, time.UTC))
	assert.Equal(t, 1, fx.notifier.sentReminders())
}

func TestDeliveryFailureIsIsolated(t *testing.T) {
	fx := newFixture(300 * time.Second)
	fx.source.active = []*models.ReminderWithOwner{
		dailyReminder(1, 42, "09:00", "UTC"),
		dailyReminder(2, 43, "09:00", "UTC"),
	}
	fx.notifier.failIDs[1] = true

	at := time.Date(2025, time.July, 14, 9, 0, 1, 0, time.UTC)
	fx.tick(at)

	// The healthy reminder went out and was recorded.
	assert.Equal(t, 1, fx.notifier.sentReminders())
	date := models.DateOf(at)
	state, err := fx.states.Get(context.Background(), 2, date)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.NotNil(t, state.LastSent)

	// The failed one has no last_sent, so the next tick retries it
	// immediately (at-least-once).
	state, err = fx.states.Get(context.Background(), 1, date)
	require.NoError(t, err)
	assert.Nil(t, state)

	fx.notifier.failIDs[1] = false
	fx.tick(at.Add(time.Minute))
	assert.Equal(t, 2, fx.notifier.sentReminders(), "1 retried, 2 still inside the re-notify interval")
}
