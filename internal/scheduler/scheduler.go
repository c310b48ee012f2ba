// Package scheduler owns the two periodic loops: reminder evaluation and
// the evening work-status question. Both run every minute; dispatches are
// fire-and-forget so one slow or failing delivery never blocks the rest
// of the tick.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"pillbot/internal/models"
	"pillbot/internal/recurrence"
)

// ReminderSource lists reminders for evaluation.
type ReminderSource interface {
	ListActive(ctx context.Context) ([]*models.ReminderWithOwner, error)
	ListNeedingWorkQuestion(ctx context.Context) ([]*models.ReminderWithOwner, error)
}

// StateStore tracks per (reminder, date) delivery state.
type StateStore interface {
	Get(ctx context.Context, reminderID int, date time.Time) (*models.ReminderState, error)
	MarkSent(ctx context.Context, userID int64, reminderID int, date time.Time, sentAt time.Time) error
}

// WorkStatusStore tracks the evening work question per (reminder, date).
type WorkStatusStore interface {
	Get(ctx context.Context, reminderID int, targetDate time.Time) (*models.WorkStatus, error)
	CreateAsked(ctx context.Context, reminderID int, targetDate time.Time, askedAt time.Time) error
}

// Notifier delivers messages to the user.
type Notifier interface {
	SendReminder(ctx context.Context, userID int64, reminderID int, date time.Time) error
	SendWorkQuestion(ctx context.Context, userID int64, reminderID int, date time.Time) error
}

const (
	tickSpec        = "@every 1m"
	dispatchTimeout = 30 * time.Second
)

type Scheduler struct {
	reminders ReminderSource
	states    StateStore
	work      WorkStatusStore
	notifier  Notifier

	// renotifyInterval is the minimum gap between deliveries of an
	// unacknowledged reminder.
	renotifyInterval time.Duration

	cron *cron.Cron
	log  *logrus.Logger
	now  func() time.Time
	wg   sync.WaitGroup
}

func New(
	reminders ReminderSource,
	states StateStore,
	work WorkStatusStore,
	notifier Notifier,
	renotifyInterval time.Duration,
	log *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		reminders:        reminders,
		states:           states,
		work:             work,
		notifier:         notifier,
		renotifyInterval: renotifyInterval,
		cron:             cron.New(),
		log:              log,
		now:              time.Now,
	}
}

// Start registers the two repeating jobs and starts the cron engine.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(tickSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.CheckReminders(ctx)
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(tickSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.CheckWorkQuestions(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Scheduler started: reminder check and work question jobs registered")
	return nil
}

// Stop halts the cron engine, waits for running jobs and lets in-flight
// dispatches complete.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

// CheckReminders runs one evaluation tick over every active reminder.
// Failures are isolated per reminder.
func (s *Scheduler) CheckReminders(ctx context.Context) {
	nowUTC := s.now().UTC()

	reminders, err := s.reminders.ListActive(ctx)
	if err != nil {
		s.log.Errorf("Failed to list active reminders: %v", err)
		return
	}

	for _, rem := range reminders {
		if err := s.evaluate(ctx, rem, nowUTC); err != nil {
			s.log.WithFields(logrus.Fields{
				"reminder_id": rem.ReminderID,
				"user_id":     rem.UserID,
			}).Errorf("Reminder evaluation failed: %v", err)
		}
	}
}

// evaluate applies the recurrence rule and the acknowledgement state
// machine to a single reminder and dispatches when a delivery is owed.
func (s *Scheduler) evaluate(ctx context.Context, rem *models.ReminderWithOwner, nowUTC time.Time) error {
	loc, err := time.LoadLocation(rem.Timezone)
	if err != nil {
		loc = time.UTC
	}
	localNow := nowUTC.In(loc)
	today := models.DateOf(localNow)

	state, err := s.states.Get(ctx, rem.ReminderID, today)
	if err != nil {
		return err
	}
	if state != nil && state.Acknowledged {
		return nil
	}

	if !recurrence.IsDue(&rem.Reminder, today) {
		return nil
	}

	var hasWork *bool
	if rem.NeedsWorkQuestion() && recurrence.IsWeekend(today) {
		status, err := s.work.Get(ctx, rem.ReminderID, today)
		if err != nil {
			return err
		}
		if status != nil && status.Responded {
			hasWork = &status.HasWork
		}
	}

	clock, ok := recurrence.ResolveTime(&rem.Reminder, today, hasWork)
	if !ok {
		s.log.WithField("reminder_id", rem.ReminderID).Debug("No time configured for today, skipping")
		return nil
	}
	due, err := recurrence.At(today, clock, loc)
	if err != nil {
		return err
	}
	if localNow.Before(due) {
		return nil
	}

	if !shouldDispatch(state, nowUTC, s.renotifyInterval) {
		return nil
	}

	s.dispatchReminder(rem, today, nowUTC)
	return nil
}

// shouldDispatch implements the unsent -> sent -> re-notify timing. The
// acknowledged check happens earlier; here only delivery spacing matters.
func shouldDispatch(state *models.ReminderState, nowUTC time.Time, interval time.Duration) bool {
	if state == nil || state.LastSent == nil {
		return true
	}
	return nowUTC.Sub(*state.LastSent) >= interval
}

// dispatchReminder delivers asynchronously. The state row is updated only
// after a successful send, so a failed delivery is retried next tick
// (at-least-once, deduplicated by acknowledgement).
func (s *Scheduler) dispatchReminder(rem *models.ReminderWithOwner, date time.Time, sentAt time.Time) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := s.notifier.SendReminder(ctx, rem.UserID, rem.ReminderID, date); err != nil {
			s.log.WithFields(logrus.Fields{
				"reminder_id": rem.ReminderID,
				"user_id":     rem.UserID,
			}).Errorf("Reminder delivery failed: %v", err)
			return
		}
		if err := s.states.MarkSent(ctx, rem.UserID, rem.ReminderID, date, sentAt); err != nil {
			s.log.WithField("reminder_id", rem.ReminderID).Errorf("Failed to record delivery: %v", err)
		}
	}()
}

// CheckWorkQuestions asks, once per eligible evening, whether tomorrow is
// a workday. The question targets tomorrow's date; row existence in the
// work-status store is the once-only guard.
func (s *Scheduler) CheckWorkQuestions(ctx context.Context) {
	nowUTC := s.now().UTC()

	reminders, err := s.reminders.ListNeedingWorkQuestion(ctx)
	if err != nil {
		s.log.Errorf("Failed to list reminders needing work question: %v", err)
		return
	}

	for _, rem := range reminders {
		loc, err := time.LoadLocation(rem.Timezone)
		if err != nil {
			loc = time.UTC
		}
		localNow := nowUTC.In(loc)
		tomorrow := models.DateOf(localNow.AddDate(0, 0, 1))

		if !recurrence.IsWeekend(tomorrow) {
			continue
		}
		if localNow.Hour() < rem.AskHour {
			continue
		}

		status, err := s.work.Get(ctx, rem.ReminderID, tomorrow)
		if err != nil {
			s.log.WithField("reminder_id", rem.ReminderID).Errorf("Failed to read work status: %v", err)
			continue
		}
		if status != nil {
			continue
		}

		if err := s.work.CreateAsked(ctx, rem.ReminderID, tomorrow, nowUTC); err != nil {
			s.log.WithField("reminder_id", rem.ReminderID).Errorf("Failed to record work question: %v", err)
			continue
		}

		s.dispatchWorkQuestion(rem, tomorrow)
	}
}

func (s *Scheduler) dispatchWorkQuestion(rem *models.ReminderWithOwner, targetDate time.Time) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := s.notifier.SendWorkQuestion(ctx, rem.UserID, rem.ReminderID, targetDate); err != nil {
			s.log.WithFields(logrus.Fields{
				"reminder_id": rem.ReminderID,
				"user_id":     rem.UserID,
			}).Errorf("Work question delivery failed: %v", err)
		}
	}()
}
