package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"pillbot/internal/database"
	"pillbot/internal/models"
)

var ErrReminderNotFound = errors.New("reminder not found")

const reminderColumns = `reminder_id, user_id, active, frequency, base_time,
	day_of_week, day_of_month, month_fallback, daily_mode, even_time, odd_time,
	weekend_override, weekend_no_work_time, weekend_with_work_time, ask_hour, created_at`

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (user_id, active, frequency, base_time, day_of_week,
			day_of_month, month_fallback, daily_mode, even_time, odd_time,
			weekend_override, weekend_no_work_time, weekend_with_work_time, ask_hour)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING reminder_id, created_at`,
		reminder.UserID, reminder.Active, reminder.Frequency, reminder.BaseTime,
		reminder.DayOfWeek, reminder.DayOfMonth, reminder.MonthFallback,
		reminder.DailyMode, reminder.EvenTime, reminder.OddTime,
		reminder.WeekendOverride, reminder.WeekendNoWorkTime,
		reminder.WeekendWithWorkTime, reminder.AskHour,
	).Scan(&reminder.ReminderID, &reminder.CreatedAt)
}

func scanReminder(row pgx.Row, reminder *models.Reminder, extra ...any) error {
	dest := []any{
		&reminder.ReminderID, &reminder.UserID, &reminder.Active,
		&reminder.Frequency, &reminder.BaseTime, &reminder.DayOfWeek,
		&reminder.DayOfMonth, &reminder.MonthFallback, &reminder.DailyMode,
		&reminder.EvenTime, &reminder.OddTime, &reminder.WeekendOverride,
		&reminder.WeekendNoWorkTime, &reminder.WeekendWithWorkTime,
		&reminder.AskHour, &reminder.CreatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func (r *ReminderRepository) GetByID(ctx context.Context, reminderID int, userID int64) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	err := scanReminder(r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE reminder_id = $1 AND user_id = $2`,
		reminderID, userID,
	), reminder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReminderNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

// ListByUser returns the user's active reminders.
func (r *ReminderRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE user_id = $1 AND active ORDER BY reminder_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder := &models.Reminder{}
		if err := scanReminder(rows, reminder); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

// ListActive returns every active reminder joined with its owner's
// timezone, for the per-tick evaluation loop.
func (r *ReminderRepository) ListActive(ctx context.Context) ([]*models.ReminderWithOwner, error) {
	return r.listWithOwner(ctx,
		`SELECT r.`+ownerJoinColumns+`, u.timezone
		 FROM reminders r JOIN users u ON r.user_id = u.user_id
		 WHERE r.active ORDER BY r.reminder_id`)
}

// ListNeedingWorkQuestion returns active advanced-daily reminders with
// weekend override enabled, for the evening question loop.
func (r *ReminderRepository) ListNeedingWorkQuestion(ctx context.Context) ([]*models.ReminderWithOwner, error) {
	return r.listWithOwner(ctx,
		`SELECT r.`+ownerJoinColumns+`, u.timezone
		 FROM reminders r JOIN users u ON r.user_id = u.user_id
		 WHERE r.active AND r.frequency = 'daily' AND r.daily_mode = 'advanced'
		   AND r.weekend_override ORDER BY r.reminder_id`)
}

const ownerJoinColumns = `reminder_id, r.user_id, r.active, r.frequency, r.base_time,
	r.day_of_week, r.day_of_month, r.month_fallback, r.daily_mode, r.even_time,
	r.odd_time, r.weekend_override, r.weekend_no_work_time, r.weekend_with_work_time,
	r.ask_hour, r.created_at`

func (r *ReminderRepository) listWithOwner(ctx context.Context, query string) ([]*models.ReminderWithOwner, error) {
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.ReminderWithOwner
	for rows.Next() {
		reminder := &models.ReminderWithOwner{}
		if err := scanReminder(rows, &reminder.Reminder, &reminder.Timezone); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

// Deactivate soft-deletes a reminder. Historical state rows are kept on
// purpose (audit retention). Returns false when the reminder does not
// exist or belongs to another user.
func (r *ReminderRepository) Deactivate(ctx context.Context, userID int64, reminderID int) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET active = FALSE WHERE reminder_id = $1 AND user_id = $2`,
		reminderID, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
