package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"pillbot/internal/database"
	"pillbot/internal/models"
)

type ReminderStateRepository struct {
	db *database.DB
}

func NewReminderStateRepository(db *database.DB) *ReminderStateRepository {
	return &ReminderStateRepository{db: db}
}

// Get returns the state row for (reminder, date), or nil when the date is
// still unsent.
func (r *ReminderStateRepository) Get(ctx context.Context, reminderID int, date time.Time) (*models.ReminderState, error) {
	state := &models.ReminderState{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT reminder_id, state_date, last_sent, acknowledged
		 FROM reminder_states WHERE reminder_id = $1 AND state_date = $2`,
		reminderID, date,
	).Scan(&state.ReminderID, &state.StateDate, &state.LastSent, &state.Acknowledged)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// MarkSent records a delivery attempt: creates the row on first delivery,
// refreshes last_sent on re-notification. The acknowledged flag is left
// untouched.
func (r *ReminderStateRepository) MarkSent(ctx context.Context, userID int64, reminderID int, date time.Time, sentAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO reminder_states (user_id, reminder_id, state_date, last_sent)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (reminder_id, state_date) DO UPDATE SET last_sent = EXCLUDED.last_sent`,
		userID, reminderID, date, sentAt.UTC(),
	)
	return err
}

// Acknowledge marks the date as acknowledged. Idempotent upsert: a second
// call is a no-op, and acknowledging before the first delivery attempt
// still creates the terminal row.
func (r *ReminderStateRepository) Acknowledge(ctx context.Context, userID int64, reminderID int, date time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO reminder_states (user_id, reminder_id, state_date, acknowledged)
		 VALUES ($1, $2, $3, TRUE)
		 ON CONFLICT (reminder_id, state_date) DO UPDATE SET acknowledged = TRUE`,
		userID, reminderID, date,
	)
	return err
}
