package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"pillbot/internal/database"
	"pillbot/internal/models"
)

type WorkStatusRepository struct {
	db *database.DB
}

func NewWorkStatusRepository(db *database.DB) *WorkStatusRepository {
	return &WorkStatusRepository{db: db}
}

// Get returns the work-status row for (reminder, target date), or nil
// when the question has not been asked yet.
func (r *WorkStatusRepository) Get(ctx context.Context, reminderID int, targetDate time.Time) (*models.WorkStatus, error) {
	status := &models.WorkStatus{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT reminder_id, target_date, asked_at, responded, has_work
		 FROM work_statuses WHERE reminder_id = $1 AND target_date = $2`,
		reminderID, targetDate,
	).Scan(&status.ReminderID, &status.TargetDate, &status.AskedAt, &status.Responded, &status.HasWork)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return status, nil
}

// CreateAsked records that the question was asked for the target date.
// The unique row is the once-per-evening guard, so conflicts are ignored.
func (r *WorkStatusRepository) CreateAsked(ctx context.Context, reminderID int, targetDate time.Time, askedAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO work_statuses (reminder_id, target_date, asked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (reminder_id, target_date) DO NOTHING`,
		reminderID, targetDate, askedAt.UTC(),
	)
	return err
}

// SetResponse stores the user's yes/no answer for the target date.
func (r *WorkStatusRepository) SetResponse(ctx context.Context, reminderID int, targetDate time.Time, hasWork bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO work_statuses (reminder_id, target_date, asked_at, responded, has_work)
		 VALUES ($1, $2, NOW(), TRUE, $3)
		 ON CONFLICT (reminder_id, target_date)
		 DO UPDATE SET responded = TRUE, has_work = EXCLUDED.has_work`,
		reminderID, targetDate, hasWork,
	)
	return err
}
