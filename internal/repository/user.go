package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"pillbot/internal/database"
	"pillbot/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate lazily registers the user on first interaction.
func (r *UserRepository) GetOrCreate(ctx context.Context, userID int64, userName string) (*models.User, error) {
	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (user_id, user_name) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET user_name = EXCLUDED.user_name
		 RETURNING user_id, user_name, timezone, created_at`,
		userID, userName,
	).Scan(&user.UserID, &user.UserName, &user.Timezone, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Timezone returns the stored IANA timezone name, defaulting to UTC for
// users that have not interacted yet.
func (r *UserRepository) Timezone(ctx context.Context, userID int64) (string, error) {
	var tz string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT timezone FROM users WHERE user_id = $1`, userID,
	).Scan(&tz)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultTimezone, nil
	}
	if err != nil {
		return "", err
	}
	return tz, nil
}

// SetTimezone stores a timezone name. Callers validate the name with
// time.LoadLocation before persisting.
func (r *UserRepository) SetTimezone(ctx context.Context, userID int64, timezone string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO users (user_id, timezone) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET timezone = EXCLUDED.timezone`,
		userID, timezone,
	)
	return err
}
