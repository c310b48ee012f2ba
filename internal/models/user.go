package models

import "time"

// User is created lazily on first interaction. The timezone is an IANA
// name and changes only through an explicit /timezone command.
type User struct {
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

const DefaultTimezone = "UTC"

// Location resolves the user's timezone, falling back to UTC when the
// stored name no longer loads.
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
