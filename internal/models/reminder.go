package models

import "time"

// RaidReminder is an opt-in "remind me" marker, at most one per (raid, user).
// The scheduler consumes and deletes all reminders for a raid after the
// one-hour sweep fires.
type RaidReminder struct {
	ID        int64
	RaidID    int64
	UserID    int64
	CreatedAt time.Time
}
