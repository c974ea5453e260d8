package models

import "time"

// User represents a registered player
type User struct {
	ID        int64
	GameID    int64
	Nickname  string
	Faction   string
	Squad     *string
	Role      string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}

// SquadName returns the user's squad or an empty string when unassigned
func (u *User) SquadName() string {
	if u.Squad == nil {
		return ""
	}
	return *u.Squad
}
