package models

import (
	"strings"
	"time"
)

// Raid status values. A raid only ever moves forward: active raids are
// finished by the scheduler or cancelled by an admin, never reactivated.
const (
	RaidStatusActive    = "active"
	RaidStatusFinished  = "finished"
	RaidStatusCancelled = "cancelled"
)

// Audience sentinels stored in RaidEvent.Squad. Anything else is a
// comma-joined list of squad names resolved against current membership
// at send time.
const (
	AudienceAllUsers  = "ALL_USERS"
	AudienceAllSquads = "ALL_SQUADS"
)

// RaidEvent is a scheduled cooperative event
type RaidEvent struct {
	ID         int64
	Name       string
	Squad      string
	StartTime  time.Time
	CreatedAt  time.Time
	Status     string
	LocationID *int64
}

// SquadList splits an explicit audience descriptor into trimmed squad names.
// Returns nil for the sentinel audiences.
func (r *RaidEvent) SquadList() []string {
	if r.Squad == AudienceAllUsers || r.Squad == AudienceAllSquads {
		return nil
	}
	var squads []string
	for _, s := range strings.Split(r.Squad, ",") {
		if s = strings.TrimSpace(s); s != "" {
			squads = append(squads, s)
		}
	}
	return squads
}
