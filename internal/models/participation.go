package models

import "time"

// Participation status values. signed_up and declined flip freely while the
// raid is active; attended is set once by the scheduler and only from
// signed_up.
const (
	ParticipationSignedUp = "signed_up"
	ParticipationDeclined = "declined"
	ParticipationAttended = "attended"
)

// RaidParticipation is one user's RSVP state for one raid.
// At most one row exists per (raid, user).
type RaidParticipation struct {
	ID       int64
	RaidID   int64
	UserID   int64
	Status   string
	JoinedAt time.Time
	Nickname string // Populated via JOIN
}
