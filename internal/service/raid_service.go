package service

import (
	"errors"
	"fmt"
	"time"

	"raidcall/internal/models"
	"raidcall/internal/repository"
)

const upcomingLimit = 5

// ErrRaidClosed is returned for RSVPs and reminders on raids that already
// finished or were cancelled
var ErrRaidClosed = errors.New("raid is no longer active")

// RaidService exposes the player-facing raid operations: RSVPs, reminder
// opt-ins, the upcoming listing and the admin reports.
type RaidService struct {
	raids          *repository.RaidRepository
	participations *repository.ParticipationRepository
	reminders      *repository.ReminderRepository
	pins           *repository.PinRepository
	users          *repository.UserRepository
}

// NewRaidService creates a raid service
func NewRaidService(
	raids *repository.RaidRepository,
	participations *repository.ParticipationRepository,
	reminders *repository.ReminderRepository,
	pins *repository.PinRepository,
	users *repository.UserRepository,
) *RaidService {
	return &RaidService{
		raids:          raids,
		participations: participations,
		reminders:      reminders,
		pins:           pins,
		users:          users,
	}
}

// Create persists a new active raid
func (s *RaidService) Create(name, squad string, startTime time.Time, locationID *int64) (*models.RaidEvent, error) {
	return s.raids.Create(name, squad, startTime, locationID)
}

// GetByID retrieves one raid
func (s *RaidService) GetByID(id int64) (*models.RaidEvent, error) {
	return s.raids.GetByID(id)
}

// ActiveOrdered lists active raids, soonest first
func (s *RaidService) ActiveOrdered() ([]models.RaidEvent, error) {
	return s.raids.ActiveOrdered()
}

// Recent lists the latest raids regardless of status
func (s *RaidService) Recent(limit int) ([]models.RaidEvent, error) {
	return s.raids.Recent(limit)
}

// Delete removes a raid and everything hanging off it
func (s *RaidService) Delete(id int64) error {
	return s.raids.Delete(id)
}

// Join records a sign-up for the raid. Pressing the button again just
// refreshes the row.
func (s *RaidService) Join(gameID, raidID int64) (*models.RaidEvent, error) {
	return s.rsvp(gameID, raidID, models.ParticipationSignedUp)
}

// Decline records a refusal for the raid, replacing any earlier sign-up
func (s *RaidService) Decline(gameID, raidID int64) (*models.RaidEvent, error) {
	return s.rsvp(gameID, raidID, models.ParticipationDeclined)
}

func (s *RaidService) rsvp(gameID, raidID int64, status string) (*models.RaidEvent, error) {
	user, err := s.users.GetByGameID(gameID)
	if err != nil {
		return nil, err
	}
	raid, err := s.raids.GetByID(raidID)
	if err != nil {
		return nil, err
	}
	if raid.Status != models.RaidStatusActive {
		return nil, fmt.Errorf("raid %d: %w", raidID, ErrRaidClosed)
	}
	if err := s.participations.Upsert(raidID, user.ID, status, time.Now()); err != nil {
		return nil, fmt.Errorf("recording RSVP for raid %d: %w", raidID, err)
	}
	return raid, nil
}

// SetReminder opts the player into the one-hour reminder for the raid.
// Returns false when the player was already opted in.
func (s *RaidService) SetReminder(gameID, raidID int64) (bool, *models.RaidEvent, error) {
	user, err := s.users.GetByGameID(gameID)
	if err != nil {
		return false, nil, err
	}
	raid, err := s.raids.GetByID(raidID)
	if err != nil {
		return false, nil, err
	}
	if raid.Status != models.RaidStatusActive {
		return false, nil, fmt.Errorf("raid %d: %w", raidID, ErrRaidClosed)
	}
	created, err := s.reminders.Add(raidID, user.ID)
	if err != nil {
		return false, nil, fmt.Errorf("adding reminder for raid %d: %w", raidID, err)
	}
	return created, raid, nil
}

// UpcomingRaid is one entry of the player-facing listing: the raid, its pin
// content when one was issued, and the caller's current RSVP (empty when
// the caller has not answered).
type UpcomingRaid struct {
	Raid models.RaidEvent
	Pin  *models.RaidPinData
	RSVP string
}

// Upcoming lists the next raids the caller can join, soonest first
func (s *RaidService) Upcoming(gameID int64, now time.Time) ([]UpcomingRaid, error) {
	user, err := s.users.GetByGameID(gameID)
	if err != nil {
		return nil, err
	}
	raids, err := s.raids.Upcoming(now, upcomingLimit)
	if err != nil {
		return nil, err
	}

	out := make([]UpcomingRaid, 0, len(raids))
	for _, raid := range raids {
		entry := UpcomingRaid{Raid: raid}

		pin, err := s.pins.GetPinData(raid.ID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
		entry.Pin = pin

		part, err := s.participations.Get(raid.ID, user.ID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
		if part != nil {
			entry.RSVP = part.Status
		}

		out = append(out, entry)
	}
	return out, nil
}

// ParticipantReport is the admin view of who answered a raid pin and who
// stayed silent
type ParticipantReport struct {
	Raid     *models.RaidEvent
	SignedUp []string
	Declined []string
	Attended []string
	Silent   []string
}

// Participants builds the report for one raid. Silent players are those the
// pin reached who never pressed a button.
func (s *RaidService) Participants(raidID int64) (*ParticipantReport, error) {
	raid, err := s.raids.GetByID(raidID)
	if err != nil {
		return nil, err
	}

	parts, err := s.participations.ByRaid(raidID)
	if err != nil {
		return nil, err
	}

	report := &ParticipantReport{Raid: raid}
	responded := make(map[int64]bool, len(parts))
	for _, p := range parts {
		responded[p.UserID] = true
		switch p.Status {
		case models.ParticipationSignedUp:
			report.SignedUp = append(report.SignedUp, p.Nickname)
		case models.ParticipationDeclined:
			report.Declined = append(report.Declined, p.Nickname)
		case models.ParticipationAttended:
			report.Attended = append(report.Attended, p.Nickname)
		}
	}

	invited, err := s.pins.InvitedUserIDs(raidID)
	if err != nil {
		return nil, err
	}
	for _, gameID := range invited {
		user, err := s.users.GetByGameID(gameID)
		if err != nil {
			if repository.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if !responded[user.ID] {
			report.Silent = append(report.Silent, user.Nickname)
		}
	}
	return report, nil
}

// WeeklyActivity counts each player's RSVPs over the last seven days,
// busiest first
func (s *RaidService) WeeklyActivity(now time.Time) ([]repository.ActivityCount, error) {
	return s.participations.ActivitySince(now.AddDate(0, 0, -7))
}
