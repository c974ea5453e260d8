package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"raidcall/internal/models"
	"raidcall/internal/notify"
	"raidcall/internal/repository"
)

const (
	raidExpiryAge     = 2 * time.Hour
	reminderLeadShort = 30 * time.Minute
	reminderLeadLong  = 60 * time.Minute
	// Sweep windows are +/-1 minute around the lead time so a raid is
	// caught exactly once by a loop that fires every 60 seconds.
	sweepHalfWidth = time.Minute
)

// Scheduler drives the raid lifecycle: expiring stale raids, promoting
// attendance when a raid finishes, and sending the T-30/T-60 reminders.
type Scheduler struct {
	raids          *repository.RaidRepository
	participations *repository.ParticipationRepository
	reminders      *repository.ReminderRepository
	notifier       notify.Notifier
	loc            *time.Location
	interval       time.Duration
}

// NewScheduler creates a scheduler ticking at the given interval
func NewScheduler(
	raids *repository.RaidRepository,
	participations *repository.ParticipationRepository,
	reminders *repository.ReminderRepository,
	notifier notify.Notifier,
	loc *time.Location,
	interval time.Duration,
) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		raids:          raids,
		participations: participations,
		reminders:      reminders,
		notifier:       notifier,
		loc:            loc,
		interval:       interval,
	}
}

// Run ticks until the context is cancelled or a tick fails on the store.
// A broken database means every later pass would misbehave, so the loop
// stops and lets the caller decide whether to restart.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("Raid scheduler started: interval=%s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Raid scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx, time.Now().In(s.loc)); err != nil {
				return fmt.Errorf("scheduler tick: %w", err)
			}
		}
	}
}

// Tick runs one scheduler pass at the given instant. The four stages run
// in order; a store error aborts the tick, a failed delivery does not.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	if err := s.expireStaleRaids(now); err != nil {
		return err
	}
	if err := s.promoteAttendance(); err != nil {
		return err
	}
	if err := s.sendStartReminders(ctx, now); err != nil {
		return err
	}
	return s.sendOptInReminders(ctx, now)
}

// expireStaleRaids finishes active raids that started more than two hours ago
func (s *Scheduler) expireStaleRaids(now time.Time) error {
	expired, err := s.raids.ExpireStartedBefore(now.Add(-raidExpiryAge))
	if err != nil {
		return fmt.Errorf("expiring stale raids: %w", err)
	}
	if expired > 0 {
		log.Printf("Marked %d raids as finished", expired)
	}
	return nil
}

// promoteAttendance converts signed-up RSVPs on finished raids into attendance
func (s *Scheduler) promoteAttendance() error {
	promoted, err := s.participations.PromoteFinished()
	if err != nil {
		return fmt.Errorf("promoting attendance: %w", err)
	}
	if promoted > 0 {
		log.Printf("Promoted %d sign-ups to attendance", promoted)
	}
	return nil
}

// sendStartReminders notifies everyone signed up for raids starting in ~30 minutes
func (s *Scheduler) sendStartReminders(ctx context.Context, now time.Time) error {
	raids, err := s.raids.ActiveStartingBetween(
		now.Add(reminderLeadShort-sweepHalfWidth),
		now.Add(reminderLeadShort+sweepHalfWidth),
	)
	if err != nil {
		return fmt.Errorf("querying raids for start reminders: %w", err)
	}

	for _, raid := range raids {
		users, err := s.participations.UsersByRaidStatus(raid.ID, models.ParticipationSignedUp)
		if err != nil {
			return fmt.Errorf("querying sign-ups for raid %d: %w", raid.ID, err)
		}
		text := fmt.Sprintf("Raid %q starts in 30 minutes. Get ready!", raid.Name)
		s.deliver(ctx, users, text, "start reminder", raid.ID)
	}
	return nil
}

// sendOptInReminders notifies users who asked for a heads-up an hour before
// the raid, then clears the reminder rows so the next tick sends nothing.
func (s *Scheduler) sendOptInReminders(ctx context.Context, now time.Time) error {
	raids, err := s.raids.ActiveStartingBetween(
		now.Add(reminderLeadLong-sweepHalfWidth),
		now.Add(reminderLeadLong+sweepHalfWidth),
	)
	if err != nil {
		return fmt.Errorf("querying raids for opt-in reminders: %w", err)
	}

	for _, raid := range raids {
		users, err := s.reminders.UsersByRaid(raid.ID)
		if err != nil {
			return fmt.Errorf("querying reminders for raid %d: %w", raid.ID, err)
		}
		text := fmt.Sprintf("Reminder: raid %q starts in 1 hour, at %s.",
			raid.Name, raid.StartTime.In(s.loc).Format("15:04"))
		s.deliver(ctx, users, text, "opt-in reminder", raid.ID)

		if err := s.reminders.DeleteByRaid(raid.ID); err != nil {
			return fmt.Errorf("clearing reminders for raid %d: %w", raid.ID, err)
		}
	}
	return nil
}

// deliver sends text to each user individually, logging failures and moving on
func (s *Scheduler) deliver(ctx context.Context, users []models.User, text, kind string, raidID int64) {
	for _, u := range users {
		if err := s.notifier.SendText(ctx, recipientOf(u), text, nil); err != nil {
			log.Printf("Failed to send %s for raid %d to %s: %v", kind, raidID, u.Nickname, err)
		}
	}
	if len(users) > 0 {
		log.Printf("Sent %s for raid %d to %d users", kind, raidID, len(users))
	}
}
