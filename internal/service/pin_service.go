package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"raidcall/internal/models"
	"raidcall/internal/notify"
	"raidcall/internal/repository"
)

// PinService composes and delivers raid pins: the announcement message with
// RSVP buttons sent to every player in the raid's audience.
type PinService struct {
	raids     *repository.RaidRepository
	pins      *repository.PinRepository
	users     *repository.UserRepository
	locations *repository.LocationRepository
	notifier  notify.Notifier
	loc       *time.Location
}

// NewPinService creates a pin service. locations may be nil when no landmark
// table is maintained.
func NewPinService(
	raids *repository.RaidRepository,
	pins *repository.PinRepository,
	users *repository.UserRepository,
	locations *repository.LocationRepository,
	notifier notify.Notifier,
	loc *time.Location,
) *PinService {
	return &PinService{raids: raids, pins: pins, users: users, locations: locations, notifier: notifier, loc: loc}
}

// SendPin stores the pin content for the raid, resolves the raid's audience
// and delivers the pin to each player. Returns the number of successful
// deliveries; individual failures are logged, not fatal.
func (s *PinService) SendPin(ctx context.Context, adminID, raidID int64, km int, title, description string) (int, error) {
	raid, err := s.raids.GetByID(raidID)
	if err != nil {
		return 0, err
	}

	pin := &models.RaidPinData{RaidID: raidID, Title: title, Km: km, Description: description}
	if err := s.pins.UpsertPinData(pin); err != nil {
		return 0, fmt.Errorf("storing pin for raid %d: %w", raidID, err)
	}

	recipients, err := resolveAudience(s.users, raid.Squad)
	if err != nil {
		return 0, fmt.Errorf("resolving audience for raid %d: %w", raidID, err)
	}

	text := s.renderPin(raid, pin)
	buttons := [][]notify.Button{
		{
			{Text: "I'm in", Data: fmt.Sprintf("raid_join_%d", raidID)},
			{Text: "Can't make it", Data: fmt.Sprintf("raid_leave_%d", raidID)},
		},
		{
			{Text: "Remind me 1h before", Data: fmt.Sprintf("remind_%d", raidID)},
		},
	}

	batchID := uuid.NewString()
	sent := 0
	for _, u := range recipients {
		if err := s.notifier.SendText(ctx, recipientOf(u), text, buttons); err != nil {
			log.Printf("Failed to send pin for raid %d to %s: %v", raidID, u.Nickname, err)
			continue
		}
		sent++
		logEntry := &models.PinSendLog{
			BatchID:  batchID,
			AdminID:  adminID,
			TargetID: u.GameID,
			RaidID:   &raidID,
			PinText:  text,
			SentAt:   time.Now(),
		}
		if err := s.pins.AddSendLog(logEntry); err != nil {
			log.Printf("Failed to record pin delivery for raid %d to %s: %v", raidID, u.Nickname, err)
		}
	}

	log.Printf("Pin for raid %d sent: batch=%s, delivered=%d/%d", raidID, batchID, sent, len(recipients))
	return sent, nil
}

// Journal returns the most recent pin send batches, newest first
func (s *PinService) Journal(limit int) ([]models.PinBatch, error) {
	return s.pins.RecentBatches(limit)
}

func (s *PinService) renderPin(raid *models.RaidEvent, pin *models.RaidPinData) string {
	text := fmt.Sprintf("%s\n\nRaid: %s\nStart: %s\nDistance: %d km\n\n%s",
		pin.Title,
		raid.Name,
		raid.StartTime.In(s.loc).Format("02.01.2006 15:04"),
		pin.Km,
		pin.Description,
	)
	if landmark := s.landmarkAt(pin.Km); landmark != nil {
		text += fmt.Sprintf("\n\nLandmark: %s. %s", landmark.Title, landmark.Description)
	}
	return text
}

// landmarkAt returns the landmark at the kilometre mark, or nil when none
// is recorded
func (s *PinService) landmarkAt(km int) *models.LocationInfo {
	if s.locations == nil {
		return nil
	}
	landmark, err := s.locations.GetByKm(km)
	if err != nil {
		if !repository.IsNotFound(err) {
			log.Printf("Landmark lookup for km %d failed: %v", km, err)
		}
		return nil
	}
	return landmark
}
