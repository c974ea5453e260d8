package service

import (
	"path/filepath"
	"testing"
	"time"

	"raidcall/internal/models"
)

func TestBackupRoundTrip(t *testing.T) {
	source := setupTestEnv(t)

	user := source.createUser(t, 100, "ada", "Rangers")
	raid := source.createRaid(t, "Night Run", "Rangers", time.Date(2026, 6, 25, 23, 0, 0, 0, source.loc))
	if err := source.participations.Upsert(raid.ID, user.ID, models.ParticipationSignedUp, time.Now()); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if _, err := source.reminders.Add(raid.ID, user.ID); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := source.pins.UpsertPinData(&models.RaidPinData{RaidID: raid.ID, Title: "Rendezvous", Km: 12, Description: "Bring supplies"}); err != nil {
		t.Fatalf("UpsertPinData() error: %v", err)
	}

	backupPath := filepath.Join(t.TempDir(), "backup.json")
	if err := NewBackupService(source.db).Export(backupPath); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	target := setupTestEnv(t)
	if err := NewBackupService(target.db).Import(backupPath); err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	restored, err := target.users.GetByGameID(user.GameID)
	if err != nil {
		t.Fatalf("GetByGameID() after import: %v", err)
	}
	if restored.Nickname != user.Nickname || restored.SquadName() != "Rangers" {
		t.Errorf("restored user = %+v", restored)
	}

	restoredRaid, err := target.raids.GetByID(raid.ID)
	if err != nil {
		t.Fatalf("GetByID() after import: %v", err)
	}
	if restoredRaid.Name != raid.Name || restoredRaid.Status != models.RaidStatusActive {
		t.Errorf("restored raid = %+v", restoredRaid)
	}

	part, err := target.participations.Get(raid.ID, user.ID)
	if err != nil {
		t.Fatalf("Get() after import: %v", err)
	}
	if part.Status != models.ParticipationSignedUp {
		t.Errorf("restored RSVP status = %q", part.Status)
	}

	count, err := target.reminders.CountByRaid(raid.ID)
	if err != nil {
		t.Fatalf("CountByRaid() after import: %v", err)
	}
	if count != 1 {
		t.Errorf("restored reminders = %d, want 1", count)
	}

	pin, err := target.pins.GetPinData(raid.ID)
	if err != nil {
		t.Fatalf("GetPinData() after import: %v", err)
	}
	if pin.Km != 12 {
		t.Errorf("restored pin = %+v", pin)
	}
}
