package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"raidcall/internal/database"
	"raidcall/internal/models"
	"raidcall/internal/notify"
	"raidcall/internal/repository"
)

type testEnv struct {
	db             *database.DB
	users          *repository.UserRepository
	raids          *repository.RaidRepository
	participations *repository.ParticipationRepository
	reminders      *repository.ReminderRepository
	pins           *repository.PinRepository
	locations      *repository.LocationRepository
	loc            *time.Location
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	// A file-backed database: ":memory:" would give every pooled
	// connection its own empty schema.
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	return &testEnv{
		db:             db,
		users:          repository.NewUserRepository(db),
		raids:          repository.NewRaidRepository(db),
		participations: repository.NewParticipationRepository(db),
		reminders:      repository.NewReminderRepository(db),
		pins:           repository.NewPinRepository(db),
		locations:      repository.NewLocationRepository(db),
		loc:            loc,
	}
}

func (e *testEnv) createUser(t *testing.T, gameID int64, nickname, squad string) *models.User {
	t.Helper()
	user := &models.User{GameID: gameID, Nickname: nickname}
	if squad != "" {
		user.Squad = &squad
	}
	if err := e.users.Create(user); err != nil {
		t.Fatalf("Failed to create test user %s: %v", nickname, err)
	}
	return user
}

func (e *testEnv) createRaid(t *testing.T, name, squad string, start time.Time) *models.RaidEvent {
	t.Helper()
	raid, err := e.raids.Create(name, squad, start, nil)
	if err != nil {
		t.Fatalf("Failed to create test raid %s: %v", name, err)
	}
	return raid
}

// recordingNotifier captures deliveries instead of sending them
type recordingNotifier struct {
	texts  []recordedText
	photos []recordedPhoto
	fail   map[int64]bool // ChatIDs whose sends should error
}

type recordedText struct {
	to      notify.Recipient
	text    string
	buttons [][]notify.Button
}

type recordedPhoto struct {
	to       notify.Recipient
	photoRef string
	caption  string
}

func (n *recordingNotifier) SendText(_ context.Context, to notify.Recipient, text string, buttons [][]notify.Button) error {
	if n.fail[to.ChatID] {
		return context.DeadlineExceeded
	}
	n.texts = append(n.texts, recordedText{to, text, buttons})
	return nil
}

func (n *recordingNotifier) SendPhoto(_ context.Context, to notify.Recipient, photoRef, caption string) error {
	if n.fail[to.ChatID] {
		return context.DeadlineExceeded
	}
	n.photos = append(n.photos, recordedPhoto{to, photoRef, caption})
	return nil
}

func (n *recordingNotifier) chatIDs() []int64 {
	var ids []int64
	for _, m := range n.texts {
		ids = append(ids, m.to.ChatID)
	}
	return ids
}
