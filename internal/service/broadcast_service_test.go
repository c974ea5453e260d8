package service

import (
	"context"
	"testing"

	"raidcall/internal/models"
	"raidcall/internal/wizard"
)

func TestBroadcastServiceText(t *testing.T) {
	e := setupTestEnv(t)
	notifier := &recordingNotifier{}
	svc := NewBroadcastService(e.users, notifier)

	e.createUser(t, 100, "ada", "Rangers")
	e.createUser(t, 101, "bors", "Outcasts")
	e.createUser(t, 102, "drifter", "")

	content := wizard.BroadcastContent{Text: "Server maintenance at dawn"}
	sent, err := svc.SendBroadcast(context.Background(), content, models.AudienceAllUsers)
	if err != nil {
		t.Fatalf("SendBroadcast() error: %v", err)
	}
	if sent != 3 {
		t.Errorf("sent = %d, want every registered user", sent)
	}
	if len(notifier.texts) != 3 || notifier.texts[0].text != content.Text {
		t.Errorf("deliveries = %+v", notifier.texts)
	}
}

func TestBroadcastServicePhotoToSquad(t *testing.T) {
	e := setupTestEnv(t)
	notifier := &recordingNotifier{}
	svc := NewBroadcastService(e.users, notifier)

	ranger := e.createUser(t, 100, "ada", "Rangers")
	e.createUser(t, 101, "bors", "Outcasts")

	content := wizard.BroadcastContent{PhotoRef: "file-1", Caption: "the map"}
	sent, err := svc.SendBroadcast(context.Background(), content, "Rangers")
	if err != nil {
		t.Fatalf("SendBroadcast() error: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
	if len(notifier.photos) != 1 {
		t.Fatalf("photos = %d, want 1", len(notifier.photos))
	}
	photo := notifier.photos[0]
	if photo.to.ChatID != ranger.GameID || photo.photoRef != "file-1" || photo.caption != "the map" {
		t.Errorf("photo delivery = %+v", photo)
	}
}

func TestBroadcastServicePartialFailure(t *testing.T) {
	e := setupTestEnv(t)
	notifier := &recordingNotifier{fail: map[int64]bool{100: true}}
	svc := NewBroadcastService(e.users, notifier)

	e.createUser(t, 100, "ada", "Rangers")
	e.createUser(t, 101, "bors", "Rangers")

	sent, err := svc.SendBroadcast(context.Background(), wizard.BroadcastContent{Text: "hello"}, models.AudienceAllUsers)
	if err != nil {
		t.Fatalf("SendBroadcast() error: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1 despite one failure", sent)
	}
}
