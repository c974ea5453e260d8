package service

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestScheduler(e *testEnv, n *recordingNotifier) *Scheduler {
	return NewScheduler(e.raids, e.participations, e.reminders, n, e.loc, time.Minute)
}

func TestSchedulerExpiresStaleRaids(t *testing.T) {
	e := setupTestEnv(t)
	notifier := &recordingNotifier{}
	sched := newTestScheduler(e, notifier)

	now := time.Date(2026, 6, 25, 12, 0, 0, 0, e.loc)
	stale := e.createRaid(t, "Old Run", "Rangers", now.Add(-3*time.Hour))
	fresh := e.createRaid(t, "Fresh Run", "Rangers", now.Add(-time.Hour))

	if err := sched.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	got, err := e.raids.GetByID(stale.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Status != "finished" {
		t.Errorf("stale raid status = %q, want finished", got.Status)
	}

	got, _ = e.raids.GetByID(fresh.ID)
	if got.Status != "active" {
		t.Errorf("fresh raid status = %q, want active", got.Status)
	}

	// A second tick must not disturb anything
	if err := sched.Tick(context.Background(), now.Add(time.Minute)); err != nil {
		t.Fatalf("second Tick() error: %v", err)
	}
	got, _ = e.raids.GetByID(stale.ID)
	if got.Status != "finished" {
		t.Errorf("stale raid status after second tick = %q, want finished", got.Status)
	}
}

func TestSchedulerPromotesAttendance(t *testing.T) {
	e := setupTestEnv(t)
	sched := newTestScheduler(e, &recordingNotifier{})

	now := time.Date(2026, 6, 25, 12, 0, 0, 0, e.loc)
	raid := e.createRaid(t, "Old Run", "Rangers", now.Add(-3*time.Hour))
	joiner := e.createUser(t, 100, "ada", "Rangers")
	decliner := e.createUser(t, 101, "bors", "Rangers")

	if err := e.participations.Upsert(raid.ID, joiner.ID, "signed_up", now); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if err := e.participations.Upsert(raid.ID, decliner.ID, "declined", now); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	// One tick both expires the raid and promotes its sign-ups
	if err := sched.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	part, err := e.participations.Get(raid.ID, joiner.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if part.Status != "attended" {
		t.Errorf("joiner status = %q, want attended", part.Status)
	}

	part, _ = e.participations.Get(raid.ID, decliner.ID)
	if part.Status != "declined" {
		t.Errorf("decliner status = %q, want declined untouched", part.Status)
	}
}

func TestSchedulerStartReminders(t *testing.T) {
	e := setupTestEnv(t)
	notifier := &recordingNotifier{}
	sched := newTestScheduler(e, notifier)

	now := time.Date(2026, 6, 25, 12, 0, 0, 0, e.loc)
	soon := e.createRaid(t, "Night Run", "Rangers", now.Add(30*time.Minute))
	later := e.createRaid(t, "Day Run", "Rangers", now.Add(2*time.Hour))

	joiner := e.createUser(t, 100, "ada", "Rangers")
	decliner := e.createUser(t, 101, "bors", "Rangers")
	e.participations.Upsert(soon.ID, joiner.ID, "signed_up", now)
	e.participations.Upsert(soon.ID, decliner.ID, "declined", now)
	bystander := e.createUser(t, 102, "cyra", "Rangers")
	e.participations.Upsert(later.ID, bystander.ID, "signed_up", now)

	if err := sched.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if len(notifier.texts) != 1 {
		t.Fatalf("sent %d messages, want 1 (got chat ids %v)", len(notifier.texts), notifier.chatIDs())
	}
	msg := notifier.texts[0]
	if msg.to.ChatID != joiner.GameID {
		t.Errorf("reminder went to chat %d, want %d", msg.to.ChatID, joiner.GameID)
	}
	if !strings.Contains(msg.text, "Night Run") || !strings.Contains(msg.text, "30 minutes") {
		t.Errorf("reminder text = %q", msg.text)
	}
}

func TestSchedulerOptInReminders(t *testing.T) {
	e := setupTestEnv(t)
	notifier := &recordingNotifier{}
	sched := newTestScheduler(e, notifier)

	now := time.Date(2026, 6, 25, 12, 0, 0, 0, e.loc)
	raid := e.createRaid(t, "Night Run", "Rangers", now.Add(time.Hour))

	first := e.createUser(t, 100, "ada", "Rangers")
	second := e.createUser(t, 101, "bors", "Rangers")
	for _, u := range []int64{first.ID, second.ID} {
		if _, err := e.reminders.Add(raid.ID, u); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
	}

	if err := sched.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if len(notifier.texts) != 2 {
		t.Fatalf("sent %d messages, want 2", len(notifier.texts))
	}
	if !strings.Contains(notifier.texts[0].text, "1 hour") {
		t.Errorf("reminder text = %q", notifier.texts[0].text)
	}

	// Reminder rows are consumed, so the next tick in the window is silent
	count, err := e.reminders.CountByRaid(raid.ID)
	if err != nil {
		t.Fatalf("CountByRaid() error: %v", err)
	}
	if count != 0 {
		t.Errorf("reminders left = %d, want 0", count)
	}

	if err := sched.Tick(context.Background(), now.Add(30*time.Second)); err != nil {
		t.Fatalf("second Tick() error: %v", err)
	}
	if len(notifier.texts) != 2 {
		t.Errorf("second tick sent %d extra messages", len(notifier.texts)-2)
	}
}

func TestSchedulerDeliveryFailureDoesNotAbort(t *testing.T) {
	e := setupTestEnv(t)
	notifier := &recordingNotifier{fail: map[int64]bool{100: true}}
	sched := newTestScheduler(e, notifier)

	now := time.Date(2026, 6, 25, 12, 0, 0, 0, e.loc)
	raid := e.createRaid(t, "Night Run", "Rangers", now.Add(30*time.Minute))

	flaky := e.createUser(t, 100, "ada", "Rangers")
	ok := e.createUser(t, 101, "bors", "Rangers")
	e.participations.Upsert(raid.ID, flaky.ID, "signed_up", now)
	e.participations.Upsert(raid.ID, ok.ID, "signed_up", now)

	if err := sched.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if len(notifier.texts) != 1 || notifier.texts[0].to.ChatID != ok.GameID {
		t.Errorf("delivered chat ids = %v, want just %d", notifier.chatIDs(), ok.GameID)
	}
}

func TestSchedulerQuietOutsideWindows(t *testing.T) {
	e := setupTestEnv(t)
	notifier := &recordingNotifier{}
	sched := newTestScheduler(e, notifier)

	now := time.Date(2026, 6, 25, 12, 0, 0, 0, e.loc)
	raid := e.createRaid(t, "Night Run", "Rangers", now.Add(45*time.Minute))
	user := e.createUser(t, 100, "ada", "Rangers")
	e.participations.Upsert(raid.ID, user.ID, "signed_up", now)
	e.reminders.Add(raid.ID, user.ID)

	if err := sched.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if len(notifier.texts) != 0 {
		t.Errorf("sent %d messages for a raid outside both windows", len(notifier.texts))
	}
}
