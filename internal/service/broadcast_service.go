package service

import (
	"context"
	"fmt"
	"log"

	"raidcall/internal/notify"
	"raidcall/internal/repository"
	"raidcall/internal/wizard"
)

// BroadcastService delivers free-form admin announcements to an audience
type BroadcastService struct {
	users    *repository.UserRepository
	notifier notify.Notifier
}

// NewBroadcastService creates a broadcast service
func NewBroadcastService(users *repository.UserRepository, notifier notify.Notifier) *BroadcastService {
	return &BroadcastService{users: users, notifier: notifier}
}

// SendBroadcast delivers the content to every user the audience descriptor
// names. Returns the number of successful deliveries.
func (s *BroadcastService) SendBroadcast(ctx context.Context, content wizard.BroadcastContent, audience string) (int, error) {
	recipients, err := resolveAudience(s.users, audience)
	if err != nil {
		return 0, fmt.Errorf("resolving broadcast audience: %w", err)
	}

	sent := 0
	for _, u := range recipients {
		var err error
		if content.PhotoRef != "" {
			err = s.notifier.SendPhoto(ctx, recipientOf(u), content.PhotoRef, content.Caption)
		} else {
			err = s.notifier.SendText(ctx, recipientOf(u), content.Text, nil)
		}
		if err != nil {
			log.Printf("Failed to broadcast to %s: %v", u.Nickname, err)
			continue
		}
		sent++
	}

	log.Printf("Broadcast delivered: audience=%q, sent=%d/%d", audience, sent, len(recipients))
	return sent, nil
}
