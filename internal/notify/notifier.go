package notify

import "context"

// Button is one interactive affordance attached to a message. Data is the
// opaque callback payload the gateway echoes back when the button is pressed.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Recipient identifies one delivery target. ChatID addresses the player
// through the bot gateway; Email is used by the SES adapter when set.
type Recipient struct {
	ChatID int64
	Email  string
	Name   string
}

// Notifier delivers formatted messages to individual recipients.
// Implementations report per-call errors and never fail a whole batch;
// callers decide whether to log and continue.
type Notifier interface {
	SendText(ctx context.Context, to Recipient, text string, buttons [][]Button) error
	SendPhoto(ctx context.Context, to Recipient, photoRef, caption string) error
}
