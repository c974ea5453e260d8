package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WebhookNotifier posts messages to the bot gateway, which renders them to
// the chat transport. Each request carries a short-lived HS256 token so the
// gateway can reject senders without the shared secret.
type WebhookNotifier struct {
	baseURL string
	secret  []byte
	client  *http.Client
	now     func() time.Time
}

// NewWebhookNotifier creates a gateway-backed notifier
func NewWebhookNotifier(baseURL, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		baseURL: baseURL,
		secret:  []byte(secret),
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

type gatewayMessage struct {
	ChatID   int64      `json:"chat_id"`
	Text     string     `json:"text,omitempty"`
	PhotoRef string     `json:"photo_ref,omitempty"`
	Caption  string     `json:"caption,omitempty"`
	Buttons  [][]Button `json:"buttons,omitempty"`
}

// SendText posts a text message with optional inline buttons
func (n *WebhookNotifier) SendText(ctx context.Context, to Recipient, text string, buttons [][]Button) error {
	return n.post(ctx, "/send", gatewayMessage{
		ChatID:  to.ChatID,
		Text:    text,
		Buttons: buttons,
	})
}

// SendPhoto posts a photo reference with a caption
func (n *WebhookNotifier) SendPhoto(ctx context.Context, to Recipient, photoRef, caption string) error {
	return n.post(ctx, "/send", gatewayMessage{
		ChatID:   to.ChatID,
		PhotoRef: photoRef,
		Caption:  caption,
	})
}

func (n *WebhookNotifier) post(ctx context.Context, path string, msg gatewayMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode gateway message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}

	token, err := n.signToken()
	if err != nil {
		return fmt.Errorf("failed to sign gateway token: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

func (n *WebhookNotifier) signToken() (string, error) {
	now := n.now()
	claims := jwt.RegisteredClaims{
		Issuer:    "raidcall",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(n.secret)
}
