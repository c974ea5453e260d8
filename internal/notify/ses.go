package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESNotifier delivers raid messages by email via Amazon SES for players
// with a known address. Recipients without an email are skipped silently.
type SESNotifier struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
}

// NewSESNotifier creates an SES-backed notifier. An empty fromEmail creates
// a disabled notifier that skips every send.
func NewSESNotifier(ctx context.Context, awsRegion, fromEmail, fromName string) (*SESNotifier, error) {
	if fromEmail == "" {
		log.Println("SES notifier disabled: SES_FROM_EMAIL not configured")
		return &SESNotifier{enabled: false}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("SES notifier enabled: from=%s, region=%s", fromEmail, awsRegion)
	return &SESNotifier{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}, nil
}

// IsEnabled returns whether the notifier will actually send anything
func (n *SESNotifier) IsEnabled() bool {
	return n.enabled
}

// SendText delivers the message body by email. Buttons cannot be rendered
// over email and are dropped.
func (n *SESNotifier) SendText(ctx context.Context, to Recipient, text string, buttons [][]Button) error {
	return n.send(ctx, to, "Raid update", text)
}

// SendPhoto delivers the caption by email; the photo reference is included
// as a plain line since SES cannot resolve gateway file ids.
func (n *SESNotifier) SendPhoto(ctx context.Context, to Recipient, photoRef, caption string) error {
	body := caption
	if photoRef != "" {
		body = fmt.Sprintf("%s\n\n[attachment: %s]", caption, photoRef)
	}
	return n.send(ctx, to, "Raid broadcast", body)
}

func (n *SESNotifier) send(ctx context.Context, to Recipient, subject, body string) error {
	if !n.enabled {
		log.Printf("Skipping email send (notifier disabled): %s to chat %d", subject, to.ChatID)
		return nil
	}
	if to.Email == "" {
		return nil
	}

	fromAddress := n.fromEmail
	if n.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to.Email},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to.Email, err)
	}
	return nil
}
