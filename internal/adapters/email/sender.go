package email

import (
	"context"
	"errors"
	"time"
)

// ErrNoRecipient is returned when a request has no destination address.
var ErrNoRecipient = errors.New("email request has no recipient")

// Attachment is a file carried by a message. ContentID makes it addressable
// from the HTML body as cid:<ContentID> for inline images.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
	ContentID   string
}

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To          []string // Recipient email addresses
	From        string   // Sender address, defaults to the configured MAIL_FROM
	Subject     string
	HTML        string // HTML body
	ReplyTo     string // Reply-to address
	Attachments []Attachment
}

// Validate checks the request carries a recipient.
func (r SendRequest) Validate() error {
	for _, to := range r.To {
		if to != "" {
			return nil
		}
	}
	return ErrNoRecipient
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender delivers one message per call. Implementations never retry.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
