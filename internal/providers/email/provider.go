package email

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Message is a single outbound HTML email.
type Message struct {
	From    string
	ReplyTo string
	To      []string
	Subject string
	HTML    string
}

// Receipt confirms the channel accepted a message. A send without a message id
// is treated as failed.
type Receipt struct {
	MessageID string
}

type Provider interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

var (
	ErrNoMessageID  = errors.New("provider returned no message ID")
	ErrNoRecipients = errors.New("email: no recipients")
	ErrNoSender     = errors.New("email: no sender")
)

func (m Message) validate() error {
	if strings.TrimSpace(m.From) == "" {
		return ErrNoSender
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) != "" {
			return nil
		}
	}
	return ErrNoRecipients
}

// NoOpProvider accepts every message without delivering it.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.validate(); err != nil {
		return Receipt{}, err
	}
	return Receipt{MessageID: "noop-" + uuid.NewString()}, nil
}
