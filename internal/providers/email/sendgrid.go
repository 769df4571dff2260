package email

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridMessageIDHeader = "X-Message-Id"

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridProvider struct {
	client sendgridClient
}

func NewSendGrid(apiKey string) *SendGridProvider {
	return &SendGridProvider{client: sendgrid.NewSendClient(apiKey)}
}

func (p *SendGridProvider) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.validate(); err != nil {
		return Receipt{}, err
	}

	from, err := mail.ParseEmail(msg.From)
	if err != nil {
		return Receipt{}, fmt.Errorf("email: invalid sender: %w", err)
	}

	to := recipients(msg.To)
	first, err := mail.ParseEmail(to[0])
	if err != nil {
		return Receipt{}, fmt.Errorf("email: invalid recipient: %w", err)
	}

	m := mail.NewSingleEmail(from, msg.Subject, first, "", msg.HTML)
	for _, addr := range to[1:] {
		extra, err := mail.ParseEmail(addr)
		if err != nil {
			return Receipt{}, fmt.Errorf("email: invalid recipient: %w", err)
		}
		m.Personalizations[0].AddTos(extra)
	}
	if msg.ReplyTo != "" {
		replyTo, err := mail.ParseEmail(msg.ReplyTo)
		if err != nil {
			return Receipt{}, fmt.Errorf("email: invalid reply-to: %w", err)
		}
		m.SetReplyTo(replyTo)
	}

	resp, err := p.client.SendWithContext(ctx, m)
	if err != nil {
		return Receipt{}, fmt.Errorf("sendgrid send: %w", err)
	}
	if resp == nil {
		return Receipt{}, ErrNoMessageID
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Receipt{}, fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}

	id := headerValue(resp.Headers, sendgridMessageIDHeader)
	if id == "" {
		return Receipt{}, ErrNoMessageID
	}
	return Receipt{MessageID: id}, nil
}

func headerValue(headers map[string][]string, key string) string {
	if values := http.Header(headers).Values(key); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	for k, values := range headers {
		if strings.EqualFold(k, key) && len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
	}
	return ""
}
