package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/smallbiznis/outreach/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSendGrid struct {
	resp *rest.Response
	err  error
	got  *mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(ctx context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.got = m
	return f.resp, f.err
}

func testMessage() Message {
	return Message{
		From:    "Pixel <notifications@getpixel.ai>",
		ReplyTo: "support@getpixel.ai",
		To:      []string{"ana@example.com"},
		Subject: "Hello",
		HTML:    "<p>hi</p>",
	}
}

func TestSendGridReturnsMessageID(t *testing.T) {
	fake := &fakeSendGrid{resp: &rest.Response{
		StatusCode: 202,
		Headers:    map[string][]string{"X-Message-Id": {"sg-123"}},
	}}
	p := &SendGridProvider{client: fake}

	receipt, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "sg-123", receipt.MessageID)
	require.NotNil(t, fake.got)
	assert.Equal(t, "notifications@getpixel.ai", fake.got.From.Address)
	assert.Equal(t, "support@getpixel.ai", fake.got.ReplyTo.Address)
	assert.Equal(t, "ana@example.com", fake.got.Personalizations[0].To[0].Address)
}

func TestSendGridWithoutMessageIDFails(t *testing.T) {
	p := &SendGridProvider{client: &fakeSendGrid{resp: &rest.Response{StatusCode: 202}}}

	_, err := p.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrNoMessageID)
}

func TestSendGridRejected(t *testing.T) {
	p := &SendGridProvider{client: &fakeSendGrid{resp: &rest.Response{
		StatusCode: 429,
		Body:       `{"errors":[{"message":"too many requests"}]}`,
	}}}

	_, err := p.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "too many requests")
}

func TestSendGridTransportError(t *testing.T) {
	p := &SendGridProvider{client: &fakeSendGrid{err: errors.New("dial tcp: timeout")}}

	_, err := p.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestSMTPBuildsHeadersAndReturnsMessageID(t *testing.T) {
	var gotFrom string
	var gotTo []string
	var gotBody string
	p := NewSMTP(Config{Host: "smtp.local", Port: 2525})
	p.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	p.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.local:2525", addr)
		assert.Nil(t, a)
		gotFrom, gotTo, gotBody = from, to, string(msg)
		return nil
	}

	receipt, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(receipt.MessageID, "@getpixel.ai"))
	assert.Equal(t, "notifications@getpixel.ai", gotFrom)
	assert.Equal(t, []string{"ana@example.com"}, gotTo)
	assert.Contains(t, gotBody, "Reply-To: support@getpixel.ai\r\n")
	assert.Contains(t, gotBody, "Message-ID: <"+receipt.MessageID+">\r\n")
	assert.Contains(t, gotBody, "\r\n\r\n<p>hi</p>")
}

func TestSMTPFailure(t *testing.T) {
	p := NewSMTP(Config{Host: "smtp.local", Port: 25})
	p.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 mailbox unavailable")
	}

	_, err := p.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550")
}

func TestValidation(t *testing.T) {
	msg := testMessage()
	msg.To = []string{" "}
	_, err := (&NoOpProvider{}).Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrNoRecipients)

	msg = testMessage()
	msg.From = ""
	_, err = (&NoOpProvider{}).Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrNoSender)

	receipt, err := (&NoOpProvider{}).Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.MessageID)
}

func TestNewFromConfig(t *testing.T) {
	log := zap.NewNop()

	assert.IsType(t, &NoOpProvider{}, NewFromConfig(config.Config{}, log))
	assert.IsType(t, &SMTPProvider{}, NewFromConfig(config.Config{Email: config.EmailConfig{Provider: config.EmailProviderSMTP}}, log))
	assert.IsType(t, &NoOpProvider{}, NewFromConfig(config.Config{Email: config.EmailConfig{Provider: config.EmailProviderSendGrid}}, log))
	assert.IsType(t, &SendGridProvider{}, NewFromConfig(config.Config{Email: config.EmailConfig{
		Provider:       config.EmailProviderSendGrid,
		SendGridAPIKey: "SG.key",
	}}, log))
}
