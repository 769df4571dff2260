package email

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPProvider struct {
	cfg      Config
	sendMail sendMailFunc
	now      func() time.Time
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg, sendMail: smtp.SendMail, now: time.Now}
}

func (p *SMTPProvider) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.validate(); err != nil {
		return Receipt{}, err
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return Receipt{}, fmt.Errorf("email: invalid sender: %w", err)
	}

	messageID := fmt.Sprintf("%s@%s", uuid.NewString(), domainOf(from.Address))
	body := p.buildMessage(msg, messageID)

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	if err := p.sendMail(addr, auth, from.Address, recipients(msg.To), body); err != nil {
		return Receipt{}, fmt.Errorf("smtp send: %w", err)
	}
	return Receipt{MessageID: messageID}, nil
}

func (p *SMTPProvider) buildMessage(msg Message, messageID string) []byte {
	var buf bytes.Buffer
	header := func(key, value string) {
		buf.WriteString(key + ": " + value + "\r\n")
	}

	header("From", msg.From)
	header("To", strings.Join(recipients(msg.To), ", "))
	if msg.ReplyTo != "" {
		header("Reply-To", msg.ReplyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", p.now().Format(time.RFC1123Z))
	header("Message-ID", "<"+messageID+">")
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTML)
	return buf.Bytes()
}

func recipients(to []string) []string {
	out := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func domainOf(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		return address[at+1:]
	}
	return "localhost"
}
