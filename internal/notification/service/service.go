package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/smallbiznis/outreach/internal/config"
	"github.com/smallbiznis/outreach/internal/notification/domain"
	"github.com/smallbiznis/outreach/internal/observability/metrics"
	"github.com/smallbiznis/outreach/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed templates/new_signup.html
var templatesFS embed.FS

const (
	eventNewSignup = "new_signup"
	signedUpLayout = "1/2/2006, 3:04:05 PM"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Provider email.Provider
	Config   config.Config
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	provider email.Provider
	cfg      config.NotificationConfig
	location *time.Location
	tmpl     *template.Template
	metrics  *metrics.Metrics
}

func New(p Params) (domain.Service, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(p.Config.Notification.Timezone))
	if err != nil {
		return nil, fmt.Errorf("notification timezone: %w", err)
	}
	tmpl, err := template.ParseFS(templatesFS, "templates/new_signup.html")
	if err != nil {
		return nil, err
	}
	return &Service{
		log:      p.Log.Named("notification.service"),
		provider: p.Provider,
		cfg:      p.Config.Notification,
		location: loc,
		tmpl:     tmpl,
		metrics:  p.Metrics,
	}, nil
}

func (s *Service) NotifyNewSignup(ctx context.Context, payload domain.Payload) error {
	if payload.Record == nil {
		return domain.ErrMissingRecord
	}
	if s.cfg.Recipient == "" {
		return domain.ErrNoRecipient
	}

	summary := Summarize(*payload.Record, s.location)
	var body bytes.Buffer
	if err := s.tmpl.Execute(&body, summary); err != nil {
		return err
	}

	receipt, err := s.provider.Send(ctx, email.Message{
		From:    s.cfg.From,
		To:      []string{s.cfg.Recipient},
		Subject: "New Pixel Signup: " + summary.Email,
		HTML:    body.String(),
	})
	if err == nil && receipt.MessageID == "" {
		err = email.ErrNoMessageID
	}
	if err != nil {
		s.metrics.RecordNotification(ctx, eventNewSignup, "failed")
		s.log.Warn("new signup notification failed", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}

	s.metrics.RecordNotification(ctx, eventNewSignup, "sent")
	s.log.Info("new signup notification sent", zap.String("message_id", receipt.MessageID))
	return nil
}

// Summarize fills the operator summary, substituting placeholders for missing values.
func Summarize(rec domain.Record, loc *time.Location) domain.Summary {
	p := rec.JSONPayload
	out := domain.Summary{
		Email:        orDefault(p.Email, "Unknown"),
		ReferredBy:   orDefault(p.ReferredBy, "None"),
		EarlyAccess:  "No",
		ReferralCode: orDefault(p.ReferralCode, "None"),
		SignedUp:     "Unknown",
	}
	if p.EarlyAccess {
		out.EarlyAccess = "Yes"
	}
	if raw := strings.TrimSpace(rec.CreatedAt); raw != "" {
		out.SignedUp = raw
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			out.SignedUp = ts.In(loc).Format(signedUpLayout)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
