package email

import (
	"github.com/smallbiznis/outreach/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig picks the delivery channel named by EMAIL_PROVIDER.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	log = log.Named("providers.email")

	switch cfg.Email.Provider {
	case config.EmailProviderSendGrid:
		if cfg.Email.SendGridAPIKey == "" {
			log.Warn("sendgrid selected without SENDGRID_API_KEY, falling back to noop")
			return &NoOpProvider{}
		}
		log.Info("email provider ready", zap.String("provider", config.EmailProviderSendGrid))
		return NewSendGrid(cfg.Email.SendGridAPIKey)
	case config.EmailProviderSMTP:
		log.Info("email provider ready",
			zap.String("provider", config.EmailProviderSMTP),
			zap.String("host", cfg.Email.SMTPHost),
		)
		return NewSMTP(Config{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
		})
	default:
		log.Info("email provider ready", zap.String("provider", config.EmailProviderNoop))
		return &NoOpProvider{}
	}
}
