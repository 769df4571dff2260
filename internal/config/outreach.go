package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// OutreachSettings is the hot-reloadable part of the configuration. It is read from
// outreach.yml and every key can be overridden with an OUTREACH_ environment variable
// (for example OUTREACH_FOLLOWUP_DELAY=1s).
type OutreachSettings struct {
	Invite                   StageSettings `mapstructure:"invite"`
	FollowUp                 StageSettings `mapstructure:"followup"`
	RequireInviteForFollowUp bool          `mapstructure:"requireinviteforfollowup"`
	Brand                    BrandSettings `mapstructure:"brand"`
}

type StageSettings struct {
	Subject string        `mapstructure:"subject"`
	Delay   time.Duration `mapstructure:"delay"`
}

type BrandSettings struct {
	ProductName     string `mapstructure:"productname"`
	AppURL          string `mapstructure:"appurl"`
	SupportEmail    string `mapstructure:"supportemail"`
	SignerName      string `mapstructure:"signername"`
	SignerTitle     string `mapstructure:"signertitle"`
	SignerAvatarURL string `mapstructure:"signeravatarurl"`
}

func DefaultOutreachSettings() OutreachSettings {
	return OutreachSettings{
		Invite: StageSettings{
			Subject: "You're in — and you're starting with {{.Credits}} credits",
			Delay:   0,
		},
		FollowUp: StageSettings{
			Subject: "Your {{.ProductName}} invite expires soon",
			Delay:   600 * time.Millisecond,
		},
		RequireInviteForFollowUp: true,
		Brand: BrandSettings{
			ProductName:  "Pixel",
			AppURL:       "https://app.getpixel.ai/easignup",
			SupportEmail: "support@getpixel.ai",
			SignerName:   "Gil Allouche",
			SignerTitle:  "Founder, Pixel",
		},
	}
}

type OutreachHolder struct {
	current atomic.Value // holds OutreachSettings
}

// NewOutreachHolder loads outreach.yml (when present) and keeps watching it for changes.
func NewOutreachHolder(log *zap.Logger) (*OutreachHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.outreach")

	v := viper.New()
	v.SetConfigName("outreach")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/outreach")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setOutreachDefaults(v, DefaultOutreachSettings())

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeOutreachSettings(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticOutreachHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeOutreachSettings(v)
		if err != nil {
			log.Warn("outreach config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("outreach config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticOutreachHolder returns a holder that never reloads.
func NewStaticOutreachHolder(cfg OutreachSettings) *OutreachHolder {
	holder := &OutreachHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *OutreachHolder) Get() OutreachSettings {
	if h == nil {
		return DefaultOutreachSettings()
	}
	return h.current.Load().(OutreachSettings)
}

func setOutreachDefaults(v *viper.Viper, d OutreachSettings) {
	v.SetDefault("invite.subject", d.Invite.Subject)
	v.SetDefault("invite.delay", d.Invite.Delay)
	v.SetDefault("followup.subject", d.FollowUp.Subject)
	v.SetDefault("followup.delay", d.FollowUp.Delay)
	v.SetDefault("requireinviteforfollowup", d.RequireInviteForFollowUp)
	v.SetDefault("brand.productname", d.Brand.ProductName)
	v.SetDefault("brand.appurl", d.Brand.AppURL)
	v.SetDefault("brand.supportemail", d.Brand.SupportEmail)
	v.SetDefault("brand.signername", d.Brand.SignerName)
	v.SetDefault("brand.signertitle", d.Brand.SignerTitle)
	v.SetDefault("brand.signeravatarurl", d.Brand.SignerAvatarURL)
}

func decodeOutreachSettings(v *viper.Viper) (OutreachSettings, error) {
	var cfg OutreachSettings
	if err := v.Unmarshal(&cfg); err != nil {
		return OutreachSettings{}, err
	}
	if err := ValidateOutreachSettings(cfg); err != nil {
		return OutreachSettings{}, err
	}
	return cfg, nil
}

func ValidateOutreachSettings(cfg OutreachSettings) error {
	if cfg.Invite.Delay < 0 || cfg.FollowUp.Delay < 0 {
		return errors.New("outreach stage delay cannot be negative")
	}
	if strings.TrimSpace(cfg.Invite.Subject) == "" {
		return errors.New("invite.subject cannot be empty")
	}
	if strings.TrimSpace(cfg.FollowUp.Subject) == "" {
		return errors.New("followup.subject cannot be empty")
	}
	for key, subject := range map[string]string{
		"invite.subject":   cfg.Invite.Subject,
		"followup.subject": cfg.FollowUp.Subject,
	} {
		if _, err := template.New(key).Parse(subject); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if strings.TrimSpace(cfg.Brand.ProductName) == "" {
		return errors.New("brand.productname cannot be empty")
	}
	return nil
}
