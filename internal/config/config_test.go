package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMAIL_PROVIDER", "")

	cfg := Load()
	assert.Equal(t, "outreach", cfg.AppName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, EmailProviderNoop, cfg.Email.Provider)
	assert.Equal(t, 1000, cfg.Forecast.Target)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("EMAIL_PROVIDER", " SendGrid ")
	t.Setenv("FORECAST_TARGET", "2500")
	t.Setenv("OUTREACH_LOCK_TTL", "2m")
	t.Setenv("OUTREACH_SEND_RATE", "not-a-number")
	t.Setenv("OTEL_ENABLED", "yes")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, EmailProviderSendGrid, cfg.Email.Provider)
	assert.Equal(t, 2500, cfg.Forecast.Target)
	assert.Equal(t, 2*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, float64(2), cfg.Redis.SendRate)
	assert.True(t, cfg.OtelEnabled)
}

func TestValidateOutreachSettings(t *testing.T) {
	assert.NoError(t, ValidateOutreachSettings(DefaultOutreachSettings()))

	bad := DefaultOutreachSettings()
	bad.FollowUp.Delay = -time.Second
	assert.Error(t, ValidateOutreachSettings(bad))

	bad = DefaultOutreachSettings()
	bad.Invite.Subject = "  "
	assert.Error(t, ValidateOutreachSettings(bad))

	bad = DefaultOutreachSettings()
	bad.FollowUp.Subject = "{{.Credits"
	assert.Error(t, ValidateOutreachSettings(bad))
}

func TestOutreachHolderWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewOutreachHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultOutreachSettings(), holder.Get())
}

func TestOutreachHolderReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("OUTREACH_FOLLOWUP_DELAY", "1s")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "outreach.yml"), []byte(`
invite:
  delay: 250ms
requireinviteforfollowup: false
brand:
  productname: Acme
`), 0o600))

	holder, err := NewOutreachHolder(zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, 250*time.Millisecond, got.Invite.Delay)
	assert.Equal(t, time.Second, got.FollowUp.Delay)
	assert.False(t, got.RequireInviteForFollowUp)
	assert.Equal(t, "Acme", got.Brand.ProductName)
	assert.Equal(t, DefaultOutreachSettings().Invite.Subject, got.Invite.Subject)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *OutreachHolder
	assert.Equal(t, DefaultOutreachSettings(), holder.Get())
}
