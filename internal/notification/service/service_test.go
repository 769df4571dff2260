package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/outreach/internal/config"
	"github.com/smallbiznis/outreach/internal/notification/domain"
	"github.com/smallbiznis/outreach/internal/providers/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureProvider struct {
	msgs []email.Message
	err  error
}

func (p *captureProvider) Send(ctx context.Context, msg email.Message) (email.Receipt, error) {
	if p.err != nil {
		return email.Receipt{}, p.err
	}
	p.msgs = append(p.msgs, msg)
	return email.Receipt{MessageID: "m1"}, nil
}

func newService(t *testing.T, provider email.Provider) domain.Service {
	t.Helper()
	svc, err := New(Params{
		Log:      zap.NewNop(),
		Provider: provider,
		Config: config.Config{Notification: config.NotificationConfig{
			Recipient: "ops@getpixel.ai",
			From:      "Pixel <notifications@getpixel.ai>",
			Timezone:  "America/New_York",
		}},
	})
	require.NoError(t, err)
	return svc
}

func TestNotifyNewSignup(t *testing.T) {
	provider := &captureProvider{}
	svc := newService(t, provider)

	err := svc.NotifyNewSignup(context.Background(), domain.Payload{
		Type:  "INSERT",
		Table: "signups",
		Record: &domain.Record{
			CreatedAt: "2025-06-15T15:04:05.123456+00:00",
			JSONPayload: domain.SignupPayload{
				Email:        "ana@example.com",
				EarlyAccess:  true,
				ReferralCode: "ana01",
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, provider.msgs, 1)
	msg := provider.msgs[0]
	assert.Equal(t, []string{"ops@getpixel.ai"}, msg.To)
	assert.Equal(t, "New Pixel Signup: ana@example.com", msg.Subject)
	assert.Contains(t, msg.HTML, "ana01")
	assert.Contains(t, msg.HTML, ">Yes<")
	assert.Contains(t, msg.HTML, ">None<")
	assert.Contains(t, msg.HTML, "6/15/2025, 11:04:05 AM")
}

func TestNotifyNewSignupErrors(t *testing.T) {
	svc := newService(t, &captureProvider{err: errors.New("quota exceeded")})

	err := svc.NotifyNewSignup(context.Background(), domain.Payload{})
	assert.ErrorIs(t, err, domain.ErrMissingRecord)

	err = svc.NotifyNewSignup(context.Background(), domain.Payload{Record: &domain.Record{}})
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestSummarizeDefaults(t *testing.T) {
	s := Summarize(domain.Record{CreatedAt: "yesterday"}, time.UTC)
	assert.Equal(t, domain.Summary{
		Email:        "Unknown",
		ReferredBy:   "None",
		EarlyAccess:  "No",
		ReferralCode: "None",
		SignedUp:     "yesterday",
	}, s)
}
