package ratelimit

import (
	"context"
	"time"

	"github.com/smallbiznis/outreach/internal/clock"
	"github.com/smallbiznis/outreach/internal/config"
	"github.com/smallbiznis/outreach/internal/signup/domain"
)

// Pacer enforces the per-stage gap between consecutive items of one batch.
type Pacer struct {
	settings *config.OutreachHolder
	clock    clock.Clock
}

func NewPacer(settings *config.OutreachHolder, clk clock.Clock) *Pacer {
	if clk == nil {
		clk = clock.System{}
	}
	return &Pacer{settings: settings, clock: clk}
}

func (p *Pacer) Delay(stage domain.Stage) time.Duration {
	cfg := p.settings.Get()
	switch stage {
	case domain.StageInvite:
		return cfg.Invite.Delay
	case domain.StageFollowUp:
		return cfg.FollowUp.Delay
	default:
		return 0
	}
}

// Wait sleeps for the stage delay. Cancellation of ctx cuts the wait short.
func (p *Pacer) Wait(ctx context.Context, stage domain.Stage) error {
	return p.clock.Sleep(ctx, p.Delay(stage))
}
