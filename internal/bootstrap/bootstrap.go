// Package bootstrap assembles the fx graph shared by the HTTP app and the CLI.
package bootstrap

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/outreach/internal/clock"
	"github.com/smallbiznis/outreach/internal/config"
	"github.com/smallbiznis/outreach/internal/credit"
	"github.com/smallbiznis/outreach/internal/forecast"
	"github.com/smallbiznis/outreach/internal/notification"
	"github.com/smallbiznis/outreach/internal/observability"
	"github.com/smallbiznis/outreach/internal/outreach"
	"github.com/smallbiznis/outreach/internal/providers/email"
	"github.com/smallbiznis/outreach/internal/ratelimit"
	"github.com/smallbiznis/outreach/internal/signup"
	"github.com/smallbiznis/outreach/pkg/db"
	"go.uber.org/fx"
)

// Core provides every service without starting the HTTP server.
func Core() fx.Option {
	return fx.Options(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Functional Domains
		signup.Module,
		credit.Module,
		forecast.Module,
		email.Module,
		ratelimit.Module,
		fx.Decorate(ratelimit.LimitProvider),
		outreach.Module,
		notification.Module,
	)
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
