package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/smallbiznis/outreach/internal/bootstrap"
	"github.com/smallbiznis/outreach/internal/config"
	creditdomain "github.com/smallbiznis/outreach/internal/credit/domain"
	forecastdomain "github.com/smallbiznis/outreach/internal/forecast/domain"
	outreachdomain "github.com/smallbiznis/outreach/internal/outreach/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:          "outreach",
	Short:        "Waitlist outreach service",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// config.Load reads the environment, so flags win by writing through it
		if logLevel != "" {
			_ = os.Setenv("LOG_LEVEL", logLevel)
		}
		if logFormat != "" {
			_ = os.Setenv("LOG_FORMAT", logFormat)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "logging level (debug|info|warn|error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json|console), overrides LOG_FORMAT")
}

// services is what one-off commands pull out of the fx graph.
type services struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Outreach outreachdomain.Service
	Credit   creditdomain.Service
	Forecast forecastdomain.Service
}

// withServices starts the core graph, runs fn and stops the graph again.
func withServices(ctx context.Context, fn func(context.Context, services) error) error {
	var svcs services
	app := fx.New(
		bootstrap.Core(),
		fx.NopLogger,
		fx.Invoke(func(s services) { svcs = s }),
	)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(context.WithoutCancel(ctx))
	}()

	return fn(ctx, svcs)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
