package main

import (
	"github.com/smallbiznis/outreach/internal/bootstrap"
	"github.com/smallbiznis/outreach/internal/migration"
	"github.com/smallbiznis/outreach/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []fx.Option{bootstrap.Core(), server.Module}
		if !skipMigrations {
			opts = append(opts, migration.Module)
		}
		app := fx.New(opts...)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply schema migrations on start")
	rootCmd.AddCommand(serveCmd)
}
