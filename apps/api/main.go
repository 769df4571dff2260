package main

import (
	"github.com/smallbiznis/outreach/internal/bootstrap"
	"github.com/smallbiznis/outreach/internal/migration"
	"github.com/smallbiznis/outreach/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		bootstrap.Core(),
		migration.Module,
		server.Module,
	)
	app.Run()
}
