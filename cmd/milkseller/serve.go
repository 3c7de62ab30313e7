package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkseller/internal/accesskey"
	"github.com/smallbiznis/milkseller/internal/authorization"
	"github.com/smallbiznis/milkseller/internal/billing"
	"github.com/smallbiznis/milkseller/internal/cache"
	"github.com/smallbiznis/milkseller/internal/clock"
	"github.com/smallbiznis/milkseller/internal/config"
	"github.com/smallbiznis/milkseller/internal/events"
	"github.com/smallbiznis/milkseller/internal/migration"
	"github.com/smallbiznis/milkseller/internal/milkapi"
	"github.com/smallbiznis/milkseller/internal/observability"
	"github.com/smallbiznis/milkseller/internal/pricing"
	"github.com/smallbiznis/milkseller/internal/ratehistory"
	"github.com/smallbiznis/milkseller/internal/ratelimit"
	"github.com/smallbiznis/milkseller/internal/server"
	"github.com/smallbiznis/milkseller/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		cache.Module,
		ratelimit.Module,
		events.Module,
		milkapi.Module,

		// Domains
		ratehistory.Module,
		pricing.Module,
		billing.Module,
		accesskey.Module,
		authorization.Module,

		server.Module,
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
