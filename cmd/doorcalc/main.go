package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/doorcalc/internal/clock"
	"github.com/smallbiznis/doorcalc/internal/config"
	"github.com/smallbiznis/doorcalc/internal/migration"
	"github.com/smallbiznis/doorcalc/internal/observability"
	"github.com/smallbiznis/doorcalc/internal/server"
	"github.com/smallbiznis/doorcalc/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
