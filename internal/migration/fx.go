package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/doorcalc/internal/config"
	"github.com/smallbiznis/doorcalc/internal/seed"
	"github.com/smallbiznis/doorcalc/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg db.Config, appCfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		if err := Apply(conn, cfg.Type); err != nil {
			return err
		}
		log.Info("schema up to date", zap.String("type", cfg.Type))

		return seed.EnsureDefaultRate(conn, node, appCfg.DefaultRate)
	}),
)
