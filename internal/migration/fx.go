package migration

import (
	"strings"

	"github.com/smallbiznis/milkseller/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations", fx.Invoke(apply))

func apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	dialect := strings.ToLower(strings.TrimSpace(cfg.DBType))
	if dialect != "postgres" && dialect != "postgresql" {
		log.Info("applying schema via gorm auto-migrate", zap.String("dialect", dialect))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	res, err := Up(sqlDB)
	if err != nil {
		return err
	}
	log.Info("schema migrations applied",
		zap.Uint("version", res.Version),
		zap.Bool("changed", res.Changed),
	)
	return nil
}
