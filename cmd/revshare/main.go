package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/TD-Producoes/revshare-sub001/internal/apikey"
	"github.com/TD-Producoes/revshare-sub001/internal/attribution"
	"github.com/TD-Producoes/revshare-sub001/internal/clock"
	"github.com/TD-Producoes/revshare-sub001/internal/config"
	"github.com/TD-Producoes/revshare-sub001/internal/creatorpayment"
	"github.com/TD-Producoes/revshare-sub001/internal/events"
	"github.com/TD-Producoes/revshare-sub001/internal/migration"
	"github.com/TD-Producoes/revshare-sub001/internal/notification"
	"github.com/TD-Producoes/revshare-sub001/internal/observability"
	"github.com/TD-Producoes/revshare-sub001/internal/payout"
	"github.com/TD-Producoes/revshare-sub001/internal/purchase"
	"github.com/TD-Producoes/revshare-sub001/internal/reconcile"
	"github.com/TD-Producoes/revshare-sub001/internal/seed"
	"github.com/TD-Producoes/revshare-sub001/internal/server"
	"github.com/TD-Producoes/revshare-sub001/internal/webhook"
	"github.com/TD-Producoes/revshare-sub001/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		fx.Provide(events.NewOutbox),

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.IsProduction() {
				return nil
			}
			return seed.EnsureDemoProject(conn)
		}),

		apikey.Module,
		attribution.Module,
		notification.Module,
		purchase.Module,
		reconcile.Module,
		creatorpayment.Module,
		webhook.Module,
		payout.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
