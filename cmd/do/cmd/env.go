package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fileshare/internal/app"
	"github.com/templui/fileshare/internal/config"
	"github.com/templui/fileshare/internal/db"
	"github.com/templui/fileshare/internal/logger"
)

func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	return cfg
}

// openDB connects without migrating so migrate subcommands stay in control.
func openDB(ctx context.Context) (*config.Config, *sqlx.DB, error) {
	cfg := loadConfig()
	conn, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, conn, nil
}

func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, loadConfig())
}
