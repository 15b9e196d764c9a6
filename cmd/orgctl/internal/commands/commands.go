// Package commands implements the orgctl subcommands.
package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/config"
	"github.com/spec-kit/orgchat-service/internal/observability"
	"github.com/spec-kit/orgchat-service/internal/persistence"
)

// Globals are shared by every subcommand.
type Globals struct {
	Debug   bool
	Version string
}

func (g *Globals) logger() (*zap.Logger, error) {
	level := "warn"
	if g.Debug {
		level = "debug"
	}
	return observability.NewLogger(config.LoggerConfig{Level: level})
}

// openPostgres loads the service configuration and connects. Commands that
// write data refuse to run against the in-memory store.
func openPostgres(ctx context.Context, logger *zap.Logger) (*config.Config, *persistence.Postgres, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, nil, err
	}
	if !pg.Enabled() {
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}
	return cfg, pg, nil
}
