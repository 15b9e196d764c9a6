package commands

import (
	"context"
	"fmt"

	"github.com/spec-kit/orgchat-service/internal/persistence"
)

// MigrateCmd applies pending schema migrations.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, g *Globals) error {
	logger, err := g.logger()
	if err != nil {
		return err
	}
	_, pg, err := openPostgres(ctx, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
		return err
	}
	fmt.Println("migrations applied")
	return nil
}
