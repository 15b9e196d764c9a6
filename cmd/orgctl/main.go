package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/spec-kit/orgchat-service/cmd/orgctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		CreateSuperAdmin commands.CreateSuperAdminCmd `cmd:"" help:"Create a super admin account"`
		Migrate          commands.MigrateCmd          `cmd:"" help:"Apply database migrations"`
		Listen           commands.ListenCmd           `cmd:"" help:"Connect to the relay and print frames"`
		Token            commands.TokenCmd            `cmd:"" help:"Mint a development token"`
		Debug            bool                         `help:"Enable debug logging."`
		Version          kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("orgctl"),
		kong.Description("Operator tooling for the org chat service."),
		kong.Vars{"version": version},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
