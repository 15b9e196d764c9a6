package commands

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spec-kit/orgchat-service/internal/relay"
	"github.com/spec-kit/orgchat-service/internal/relayclient"
)

// ListenCmd prints every frame the relay pushes to the token's user as one
// JSON line.
type ListenCmd struct {
	URL   string `help:"Relay socket URL" default:"ws://localhost:8081/ws"`
	Token string `help:"Bearer token" required:"" env:"ORGCHAT_TOKEN"`
}

func (l *ListenCmd) Run(ctx context.Context, g *Globals) error {
	logger, err := g.logger()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	client := relayclient.New(relayclient.Options{
		URL:    l.URL,
		Token:  l.Token,
		Logger: logger,
	}, func(frame relay.OutboundFrame) {
		_ = enc.Encode(frame)
	})
	return client.Run(ctx)
}
