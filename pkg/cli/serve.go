package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/service/mcp"
	"github.com/newssaga/sagaengine/pkg/usecase/saga"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg       config
		transport string
		addr      string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "transport",
			Usage:       "MCP transport (stdio, http)",
			Value:       "stdio",
			Sources:     cli.EnvVars("SAGA_MCP_TRANSPORT"),
			Destination: &transport,
		},
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address of the http transport",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("SAGA_MCP_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the saga set to MCP clients",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			repo, closeRepo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			server := mcp.NewServer(saga.New(repo, nil), c.Root().Version)

			switch transport {
			case "stdio":
				return server.RunStdio(ctx)
			case "http":
				return server.RunHTTP(ctx, addr)
			default:
				return goerr.New("unknown transport", goerr.V("transport", transport))
			}
		},
	}
}
