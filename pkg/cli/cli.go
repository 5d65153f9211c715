package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Version is reported by the MCP server and --version
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	if err := newApp().Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "sagaengine",
		Usage:   "Thread daily news briefings into long-running storylines",
		Version: Version,
		Commands: []*cli.Command{
			runCommand(),
			importCommand(),
			listCommand(),
			showCommand(),
			exportCommand(),
			serveCommand(),
		},
	}
}
