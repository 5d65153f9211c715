package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func importCommand() *cli.Command {
	var (
		cfg   config
		input string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Path to a briefing JSON file",
			Sources:     cli.EnvVars("SAGA_INPUT"),
			Destination: &input,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, archiveFlags(&cfg)...)

	return &cli.Command{
		Name:  "import",
		Usage: "Store a briefing file in the daily archive without processing it",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			arc, err := cfg.newArchive(ctx)
			if err != nil {
				return err
			}

			briefing, err := readBriefing(input)
			if err != nil {
				return err
			}

			location, err := arc.Save(ctx, briefing)
			if err != nil {
				return goerr.Wrap(err, "failed to archive briefing")
			}

			fmt.Fprintf(c.Root().Writer, "%s: %d items archived to %s\n", briefing.Date, len(briefing.Items), location)
			return nil
		},
	}
}
