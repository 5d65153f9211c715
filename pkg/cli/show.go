package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/usecase/saga"
	"github.com/urfave/cli/v3"
)

func showCommand() *cli.Command {
	var (
		cfg    config
		sagaID model.SagaID
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "saga-id",
			Aliases:     []string{"id"},
			Usage:       "Saga ID to show",
			Sources:     cli.EnvVars("SAGA_ID"),
			Destination: (*string)(&sagaID),
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show a saga with its full timeline",
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

			s, err := saga.New(repo, nil).Show(ctx, sagaID)
			if err != nil {
				return goerr.Wrap(err, "failed to show saga")
			}

			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to marshal saga")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", string(data))
			return nil
		},
	}
}
