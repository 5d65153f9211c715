package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/usecase/saga"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg      config
		status   string
		category string
		limit    int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "status",
			Aliases:     []string{"s"},
			Usage:       "Only list sagas with this status (active, dormant, archived)",
			Sources:     cli.EnvVars("SAGA_LIST_STATUS"),
			Destination: &status,
		},
		&cli.StringFlag{
			Name:        "category",
			Usage:       "Only list sagas of this category",
			Sources:     cli.EnvVars("SAGA_LIST_CATEGORY"),
			Destination: &category,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of sagas to list",
			Value:       100,
			Sources:     cli.EnvVars("SAGA_LIST_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List sagas, most recently updated first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			opts := saga.ListOptions{Limit: int(limit)}
			if status != "" {
				opts.Status = model.SagaStatus(status)
				if err := opts.Status.Validate(); err != nil {
					return err
				}
			}
			if category != "" {
				opts.Category = model.ParseCategory(category)
			}

			repo, closeRepo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			sagas, err := saga.New(repo, nil).List(ctx, opts)
			if err != nil {
				return goerr.Wrap(err, "failed to list sagas")
			}

			for _, s := range sagas {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%-9s\t%-8s\t%3d events\t%s\n",
					s.ID, s.LastUpdated, s.Category, s.Status, len(s.Events), s.Title)
			}
			return nil
		},
	}
}
