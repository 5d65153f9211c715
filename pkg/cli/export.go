package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/adapter"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/usecase/saga"
	"github.com/urfave/cli/v3"
)

func exportCommand() *cli.Command {
	var (
		cfg       config
		bqProject string
		datasetID string
		tableID   string
		since     string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bigquery-project",
			Usage:       "BigQuery project ID, defaults to --project",
			Sources:     cli.EnvVars("SAGA_BIGQUERY_PROJECT"),
			Destination: &bqProject,
		},
		&cli.StringFlag{
			Name:        "dataset",
			Usage:       "BigQuery dataset ID",
			Sources:     cli.EnvVars("SAGA_BIGQUERY_DATASET"),
			Destination: &datasetID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "table",
			Usage:       "BigQuery table ID",
			Value:       "saga_events",
			Sources:     cli.EnvVars("SAGA_BIGQUERY_TABLE"),
			Destination: &tableID,
		},
		&cli.StringFlag{
			Name:        "since",
			Usage:       "Only export sagas updated on or after this date (YYYYMMDD)",
			Sources:     cli.EnvVars("SAGA_EXPORT_SINCE"),
			Destination: &since,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export saga events to BigQuery",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			if since != "" {
				if _, err := time.Parse(model.DateLayout, since); err != nil {
					return goerr.Wrap(err, "invalid since date", goerr.V("since", since))
				}
			}
			if bqProject == "" {
				bqProject = cfg.project
			}
			if bqProject == "" {
				return goerr.New("bigquery-project or project is required")
			}

			repo, closeRepo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			bq, err := adapter.NewBigQuery(ctx, bqProject)
			if err != nil {
				return err
			}

			n, err := saga.New(repo, nil).Export(ctx, bq, saga.ExportOptions{
				DatasetID: datasetID,
				TableID:   tableID,
				Since:     since,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to export events")
			}

			fmt.Fprintf(c.Root().Writer, "%d events exported to %s.%s.%s\n", n, bqProject, datasetID, tableID)
			return nil
		},
	}
}
