package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/archive"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/policy"
	"github.com/newssaga/sagaengine/pkg/usecase/saga"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	var (
		cfg       config
		input     string
		date      string
		policyDir string
		noArchive bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Path to a briefing JSON file, the archive is read when empty",
			Sources:     cli.EnvVars("SAGA_INPUT"),
			Destination: &input,
		},
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Archive date (YYYYMMDD) to process, defaults to the current target date",
			Sources:     cli.EnvVars("SAGA_DATE"),
			Destination: &date,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of rego ingest policies",
			Sources:     cli.EnvVars("SAGA_POLICY_DIR"),
			Destination: &policyDir,
		},
		&cli.BoolFlag{
			Name:        "no-archive",
			Usage:       "Do not store the --input briefing in the archive",
			Sources:     cli.EnvVars("SAGA_NO_ARCHIVE"),
			Destination: &noArchive,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, archiveFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "run",
		Usage: "Thread one daily briefing into the saga set",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			// The oracle is checked first so that missing credentials fail
			// before anything is read or written.
			client, err := cfg.newOracle(ctx)
			if err != nil {
				return err
			}

			repo, closeRepo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			arc, err := cfg.newArchive(ctx)
			if err != nil {
				return err
			}

			pol, err := policy.Load(ctx, policyDir)
			if err != nil {
				return err
			}

			briefing, err := loadBriefing(ctx, arc, input, date, noArchive)
			if err != nil {
				return err
			}
			ctx = logging.WithAttrs(ctx, "date", briefing.Date)

			uc := saga.New(repo, client, saga.WithFilter(pol))
			result, _, err := uc.Run(ctx, briefing)
			if err != nil {
				return goerr.Wrap(err, "failed to process briefing")
			}

			printResult(c, result)
			return nil
		},
	}
}

// loadBriefing reads the batch from input when given, otherwise from the archive
func loadBriefing(ctx context.Context, arc *archive.Archive, input, date string, noArchive bool) (*model.Briefing, error) {
	if input != "" {
		briefing, err := readBriefing(input)
		if err != nil {
			return nil, err
		}
		if !noArchive {
			location, err := arc.Save(ctx, briefing)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to archive briefing")
			}
			logging.From(ctx).Info("briefing archived", "location", location)
		}
		return briefing, nil
	}

	if date == "" {
		date = archive.TargetDate(time.Now())
	}
	briefing, err := arc.Load(ctx, date)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load briefing from archive", goerr.V("date", date))
	}
	return briefing, nil
}

func readBriefing(path string) (*model.Briefing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read briefing file", goerr.V("path", path))
	}
	briefing, err := archive.Decode(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid briefing file", goerr.V("path", path))
	}
	return briefing, nil
}

func printResult(c *cli.Command, result *saga.Result) {
	w := c.Root().Writer
	for _, o := range result.Outcomes {
		line := fmt.Sprintf("%-8s %s", o.State, o.SourceID)
		if o.SagaID != "" {
			line += " -> " + string(o.SagaID)
		}
		if o.Reason != "" {
			line += " (" + o.Reason + ")"
		}
		if o.Err != nil {
			line += " error: " + o.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\n%s: %d appended, %d created, %d ignored, %d skipped, %d failed\n",
		result.Date, result.Appended, result.Created, result.Ignored, result.Skipped, result.Failed)
}
