package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/aa-analytics/funnelreport/config"
	"github.com/aa-analytics/funnelreport/internal/drill"
	"github.com/aa-analytics/funnelreport/internal/fetch"
	"github.com/aa-analytics/funnelreport/internal/notify"
	"github.com/aa-analytics/funnelreport/internal/pipeline"
	"github.com/aa-analytics/funnelreport/internal/recipients"
	"github.com/aa-analytics/funnelreport/internal/report"
	"github.com/aa-analytics/funnelreport/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zlog.With().Str("service", "funnelreport").Logger()

	app := &cli.App{
		Name:        "funnelreport",
		Usage:       "generate and deliver per-entity user-funnel reports",
		Description: "ETL job: queries funnel CSVs through Apache Drill, builds the funnel table and writes a styled Excel report per entity, optionally mailing it.",
		Version:     version.Version(),
		Commands: []*cli.Command{
			runCommand(logger),
			demoCommand(logger),
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("run failed")
	}
}

func dateFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "date",
		Usage: "report date: dd_mm_yyyy, *mm_yyyy or 'dd_mm_yyyy -> dd_mm_yyyy' (default: yesterday)",
	}
}

func parseDate(c *cli.Context) (fetch.DateSpec, error) {
	if s := c.String("date"); s != "" {
		return fetch.ParseDateSpec(s)
	}
	return fetch.Yesterday(time.Now()), nil
}

func runCommand(logger zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "generate reports for every entity in the recipients file",
		Flags: []cli.Flag{
			dateFlag(),
			&cli.StringFlag{
				Name:  "recipients",
				Usage: "path to the entity -> To/CC mapping file (overrides FUNNEL_RECIPIENTS_PATH)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dates, err := parseDate(c)
			if err != nil {
				return err
			}

			recipientsPath := cfg.RecipientsPath
			if p := c.String("recipients"); p != "" {
				recipientsPath = p
			}
			book, err := recipients.Load(recipientsPath)
			if err != nil {
				return err
			}

			p := &pipeline.Pipeline{
				Fetcher: &fetch.DrillFetcher{
					Runner:   drill.New(cfg.DrillHost, cfg.DrillPort, cfg.QueryTimeout, cfg.QueryAttempts),
					BasePath: cfg.DrillBasePath,
				},
				Renderer: &report.ExcelRenderer{OutputDir: cfg.OutputDir},
				Notifier: notify.NewMailer(cfg.SMTP),
				Book:     book,
				Limits:   pipeline.NewLimits(cfg.MaxConcurrentEntities),
				Logger:   logger,
			}

			summary := p.Run(c.Context, dates)
			if len(summary.Results) > 0 && len(summary.Succeeded()) == 0 {
				return fmt.Errorf("no reports generated for %s", dates.Raw())
			}
			return nil
		},
	}
}

func demoCommand(logger zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "generate one sample report from synthetic data (no Drill, no mail)",
		Flags: []cli.Flag{
			dateFlag(),
			&cli.StringFlag{
				Name:  "output",
				Value: config.DefaultOutputDir,
				Usage: "directory for the sample workbook",
			},
		},
		Action: func(c *cli.Context) error {
			dates, err := parseDate(c)
			if err != nil {
				return err
			}

			p := &pipeline.Pipeline{
				Fetcher:  fetch.SyntheticFetcher{},
				Renderer: &report.ExcelRenderer{OutputDir: c.String("output")},
				Book:     &recipients.Book{To: map[string][]string{"demo_funnel_report": nil}},
				Limits:   pipeline.NewLimits(1),
				Logger:   logger,
			}

			summary := p.Run(c.Context, dates)
			if len(summary.Succeeded()) == 0 {
				return fmt.Errorf("demo report failed")
			}
			logger.Info().Str("path", summary.Succeeded()[0].Path).Msg("demo report written")
			return nil
		},
	}
}
