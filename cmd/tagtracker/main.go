package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tagtracker/internal"
	pkgconfig "github.com/starford/tagtracker/pkg/config"
)

var version = "dev"

// loadConfig reads the optional config file and applies command-line
// overrides on top of it.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("input") {
		cfg.Vault.Path = cmd.String("input")
	}
	if cmd.IsSet("output") {
		cfg.Report.Output = cmd.String("output")
	}
	if cmd.IsSet("spec") {
		cfg.Report.SpecFile = cmd.String("spec")
	}
	if cmd.IsSet("months") {
		cfg.Report.Months = int(cmd.Int("months"))
	}
	if cmd.IsSet("phases") {
		cfg.Report.Phases = cmd.StringSlice("phases")
	}
	if cmd.IsSet("filter") {
		cfg.Report.Filter = cmd.StringSlice("filter")
	}
	if cmd.IsSet("no-calendar") {
		cfg.Report.NoCalendar = cmd.Bool("no-calendar")
	}
	if cmd.IsSet("no-last-opened") {
		cfg.Report.NoLastOpened = cmd.Bool("no-last-opened")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func watch(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, opts...)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Serve(ctx, opts...)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func listViews(_ context.Context, _ *cli.Command) error {
	return internal.ListViews()
}

func main() {
	cmd := &cli.Command{
		Name:    "tagtracker",
		Usage:   "Index #tags across markdown files and write calendar, kanban and summary reports",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "Directory to search for tagged markdown files",
				DefaultText: "current working directory",
				Sources:     cli.EnvVars("TAGTRACKER_INPUT"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report name for the default report (.md is appended)",
				Value:   "tag-tracker",
			},
			&cli.StringFlag{
				Name:    "spec",
				Aliases: []string{"s"},
				Usage:   "Report specification file (YAML or JSON)",
				Sources: cli.EnvVars("TAGTRACKER_SPEC"),
			},
			&cli.IntFlag{
				Name:    "months",
				Aliases: []string{"m"},
				Usage:   "Number of recent months in the calendar",
				Value:   1,
			},
			&cli.StringSliceFlag{
				Name:  "phases",
				Usage: "Kanban phase tags in column order",
			},
			&cli.StringSliceFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Restrict the index to these tags (comma separated) or a /regex/",
			},
			&cli.BoolFlag{
				Name:  "no-calendar",
				Usage: "Leave the calendar out of the default report",
			},
			&cli.BoolFlag{
				Name:  "no-last-opened",
				Usage: "Leave the recently opened list out of the default report",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Re-run whenever a document changes",
				Action: watch,
			},
			{
				Name:   "serve",
				Usage:  "Watch and serve the HTTP preview API with server-sent events",
				Action: serve,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP port",
						Value:   8080,
						Sources: cli.EnvVars("TAGTRACKER_PORT"),
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "views",
				Usage:  "List the registered views",
				Action: listViews,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
