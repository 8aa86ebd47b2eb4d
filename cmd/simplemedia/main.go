package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/config"
	"github.com/tendant/simple-media/pkg/simplemedia/scan"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		slog.Error("simplemedia failed", "error", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "simplemedia",
		Usage: "Media catalog server with playlists, bindings and content storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML, JSON, TOML or .env configuration file",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "port",
						Usage: "Override the configured listen port",
					},
				},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: migrate,
			},
			{
				Name:  "scan",
				Usage: "List media whose content is missing from the blob store",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Media listed per query",
						Value: scan.DefaultBatchSize,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return scanMissing(ctx, cmd, out)
				},
			},
			{
				Name:      "sync-content",
				Usage:     "Move content left behind by a rename whose content step failed",
				ArgsUsage: "OLD_ID NEW_ID",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "old"},
					&cli.StringArg{Name: "new"},
				},
				Action: syncContent,
			},
			{
				Name:  "env",
				Usage: "Describe the environment variables the server reads",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					usage, err := config.Usage()
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(out, usage)
					return err
				},
			},
		},
	}
}

// loadConfig reads the configuration file named by --config, then the
// environment, then any extra options
func loadConfig(cmd *cli.Command, extra ...config.Option) (*config.ServerConfig, error) {
	opts := []config.Option{
		config.WithConfigFile(cmd.String("config")),
		config.WithEnv(),
	}
	opts = append(opts, extra...)

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(environment string) *slog.Logger {
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Environment)
	slog.SetDefault(logger)

	if err := cfg.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database schema is up to date")
	return nil
}

func scanMissing(ctx context.Context, cmd *cli.Command, out io.Writer) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Environment)

	svc, cleanup, err := cfg.BuildService(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer cleanup()

	missing := scan.NewMissingContent(svc)
	result, err := scan.New(svc, logger).Scan(ctx, scan.ScanOptions{
		Processor: missing,
		BatchSize: int(cmd.Int("batch-size")),
	})
	if err != nil {
		return err
	}
	for _, id := range missing.IDs() {
		fmt.Fprintln(out, id)
	}
	logger.Info("Scan finished",
		"found", result.TotalFound,
		"missing", len(missing.IDs()),
		"failed", result.TotalFailed,
	)
	if result.TotalFailed > 0 {
		return fmt.Errorf("%d media could not be checked", result.TotalFailed)
	}
	return nil
}

func syncContent(ctx context.Context, cmd *cli.Command) error {
	oldID, newID := cmd.StringArg("old"), cmd.StringArg("new")
	if oldID == "" || newID == "" {
		return errors.New("usage: sync-content OLD_ID NEW_ID")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Environment)

	svc, cleanup, err := cfg.BuildService(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer cleanup()

	meta, err := svc.SyncMediaContent(ctx, simplemedia.SyncMediaContentRequest{OldID: oldID, NewID: newID})
	if err != nil {
		return err
	}
	if meta == nil {
		logger.Info("No content to move", "old_id", oldID)
		return nil
	}
	logger.Info("Content moved", "old_id", oldID, "new_id", newID, "size", meta.Size)
	return nil
}
