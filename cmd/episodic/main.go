package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/episodic/episodic/internal/config"
	"github.com/episodic/episodic/internal/database"
	"github.com/episodic/episodic/internal/logger"
)

const configFlag = "config"

func main() {
	app := &cli.App{
		Name:    "episodic",
		Usage:   "Downloads subscribed episodes through qBittorrent and serves them for streaming.",
		Version: config.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Aliases: []string{"c"},
				EnvVars: []string{"EPISODIC_CONFIG"},
				Usage:   "YAML file containing episodic configuration.",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server and background tasks (default).",
				Action: serve,
			},
			{
				Name:   "poll",
				Usage:  "Run one task pass against the torrent client and exit.",
				Action: pollOnce,
			},
			{
				Name:  "migrate",
				Usage: "Apply database migrations and print the schema version.",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "Roll back the most recent migration."},
				},
				Action: migrate,
			},
		},
		HideHelpCommand: true,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("episodic exited with error")
	}
}

func loadConfig(c *cli.Context) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(c.String(configFlag))
	if err != nil {
		return nil, nil, fmt.Errorf("error loading configuration: %w", err)
	}
	l := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	return cfg, l, nil
}

func serve(c *cli.Context) error {
	cfg, l, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer l.Close()
	clog := l.Component("cli")

	clog.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting episodic")

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, l.Logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("error starting scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(cfg.Server.Address())
	}()

	select {
	case <-ctx.Done():
		clog.Info().Msg("received shutdown signal")
	case err := <-errCh:
		clog.Error().Err(err).Msg("HTTP server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		clog.Error().Err(err).Msg("server shutdown error")
	}
	if err := a.scheduler.Stop(); err != nil {
		clog.Error().Err(err).Msg("scheduler shutdown error")
	}

	clog.Info().Msg("episodic stopped")
	return nil
}

func pollOnce(c *cli.Context) error {
	cfg, l, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer l.Close()
	clog := l.Component("cli")

	a, err := build(c.Context, cfg, l.Logger)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.orchestrator.RunPass(c.Context)
	if err != nil {
		return err
	}
	clog.Info().
		Int("tasks", result.Tasks).
		Int("transitions", result.Transitions).
		Int("unreachable", result.Unreachable).
		Int("failed", result.Failed).
		Int("purged", result.Purged).
		Msg("pass complete")
	return nil
}

func migrate(c *cli.Context) error {
	cfg, l, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer l.Close()
	clog := l.Component("cli")

	db, err := database.New(cfg.Paths.Database())
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Bool("down") {
		err = db.MigrateDown()
	} else {
		err = db.Migrate()
	}
	if err != nil {
		return err
	}

	version, err := db.Version()
	if err != nil {
		return err
	}
	clog.Info().Int64("version", version).Str("path", db.Path()).Msg("database schema up to date")
	return nil
}
