package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/api"
	"github.com/episodic/episodic/internal/commands"
	"github.com/episodic/episodic/internal/config"
	"github.com/episodic/episodic/internal/database"
	"github.com/episodic/episodic/internal/downloader"
	"github.com/episodic/episodic/internal/downloader/mock"
	"github.com/episodic/episodic/internal/downloader/qbittorrent"
	"github.com/episodic/episodic/internal/downloader/types"
	"github.com/episodic/episodic/internal/feed"
	"github.com/episodic/episodic/internal/library"
	"github.com/episodic/episodic/internal/notification"
	"github.com/episodic/episodic/internal/orchestrator"
	"github.com/episodic/episodic/internal/scheduler"
	"github.com/episodic/episodic/internal/scheduler/tasks"
	"github.com/episodic/episodic/internal/startup"
	"github.com/episodic/episodic/internal/streaming"
	"github.com/episodic/episodic/internal/subscription"
	"github.com/episodic/episodic/internal/taskstore"
	"github.com/episodic/episodic/web"
)

// app holds the wired services of one process.
type app struct {
	db           *database.DB
	orchestrator *orchestrator.Service
	scheduler    *scheduler.Scheduler
	server       *api.Server
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func newTorrentClient(cfg config.DownloaderConfig) types.TorrentClient {
	if cfg.Type == string(types.ClientTypeMock) {
		return mock.New()
	}
	return qbittorrent.NewFromConfig(&types.ClientConfig{
		Host:        cfg.Host,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Timeout:     cfg.Timeout,
		InsecureTLS: cfg.InsecureTLS,
	})
}

func build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	db, err := database.Open(cfg.Paths.Database())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	a := &app{db: db}

	client := newTorrentClient(cfg.Downloader)
	retryCfg := startup.DefaultRetryConfig()
	err = startup.WithRetry(ctx, "torrent client login", retryCfg, client.Login, &log)
	if err != nil {
		// Passes leave tasks untouched while the client is unreachable.
		log.Warn().Err(err).Str("host", cfg.Downloader.Host).Msg("torrent client login failed, continuing")
	}

	gateway := downloader.NewGateway(client, downloader.GatewayConfig{
		DownloadRoot: cfg.Downloader.DownloadPath,
	}, log)

	store, err := taskstore.Open(cfg.Paths.TasksFile(), log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("error opening task store: %w", err)
	}

	videos := library.NewService(db.Conn(), log)
	routes := streaming.NewRoutes(log)
	mounted, err := routes.Rebuild(ctx, videos)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("error mounting videos: %w", err)
	}
	log.Info().Int("mounted", mounted).Msg("video routes restored")

	notifier, err := notification.NewFactory(log).Create(cfg.Notification)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("error creating notifier: %w", err)
	}
	notify := notification.NewService(notifier, cfg.Server.PublicURL, log)

	a.orchestrator = orchestrator.NewService(gateway, store, videos, routes, notify, orchestrator.Config{
		PollConcurrency: cfg.Scheduler.PollConcurrency,
	}, log)

	feedClient := feed.NewClient(cfg.Feed.URL, &http.Client{Timeout: 30 * time.Second}, log)
	a.orchestrator.SetFetcher(feedClient)
	releases := feed.NewStore(db.Conn())
	subs := subscription.NewService(db.Conn(), log)

	a.scheduler, err = scheduler.New(log)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := tasks.RegisterTaskPollTask(a.scheduler, a.orchestrator, cfg.Scheduler.PollInterval); err != nil {
		a.close()
		return nil, err
	}
	if cfg.Feed.Enabled {
		syncer := feed.NewSyncService(feedClient, releases, subs, a.orchestrator, notify, log)
		if err := tasks.RegisterFeedSyncTask(a.scheduler, syncer, cfg.Feed.Interval); err != nil {
			a.close()
			return nil, err
		}
	}

	templates, err := web.TemplatesFS()
	if err != nil {
		a.close()
		return nil, err
	}
	stream, err := streaming.NewHandlers(routes, templates, log)
	if err != nil {
		a.close()
		return nil, err
	}

	a.server = api.NewServer(api.Deps{
		Orchestrator: a.orchestrator,
		Tasks:        store,
		Videos:       videos,
		Routes:       routes,
		Streaming:    stream,
		Scheduler:    a.scheduler,
		Commands:     commands.NewHandler(subs, feedClient, releases, a.orchestrator, routes, notify, log),
		ClientType:   string(client.Type()),
	}, cfg, log)

	return a, nil
}
