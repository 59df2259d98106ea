package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediagrab/mediagrab/internal/bot"
	"github.com/mediagrab/mediagrab/internal/cleanup"
	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/delivery"
	"github.com/mediagrab/mediagrab/internal/dispatch"
	"github.com/mediagrab/mediagrab/internal/fetch"
	"github.com/mediagrab/mediagrab/internal/fetch/instagram"
	"github.com/mediagrab/mediagrab/internal/fetch/tiktok"
	"github.com/mediagrab/mediagrab/internal/fetch/ytdlp"
	"github.com/mediagrab/mediagrab/internal/http/rest"
	"github.com/mediagrab/mediagrab/internal/logctx"
	"github.com/mediagrab/mediagrab/internal/notifier"
	"github.com/mediagrab/mediagrab/internal/platform"
	"github.com/mediagrab/mediagrab/internal/storage/sqlite"
	"github.com/mediagrab/mediagrab/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("mediagrab starting...", "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}
	defer database.Close()

	tasks := sqlite.NewInstrumentedTaskRepository(database, tel)
	users := sqlite.NewUserRepository(database)

	// =========================================================================
	// Start Fetcher Registry
	registry := fetch.Discover(ctx, []fetch.Provider{
		{
			ID:      platform.TikTok,
			Aliases: []platform.Platform{platform.Douyin},
			Fetcher: tiktok.NewClient(cfg.TikTok.APIBaseURL, cfg.TikTok.CookieFile),
		},
		{
			ID:      platform.Instagram,
			Fetcher: instagram.NewClient("", cfg.Instagram.CookieFile),
		},
		{
			ID:      platform.Generic,
			Generic: true,
			Fetcher: ytdlp.NewClient(cfg.Ytdlp.Binary, cfg.Ytdlp.Format, ""),
		},
	})

	// =========================================================================
	// Start Chat Transport
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}

	// =========================================================================
	// Start Cleanup
	cleaner := cleanup.NewScheduler(ctx, cfg.DownloadPath, cfg.CleanupDelay)
	if err := cleaner.PurgeExpired(ctx); err != nil {
		logger.Warn("startup purge of expired directories failed", "err", err)
	}

	// =========================================================================
	// Start Dispatcher
	queue := dispatch.NewQueue()
	packager := delivery.NewPackager(bot.NewMessenger(api), tel)
	job := dispatch.NewJob(registry, tasks, packager, schedulerAdapter{cleaner}, buildNotifier(cfg), cfg.DownloadPath, tel)
	dispatcher := dispatch.NewDispatcher(queue, job, cfg.MaxConcurrentDownloads, cfg.QueuePollInterval, tel)

	chatBot := bot.New(api, tasks, users, queue, cfg, tel)

	// =========================================================================
	// Start Ops Server
	server := setupServer(ctx, tasks, tel, cfg)

	logger.Info("waiting for downloads...",
		"download_path", cfg.DownloadPath,
		"max_concurrent", cfg.MaxConcurrentDownloads,
		"cleanup_delay", cfg.CleanupDelay.String(),
	)

	// =========================================================================
	// Run Everything
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return chatBot.Run(groupCtx)
	})

	group.Go(func() error {
		dispatcher.Run(groupCtx)

		return nil
	})

	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			return server.Close()
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	// The run group is down; give in-flight tasks a chance to finish. A
	// second signal abandons them.
	logger.Info("draining in-flight tasks, send another signal to abort")

	forceCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if abandoned := dispatcher.Drain(forceCtx); abandoned > 0 {
		logger.Warn("shutdown abandoned running tasks", "count", abandoned)
	}

	logger.Info("shutdown complete")

	return nil
}

// buildNotifier returns the ops alert notifier, or nil when no webhook is
// configured.
func buildNotifier(cfg *config.Config) notifier.Notifier {
	if cfg.DiscordWebhookURL == "" {
		return nil
	}

	return &notifier.DiscordNotifier{WebhookURL: cfg.DiscordWebhookURL}
}

// schedulerAdapter narrows the cleanup scheduler to the dispatch surface.
type schedulerAdapter struct {
	scheduler *cleanup.Scheduler
}

func (a schedulerAdapter) Schedule(userID, taskID int64) {
	a.scheduler.Schedule(userID, taskID)
}

// setupServer prepares the ops HTTP server with the status routes.
func setupServer(ctx context.Context, tasks *sqlite.InstrumentedTaskRepository, tel *telemetry.Telemetry, cfg *config.Config) *http.Server {
	handler := rest.NewStatusHandler(tasks, tel)

	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      handler.Router(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}
