package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg_promo_directory_bot/internal/config"
	"tg_promo_directory_bot/internal/dashboard"
	"tg_promo_directory_bot/internal/domain"
	"tg_promo_directory_bot/internal/feature/broadcast"
	"tg_promo_directory_bot/internal/feature/commands"
	"tg_promo_directory_bot/internal/feature/registration"
	"tg_promo_directory_bot/internal/logging"
	"tg_promo_directory_bot/internal/store"
	"tg_promo_directory_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	dashboardStopTimeout    = 5 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":              "startup",
		"broadcast_interval": cfg.BroadcastInterval.String(),
		"mongo_backend":      cfg.UseMongo(),
	}).Info("configuration loaded")

	var directory domain.Store
	var mongoManager *store.Manager

	if cfg.UseMongo() {
		connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
		mongoManager, err = store.NewManager(connectCtx, cfg)
		cancel()
		if err != nil {
			logger.WithError(err).Error("mongo connection error")
			fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
			os.Exit(1)
		}

		logger.WithField("event", "mongo_connect").Info("connected to mongo")

		indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
		if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
			cancelIndexes()
			logger.WithError(err).Error("mongo index setup error")
			fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
			os.Exit(1)
		}
		cancelIndexes()

		logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

		directory = store.NewMongoStore(mongoManager.Users(), mongoManager.Channels(), mongoManager)
	} else {
		directory = store.NewFileStore(cfg.DataFile, logger)
		logger.WithFields(logging.Fields{
			"event":     "file_store_ready",
			"data_file": cfg.DataFile,
		}).Info("file store loaded")
	}

	tgClient, err := telegram.NewClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	gateway := tgClient.Gateway()
	registrar := registration.NewRegistrar(directory, gateway, logger)
	commandHandler := commands.NewHandler(directory, logger)
	tgClient.Bind(registrar, commandHandler)

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	statsProvider := store.NewStatsProvider(directory)
	dashboardServer := dashboard.NewServer(cfg.HTTPPort, directory, gateway, statsProvider, logger)

	go func() {
		if err := dashboardServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("dashboard server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancelRun := context.WithCancel(context.Background())

	broadcaster := broadcast.NewBroadcaster(directory, gateway, cfg.BroadcastInterval, logger)
	scheduler := broadcast.NewScheduler(cfg.BroadcastInterval, broadcaster, logger)
	scheduler.Start(runCtx)

	tgDone := make(chan struct{})
	go func() {
		tgClient.Start(runCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelRun()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	scheduler.Wait()
	broadcaster.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), dashboardStopTimeout)
	if err := dashboardServer.Shutdown(stopCtx); err != nil {
		logger.WithError(err).Error("dashboard shutdown error")
	}
	cancelStop()

	if mongoManager != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		if err := mongoManager.Close(shutdownCtx); err != nil {
			logger.WithError(err).Error("mongo disconnect error")
		} else {
			logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
		}
		cancelShutdown()
	}

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
