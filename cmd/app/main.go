package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AbdulWasayUl/country-explorer/internal/browse"
	"github.com/AbdulWasayUl/country-explorer/internal/channels"
	"github.com/AbdulWasayUl/country-explorer/internal/config"
	"github.com/AbdulWasayUl/country-explorer/internal/db"
	"github.com/AbdulWasayUl/country-explorer/internal/detail"
	"github.com/AbdulWasayUl/country-explorer/internal/favorites"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/internal/preferences"
	"github.com/AbdulWasayUl/country-explorer/internal/scheduler"
	"github.com/AbdulWasayUl/country-explorer/internal/server"
	"github.com/AbdulWasayUl/country-explorer/internal/session"
	"github.com/AbdulWasayUl/country-explorer/internal/store"
	"github.com/AbdulWasayUl/country-explorer/internal/store/sqlite"
	"github.com/AbdulWasayUl/country-explorer/internal/workpool"
	"github.com/AbdulWasayUl/country-explorer/services/auth"
	"github.com/AbdulWasayUl/country-explorer/services/country"
)

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := openState(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s state store: %v", cfg.StateDriver, err)
	}
	defer func() {
		if err := state.Close(); err != nil {
			logger.Error("Error closing state store: %v", err)
		}
	}()

	policy, err := browse.ParsePolicy(cfg.FailurePolicy)
	if err != nil {
		log.Fatalf("Invalid failure policy: %v", err)
	}

	countrySvc := country.NewService(cfg)
	authSvc := auth.NewService(cfg)

	sess := session.New(authSvc, state)
	favs := favorites.New(state)
	sess.OnChange(favs.HandleAuthChange)

	chans := channels.New()
	wp := workpool.New(chans, cfg.WorkerCount)
	wp.JobTimeout = cfg.RequestTimeout
	wp.Start(ctx)

	var dispatcher browse.Dispatcher = workpool.Inline{Timeout: cfg.RequestTimeout}
	if cfg.BrowseDispatch == "pool" {
		dispatcher = wp
	}
	machine := browse.New(countrySvc, favs, browse.WithPolicy(policy), browse.WithDispatcher(dispatcher))

	if err := sess.Hydrate(ctx); err != nil {
		logger.Error("Failed to restore session: %v", err)
	}

	logger.Info("Loading all countries.")
	if err := machine.LoadAll(ctx); err != nil {
		logger.Error("Initial country load failed: %v", err)
	}

	sch, err := scheduler.New()
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	if err := sch.StartJob(ctx, cfg.SessionCheckInterval, sess); err != nil {
		log.Fatalf("Failed to start scheduler job: %v", err)
	}

	srv := server.New(cfg.HTTPAddr, server.Deps{
		Session:     sess,
		Favorites:   favs,
		Preferences: preferences.New(state),
		Browse:      machine,
		Detail:      detail.New(countrySvc),
	})
	if err := srv.Start(ctx); err != nil {
		logger.Error("HTTP server failed: %v", err)
	}
	logger.Info("Received interrupt signal. Shutting down gracefully...")

	sch.Stop()
	wp.Stop()

	logger.Info("Waiting for pending worker jobs to finish...")
	chans.WG.Wait()
	logger.Info("All worker jobs finished. Shutdown complete.")
}

func openState(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StateDriver {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite":
		sq, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sq, nil
	case "mongo":
		client, err := db.ConnectMongoDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx, client, cfg); err != nil {
			db.DisconnectMongoDB(ctx, client)
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return db.NewKVStore(client, cfg), nil
	}
	return nil, fmt.Errorf("unsupported driver %q", cfg.StateDriver)
}
