// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/reelcast/internal/api"
	"github.com/tomtom215/reelcast/internal/config"
	"github.com/tomtom215/reelcast/internal/database"
	"github.com/tomtom215/reelcast/internal/events"
	"github.com/tomtom215/reelcast/internal/logging"
	"github.com/tomtom215/reelcast/internal/supervisor"
	"github.com/tomtom215/reelcast/internal/supervisor/services"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	once := flag.Bool("once", false, "run every task once and exit")
	recommendUser := flag.String("recommend-user", "", "print recommendations for this user and exit")
	currentVideo := flag.String("video", "", "video the user is watching (with -recommend-user)")
	topN := flag.Int("n", 0, "number of recommendations (with -recommend-user)")
	flag.Parse()

	if err := run(*configPath, *once, *recommendUser, *currentVideo, *topN); err != nil {
		logging.Error().Err(err).Msg("Worker failed")
		os.Exit(1)
	}
}

//nolint:gocyclo // Sequential setup steps
func run(configPath string, once bool, recommendUser, currentVideo string, topN int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()
	logger.Info().
		Str("db_driver", cfg.Database.Driver).
		Str("model_dir", cfg.Store.Dir).
		Str("corpus_predicate", cfg.Recommend.CorpusPredicate).
		Str("events", cfg.Events.Backend).
		Msg("Starting Reelcast worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	db, err := database.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing database")
		}
	}()
	if cfg.Database.InitSchema {
		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	bus, err := events.NewBus(cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	rec, err := initRecommend(cfg, db, bus, logger)
	if err != nil {
		return err
	}

	if recommendUser != "" {
		return printRecommendations(ctx, rec, recommendUser, currentVideo, topN)
	}

	mod, err := initModeration(ctx, cfg, db, bus, logger)
	if err != nil {
		return err
	}
	defer mod.Close()

	sched, err := initScheduler(cfg, rec, mod, initPreferences(cfg, db, mod.llm, logger), logger)
	if err != nil {
		return err
	}

	if once {
		logger.Info().Msg("Running every task once")
		return sched.RunOnce(ctx)
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(logger), supervisor.TreeConfigFrom(&cfg.Supervisor))
	layered := []struct {
		layer supervisor.Layer
		svc   suture.Service
	}{
		{supervisor.LayerWork, services.NewSchedulerService(sched, logger)},
		{supervisor.LayerMessaging, services.NewEventListenerService("model-built-listener", func(ctx context.Context) error {
			return bus.OnModelBuilt(ctx, rec.Scorer.HandleModelBuilt)
		}, logger)},
		{supervisor.LayerMessaging, services.NewEventListenerService("moderation-listener", func(ctx context.Context) error {
			return bus.OnModerationDecided(ctx, rec.Scorer.HandleModerationDecided)
		}, logger)},
	}
	for _, l := range layered {
		if _, err := tree.Add(l.layer, l.svc); err != nil {
			return err
		}
	}

	if cfg.Server.Enabled {
		handler := api.NewHandler(api.Deps{
			DB:        db,
			Builder:   rec.Builder,
			Scheduler: sched,
			Artifacts: rec.Store,
			Events:    bus.Backend(),
		}, logger)
		server := &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler:           api.NewRouter(handler, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		if _, err := tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout)); err != nil {
			return err
		}
		logger.Info().Str("addr", server.Addr).Msg("Ops server enabled")
	}

	logger.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logger.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logger.Info().Msg("Worker stopped gracefully")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func printRecommendations(ctx context.Context, rec *recommendComponents, userID, videoID string, topN int) error {
	recs := rec.Users.ForUser(ctx, userID, videoID, topN)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}
