package cmd

import (
	"context"
	"fmt"

	"drawpool/api"
	"drawpool/config"
	"drawpool/database"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run initializes and starts the service
func Run(ctx context.Context) error {
	log.Info("Starting drawpool...")

	// Load configuration
	cfg := config.Get()
	configureLogging(cfg.LogLevel, cfg.LogFormat)

	// Apply pending migrations before anything touches the schema
	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Background workers
	stopDrawWorker := a.drawWorker.Start(ctx)
	defer stopDrawWorker()

	stopConsistency, err := a.consistency.Start(ctx, cfg.ConsistencySchedule)
	if err != nil {
		return err
	}
	defer stopConsistency()

	server := api.NewServer(a.participations, a.draws, a.rounds, a.corrections, a.consistency)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.HTTPAddr)
	})

	log.WithField("environment", cfg.Environment).Info("drawpool is running")
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Shutting down drawpool...")
	return nil
}
