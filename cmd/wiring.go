package cmd

import (
	"context"
	"fmt"
	"time"

	"drawpool/application"
	"drawpool/config"
	"drawpool/database"
	"drawpool/domain/entropy"
	"drawpool/domain/interfaces"
	"drawpool/domain/services"
	"drawpool/infrastructure"
	"drawpool/infrastructure/observability"
	"drawpool/repository"

	log "github.com/sirupsen/logrus"
)

// app holds the wired application layer shared by serve and the operator commands
type app struct {
	cfg            *config.Config
	db             *database.DB
	natsClient     *infrastructure.NATSClient
	metrics        *observability.MetricsProvider
	eventPublisher interfaces.EventPublisher

	participations *application.ParticipationHandler
	draws          *application.DrawHandler
	rounds         *application.RoundHandler
	corrections    *application.CorrectionHandler
	consistency    *application.ConsistencyWorker
	drawWorker     *application.DrawWorker
}

// newApp connects to the database and the event bus and builds every handler.
// The crypto entropy source is the only one ever installed here.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	serverKey, err := cfg.ServerKey()
	if err != nil {
		return nil, err
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{cfg: cfg, db: db}

	a.metrics = observability.NewMetricsProvider(cfg)
	if err := a.metrics.Initialize(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if cfg.NATSEnabled {
		log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
		a.natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := a.natsClient.Connect(ctx); err != nil {
			a.Close()
			return nil, err
		}
		mapper := infrastructure.NewEventSubjectMapper()
		if err := a.natsClient.EnsureStream(infrastructure.DrawEventsStream, mapper.GetAllSubjects()); err != nil {
			a.Close()
			return nil, err
		}
		a.eventPublisher = infrastructure.NewNATSEventPublisher(a.natsClient, mapper, a.metrics)
	} else {
		log.Info("NATS disabled, events are dropped")
		a.eventPublisher = infrastructure.NewNoopEventPublisher()
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, a.eventPublisher)
	gate := services.NewOperatorGate(cfg.OperatorIDs)
	algorithm := services.NewDrawAlgorithm(serverKey, cfg.DrawAlgorithmVersion, cfg.DrawSchemaVersion)
	window := services.DrawSettings{MinDelay: cfg.DrawMinDelay, MaxDelay: cfg.DrawMaxDelay}

	a.draws = application.NewDrawHandler(uowFactory, algorithm, entropy.NewCryptoSource(), gate, a.metrics, application.DrawSettings{
		Window:       window,
		AutoRollover: cfg.AutoRollover,
		NumberBase:   cfg.NumberBase,
	})
	a.drawWorker = application.NewDrawWorker(uowFactory, a.draws, application.DrawWorkerSettings{
		SweepInterval: cfg.DrawSweepInterval,
		MinDelay:      cfg.DrawMinDelay,
		MaxDelay:      cfg.DrawMaxDelay,
	})
	a.participations = application.NewParticipationHandler(uowFactory, a.drawWorker, a.metrics, application.ParticipationSettings{
		Allocation: services.AllocationSettings{
			FreeMaxSharesPerClaim: cfg.FreeMaxSharesPerClaim,
			DrawMinDelay:          cfg.DrawMinDelay,
		},
		FreeClaimsPerPeriod: cfg.FreeClaimsPerPeriod,
		AllowanceLocation:   cfg.AllowanceLocation(),
		Gate:                gate,
	})
	a.rounds = application.NewRoundHandler(uowFactory, gate, cfg.NumberBase)
	a.corrections = application.NewCorrectionHandler(uowFactory, gate, a.metrics)
	a.consistency = application.NewConsistencyWorker(
		repository.NewConsistencyRepository(db),
		a.eventPublisher,
		a.metrics,
		services.OverdueThresholds{
			Low:      cfg.OverdueLow,
			Medium:   cfg.OverdueMedium,
			High:     cfg.OverdueHigh,
			Critical: cfg.OverdueCritical,
		},
	)

	return a, nil
}

// Close releases connections in reverse order of creation
func (a *app) Close() {
	if a.natsClient != nil {
		if err := a.natsClient.Close(); err != nil {
			log.WithError(err).Warn("Error closing NATS connection")
		}
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metrics.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Error shutting down metrics provider")
		}
		cancel()
	}
	if a.db != nil {
		log.Info("Closing database connection...")
		a.db.Close()
	}
}
