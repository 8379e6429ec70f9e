package application

import (
	"context"
	"fmt"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/events"
	"drawpool/domain/interfaces"
	"drawpool/domain/services"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ConsistencyWorker runs the consistency monitor on demand and on a cron schedule.
// It reads through a pool-backed repository so an audit never holds a transaction
// open against the rounds being written.
type ConsistencyWorker struct {
	consistencyRepo interfaces.ConsistencyRepository
	eventPublisher  interfaces.EventPublisher
	metrics         Metrics
	thresholds      services.OverdueThresholds
}

// NewConsistencyWorker creates a new consistency worker
func NewConsistencyWorker(
	consistencyRepo interfaces.ConsistencyRepository,
	eventPublisher interfaces.EventPublisher,
	metrics Metrics,
	thresholds services.OverdueThresholds,
) *ConsistencyWorker {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &ConsistencyWorker{
		consistencyRepo: consistencyRepo,
		eventPublisher:  eventPublisher,
		metrics:         metrics,
		thresholds:      thresholds,
	}
}

// Report audits every round, or only roundID when it is not empty
func (w *ConsistencyWorker) Report(ctx context.Context, roundID string) (*entities.ConsistencyReport, error) {
	service := services.NewConsistencyService(w.consistencyRepo, w.thresholds)
	return service.Report(ctx, roundID)
}

// Start schedules the audit. The returned function stops the schedule and waits for a
// running audit to finish.
func (w *ConsistencyWorker) Start(ctx context.Context, schedule string) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { w.runScheduled(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid consistency schedule %q: %w", schedule, err)
	}
	c.Start()
	log.WithField("schedule", schedule).Info("Consistency worker started")

	return func() {
		<-c.Stop().Done()
		log.Info("Consistency worker stopped")
	}, nil
}

func (w *ConsistencyWorker) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	report, err := w.Report(ctx, "")
	if err != nil {
		log.WithError(err).Error("Scheduled consistency audit failed")
		return
	}
	w.metrics.RecordConsistencyReport(report)

	if report.IsHealthy() {
		log.WithField("duration", time.Since(start)).Debug("Scheduled consistency audit is clean")
		return
	}

	if err := w.eventPublisher.Publish(events.ConsistencyIssuesDetectedEvent{
		GeneratedAt:     report.GeneratedAt,
		IssueCount:      len(report.Issues),
		HighestSeverity: report.HighestSeverity(),
		Summary:         report.Summary,
	}); err != nil {
		log.WithError(err).Error("Failed to publish consistency issues event")
	}
}
