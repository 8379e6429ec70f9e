package application

import (
	"time"

	"drawpool/domain/entities"
)

// Metrics is the instrumentation the handlers and workers report to
type Metrics interface {
	RecordAllocation(kind entities.ParticipationKind, outcome string, shares int, duration time.Duration)
	RecordDraw(trigger entities.DrawTrigger, outcome string, duration time.Duration)
	RecordCorrection(targetType entities.CorrectionTarget, field string)
	RecordConsistencyReport(report *entities.ConsistencyReport)
	RecordNATSMessagePublished(eventType string)
}

// NoopMetrics discards everything
type NoopMetrics struct{}

func (NoopMetrics) RecordAllocation(entities.ParticipationKind, string, int, time.Duration) {}
func (NoopMetrics) RecordDraw(entities.DrawTrigger, string, time.Duration)                  {}
func (NoopMetrics) RecordCorrection(entities.CorrectionTarget, string)                      {}
func (NoopMetrics) RecordConsistencyReport(*entities.ConsistencyReport)                     {}
func (NoopMetrics) RecordNATSMessagePublished(string)                                       {}
