package observability

// Metric name prefixes
const (
	MetricPrefix = "drawpool"
)

// Metric names
const (
	// Allocation metrics
	AllocationsTotal   = MetricPrefix + ".allocations_total"
	SharesAllocated    = MetricPrefix + ".shares_allocated_total"
	AllocationDuration = MetricPrefix + ".allocation.duration"

	// Draw metrics
	DrawsTotal   = MetricPrefix + ".draws_total"
	DrawDuration = MetricPrefix + ".draw.duration"

	// Correction metrics
	CorrectionsTotal = MetricPrefix + ".corrections_total"

	// Consistency metrics
	ConsistencyIssues = MetricPrefix + ".consistency.issues"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelKind      = "kind"
	LabelOutcome   = "outcome"
	LabelTrigger   = "trigger"
	LabelTarget    = "target_type"
	LabelField     = "field"
	LabelSeverity  = "severity"
	LabelEventType = "event_type"
)

// Outcome values
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
