package infrastructure

import (
	"fmt"

	"drawpool/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

var eventSubjects = map[events.EventType]string{
	events.EventTypeBalanceChange:          "drawpool.users.balance_changed",
	events.EventTypeParticipationAllocated: "drawpool.participations.allocated",
	events.EventTypeFirstParticipation:     "drawpool.participations.first",
	events.EventTypeRoundCreated:           "drawpool.rounds.created",
	events.EventTypeRoundFilled:            "drawpool.rounds.filled",
	events.EventTypeRoundVoided:            "drawpool.rounds.voided",
	events.EventTypeDrawCompleted:          "drawpool.draws.completed",
	events.EventTypeWinnerSelected:         "drawpool.draws.winner_selected",
	events.EventTypeDrawFailed:             "drawpool.alerts.draw_failed",
	events.EventTypeCorrectionApplied:      "drawpool.audit.correction_applied",
	events.EventTypeConsistencyIssues:      "drawpool.alerts.consistency_issues",
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("drawpool.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range eventSubjects {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns the stream subjects this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"drawpool.>"}
}
