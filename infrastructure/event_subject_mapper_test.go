package infrastructure

import (
	"strings"
	"testing"

	"drawpool/domain/events"

	"github.com/stretchr/testify/assert"
)

func TestDrawEventsStream_CapturesEverySubject(t *testing.T) {
	// JetStream stream names may not contain subject tokens or whitespace
	assert.NotContains(t, DrawEventsStream, ".")
	assert.NotContains(t, DrawEventsStream, "*")
	assert.NotContains(t, DrawEventsStream, ">")
	assert.NotContains(t, DrawEventsStream, " ")

	mapper := NewEventSubjectMapper()
	assert.Equal(t, []string{"drawpool.>"}, mapper.GetAllSubjects())

	for eventType, subject := range eventSubjects {
		assert.True(t, strings.HasPrefix(subject, "drawpool."), "%s -> %s", eventType, subject)
		assert.Equal(t, eventType, mapper.MapSubjectToEventType(subject))
	}
	assert.Equal(t, events.EventType("drawpool.unknown.x"), mapper.MapSubjectToEventType("drawpool.unknown.x"))
}
