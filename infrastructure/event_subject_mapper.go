package infrastructure

import (
	"fmt"

	"splitledger/events"
)

const subjectPrefix = "splitledger"

// SubjectForEventType returns the NATS subject ledger events of eventType are published on
func SubjectForEventType(eventType events.EventType) string {
	return fmt.Sprintf("%s.%s", subjectPrefix, eventType)
}

// AllSubjects returns every subject the forwarder publishes to
func AllSubjects() []string {
	types := events.AllEventTypes()
	subjects := make([]string, 0, len(types))
	for _, t := range types {
		subjects = append(subjects, SubjectForEventType(t))
	}
	return subjects
}
