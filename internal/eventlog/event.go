// Package eventlog is the append-only audit trail of everything that happens to a journey.
// Entries are inserted, never updated or deleted, and are read back in creation order.
package eventlog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened.
type Type string

const (
	TypeJourneyStarted      Type = "JOURNEY_STARTED"
	TypeStateTransition     Type = "STATE_TRANSITION"
	TypeCoordinatorAssigned Type = "COORDINATOR_ASSIGNED"
	TypeQuoteCreated        Type = "QUOTE_CREATED"
	TypeQuoteSent           Type = "QUOTE_SENT"
	TypeQuoteAccepted       Type = "QUOTE_ACCEPTED"
)

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	switch t {
	case TypeJourneyStarted, TypeStateTransition, TypeCoordinatorAssigned,
		TypeQuoteCreated, TypeQuoteSent, TypeQuoteAccepted:
		return true
	}
	return false
}

// ActorType is who caused the event.
type ActorType string

const (
	ActorSystem      ActorType = "system"
	ActorCoordinator ActorType = "coordinator"
	ActorPatient     ActorType = "patient"
)

// Valid reports whether a is a known actor type.
func (a ActorType) Valid() bool {
	return a == ActorSystem || a == ActorCoordinator || a == ActorPatient
}

var (
	errMissingJourney   = errors.New("eventlog: journey id is required")
	errUnknownType      = errors.New("eventlog: unknown event type")
	errUnknownActorType = errors.New("eventlog: unknown actor type")
)

// Entry is an event to append.
type Entry struct {
	JourneyID uuid.UUID
	Type      Type
	FromState *string
	ToState   *string
	ActorType ActorType
	ActorID   *string
	Data      map[string]any
}

// Validate checks required fields only. No business rules live here.
func (e Entry) Validate() error {
	if e.JourneyID == uuid.Nil {
		return errMissingJourney
	}
	if !e.Type.Valid() {
		return errUnknownType
	}
	if !e.ActorType.Valid() {
		return errUnknownActorType
	}
	return nil
}

// Event is a stored entry.
type Event struct {
	ID        uuid.UUID
	Seq       int64
	JourneyID uuid.UUID
	Type      Type
	FromState *string
	ToState   *string
	ActorType ActorType
	ActorID   *string
	Data      map[string]any
	CreatedAt time.Time
}

// StringPtr is a small helper for the optional state and actor fields.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
