package eventlog

import (
	"testing"

	"github.com/google/uuid"
)

func TestEntryValidateRequiresJourney(t *testing.T) {
	entry := Entry{Type: TypeJourneyStarted, ActorType: ActorSystem}
	if err := entry.Validate(); err == nil {
		t.Fatal("expected error for missing journey id")
	}
}

func TestEntryValidateRejectsUnknownTypes(t *testing.T) {
	entry := Entry{JourneyID: uuid.New(), Type: "PAYMENT_RECEIVED", ActorType: ActorSystem}
	if err := entry.Validate(); err == nil {
		t.Fatal("expected error for unknown event type")
	}

	entry = Entry{JourneyID: uuid.New(), Type: TypeQuoteSent, ActorType: "agent"}
	if err := entry.Validate(); err == nil {
		t.Fatal("expected error for unknown actor type")
	}
}

func TestEntryValidateAcceptsEveryKnownType(t *testing.T) {
	types := []Type{
		TypeJourneyStarted, TypeStateTransition, TypeCoordinatorAssigned,
		TypeQuoteCreated, TypeQuoteSent, TypeQuoteAccepted,
	}
	for _, typ := range types {
		entry := Entry{JourneyID: uuid.New(), Type: typ, ActorType: ActorCoordinator}
		if err := entry.Validate(); err != nil {
			t.Fatalf("expected %s to validate, got %v", typ, err)
		}
	}
}

func TestStringPtrBlankIsNil(t *testing.T) {
	if StringPtr("") != nil {
		t.Fatal("expected nil for blank string")
	}
	if got := StringPtr("QUOTE"); got == nil || *got != "QUOTE" {
		t.Fatalf("unexpected pointer value %v", got)
	}
}
