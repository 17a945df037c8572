package transport

import (
	"testing"

	"medtour_backend/platform/validator"
)

func TestJourneyStateTag(t *testing.T) {
	val := validator.New()
	if err := RegisterValidations(val); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, ok := range []string{"", "INQUIRY", "matching", " Booking "} {
		if err := val.Struct(ListJourneysRequest{State: ok}); err != nil {
			t.Fatalf("state %q should be accepted: %v", ok, err)
		}
	}

	err := val.Struct(ListJourneysRequest{State: "LIMBO"})
	if err == nil {
		t.Fatalf("expected unknown state to be rejected")
	}
	if rule := validator.FieldErrors(err)["State"]; rule != TagJourneyState {
		t.Fatalf("expected %s rule, got %q", TagJourneyState, rule)
	}
}
