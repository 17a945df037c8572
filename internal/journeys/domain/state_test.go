package domain

import (
	"slices"
	"testing"
	"time"
)

func TestEveryStateHasATableRow(t *testing.T) {
	for _, s := range States() {
		if !s.Valid() {
			t.Fatalf("state %s missing from transition table", s)
		}
	}
	if len(States()) != len(transitions) {
		t.Fatalf("expected %d states, table has %d", len(States()), len(transitions))
	}
}

func TestEveryTargetIsAKnownState(t *testing.T) {
	for from, targets := range transitions {
		for _, to := range targets {
			if !to.Valid() {
				t.Fatalf("%s -> %s targets an unknown state", from, to)
			}
		}
	}
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	for _, s := range []State{StateCancelled, StateCompleted} {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
		allowed := AllowedTransitions(s)
		if allowed == nil || len(allowed) != 0 {
			t.Fatalf("expected empty non-nil allowed list for %s, got %#v", s, allowed)
		}
		for _, to := range States() {
			if CanTransition(s, to) {
				t.Fatalf("terminal state %s must not reach %s", s, to)
			}
		}
	}
}

func TestQuoteAllowedTransitionsOrder(t *testing.T) {
	got := StateNames(AllowedTransitions(StateQuote))
	want := []string{"BOOKING", "MATCHING", "CANCELLED"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if CanTransition(StateQuote, StateTreatment) {
		t.Fatal("QUOTE -> TREATMENT must be rejected")
	}
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	allowed := AllowedTransitions(StateInquiry)
	allowed[0] = StateCompleted
	if !CanTransition(StateInquiry, StateScreening) {
		t.Fatal("mutating the returned slice must not change the table")
	}
}

func TestParseState(t *testing.T) {
	if s, ok := ParseState(" pre_travel "); !ok || s != StatePreTravel {
		t.Fatalf("expected PRE_TRAVEL, got %s (%v)", s, ok)
	}
	if _, ok := ParseState("ONBOARDING"); ok {
		t.Fatal("expected unknown state to be rejected")
	}
}

func TestValidHistory(t *testing.T) {
	now := time.Now()
	happy := []HistoryEntry{
		{State: StateInquiry, EnteredAt: now},
		{State: StateScreening}, {State: StateMatching}, {State: StateQuote},
		{State: StateMatching}, {State: StateQuote}, {State: StateBooking},
		{State: StatePreTravel}, {State: StateTreatment}, {State: StatePostCare},
		{State: StateFollowup}, {State: StateCompleted},
	}
	if !ValidHistory(happy) {
		t.Fatal("expected full happy path to be valid")
	}

	skipped := []HistoryEntry{{State: StateInquiry}, {State: StateQuote}}
	if ValidHistory(skipped) {
		t.Fatal("expected INQUIRY -> QUOTE to be invalid")
	}

	wrongStart := []HistoryEntry{{State: StateScreening}}
	if ValidHistory(wrongStart) {
		t.Fatal("expected history not starting at INQUIRY to be invalid")
	}

	if ValidHistory(nil) {
		t.Fatal("expected empty history to be invalid")
	}
}
