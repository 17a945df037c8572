// Package domain holds the journey state machine: the states, the adjacency
// table of legal transitions and the history entry shape.
package domain

import (
	"slices"
	"strings"
)

// State is a stage of a patient journey.
type State string

const (
	StateInquiry   State = "INQUIRY"
	StateScreening State = "SCREENING"
	StateMatching  State = "MATCHING"
	StateQuote     State = "QUOTE"
	StateBooking   State = "BOOKING"
	StatePreTravel State = "PRE_TRAVEL"
	StateTreatment State = "TREATMENT"
	StatePostCare  State = "POST_CARE"
	StateFollowup  State = "FOLLOWUP"
	StateCancelled State = "CANCELLED"
	StateCompleted State = "COMPLETED"
)

// InitialState is the state every journey is created in.
const InitialState = StateInquiry

// transitions is the single source of truth for legal moves. Target order is
// the order reported back to callers in allowed-transition lists.
var transitions = map[State][]State{
	StateInquiry:   {StateScreening, StateCancelled},
	StateScreening: {StateMatching, StateCancelled},
	StateMatching:  {StateQuote, StateCancelled},
	StateQuote:     {StateBooking, StateMatching, StateCancelled},
	StateBooking:   {StatePreTravel, StateCancelled},
	StatePreTravel: {StateTreatment, StateCancelled},
	StateTreatment: {StatePostCare, StateCancelled},
	StatePostCare:  {StateFollowup, StateCompleted},
	StateFollowup:  {StateCompleted},
	StateCancelled: {},
	StateCompleted: {},
}

// States lists every state in workflow order.
func States() []State {
	return []State{
		StateInquiry, StateScreening, StateMatching, StateQuote, StateBooking, StatePreTravel,
		StateTreatment, StatePostCare, StateFollowup, StateCancelled, StateCompleted,
	}
}

// ParseState accepts a state name in any case.
func ParseState(raw string) (State, bool) {
	s := State(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := transitions[s]
	return s, ok
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s has no outbound transitions.
func (s State) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// AllowedTransitions returns a copy of the legal targets from s. Unknown and
// terminal states return an empty, non-nil slice.
func AllowedTransitions(from State) []State {
	return append([]State{}, transitions[from]...)
}

// CanTransition reports whether from -> to is an edge of the table.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// StateNames converts states to strings for payloads.
func StateNames(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
