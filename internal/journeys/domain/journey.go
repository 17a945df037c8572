package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one element of a journey's append-only state history.
type HistoryEntry struct {
	State     State          `json:"state"`
	EnteredAt time.Time      `json:"enteredAt"`
	Actor     string         `json:"actor"`
	Reason    string         `json:"reason"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Journey is the end-to-end lifecycle record of one patient intake.
type Journey struct {
	ID                    uuid.UUID
	PatientIntakeID       uuid.UUID
	CurrentState          State
	StateHistory          []HistoryEntry
	StateData             map[string]any
	AssignedCoordinatorID *uuid.UUID
	Version               int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ValidHistory reports whether the history starts in the initial state and
// every later entry is reachable from its predecessor through the table.
func ValidHistory(history []HistoryEntry) bool {
	if len(history) == 0 {
		return false
	}
	if history[0].State != InitialState {
		return false
	}
	for i := 1; i < len(history); i++ {
		if !CanTransition(history[i-1].State, history[i].State) {
			return false
		}
	}
	return true
}
