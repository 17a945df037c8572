// Package transport holds the journey request and response payloads.
package transport

import (
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/journeys/domain"

	"github.com/google/uuid"
)

// StartJourneyRequest starts a journey for a patient intake.
type StartJourneyRequest struct {
	PatientIntakeID uuid.UUID      `json:"patientIntakeId" validate:"required"`
	InitialData     map[string]any `json:"initialData"`
}

// StartJourneyResponse is returned with 201.
type StartJourneyResponse struct {
	JourneyID uuid.UUID    `json:"journeyId"`
	State     domain.State `json:"state"`
	CreatedAt time.Time    `json:"createdAt"`
}

// TransitionRequest asks for a state change.
type TransitionRequest struct {
	TargetState string         `json:"targetState" validate:"required,max=32"`
	Reason      string         `json:"reason" validate:"required,max=2000"`
	Actor       string         `json:"actor" validate:"max=200"`
	ActorType   string         `json:"actorType" validate:"omitempty,oneof=system coordinator patient"`
	Metadata    map[string]any `json:"metadata"`
}

// TransitionResponse reports an accepted state change.
type TransitionResponse struct {
	JourneyID     uuid.UUID    `json:"journeyId"`
	PreviousState domain.State `json:"previousState"`
	CurrentState  domain.State `json:"currentState"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// AssignCoordinatorRequest assigns a coordinator.
type AssignCoordinatorRequest struct {
	CoordinatorID uuid.UUID `json:"coordinatorId" validate:"required"`
	Notes         *string   `json:"notes" validate:"omitempty,max=2000"`
}

// AssignCoordinatorResponse reports the assignment.
type AssignCoordinatorResponse struct {
	JourneyID             uuid.UUID  `json:"journeyId"`
	CoordinatorID         uuid.UUID  `json:"coordinatorId"`
	PreviousCoordinatorID *uuid.UUID `json:"previousCoordinatorId"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// ListJourneysRequest binds the listing query string.
type ListJourneysRequest struct {
	State         string `form:"state" validate:"omitempty,journey_state"`
	CoordinatorID string `form:"coordinatorId" validate:"omitempty,uuid"`
	Limit         int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset        int    `form:"offset" validate:"omitempty,min=0"`
}

// JourneyResponse is the full journey record.
type JourneyResponse struct {
	ID                    uuid.UUID             `json:"id"`
	PatientIntakeID       uuid.UUID             `json:"patientIntakeId"`
	CurrentState          domain.State          `json:"currentState"`
	StateHistory          []domain.HistoryEntry `json:"stateHistory"`
	StateData             map[string]any        `json:"stateData"`
	AssignedCoordinatorID *uuid.UUID            `json:"assignedCoordinatorId"`
	AllowedTransitions    []string              `json:"allowedTransitions"`
	Version               int                   `json:"version"`
	CreatedAt             time.Time             `json:"createdAt"`
	UpdatedAt             time.Time             `json:"updatedAt"`
}

// JourneyListResponse is one page of journeys.
type JourneyListResponse struct {
	Items  []JourneyResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// EventResponse is one timeline entry.
type EventResponse struct {
	ID        uuid.UUID      `json:"id"`
	Type      eventlog.Type  `json:"eventType"`
	FromState *string        `json:"fromState"`
	ToState   *string        `json:"toState"`
	ActorType string         `json:"actorType"`
	ActorID   *string        `json:"actorId"`
	Data      map[string]any `json:"eventData"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TimelineResponse lists a journey's events oldest first.
type TimelineResponse struct {
	JourneyID uuid.UUID       `json:"journeyId"`
	Events    []EventResponse `json:"events"`
}

// ToJourneyResponse maps the domain journey.
func ToJourneyResponse(j *domain.Journey) JourneyResponse {
	history := j.StateHistory
	if history == nil {
		history = []domain.HistoryEntry{}
	}
	data := j.StateData
	if data == nil {
		data = map[string]any{}
	}
	return JourneyResponse{
		ID:                    j.ID,
		PatientIntakeID:       j.PatientIntakeID,
		CurrentState:          j.CurrentState,
		StateHistory:          history,
		StateData:             data,
		AssignedCoordinatorID: j.AssignedCoordinatorID,
		AllowedTransitions:    domain.StateNames(domain.AllowedTransitions(j.CurrentState)),
		Version:               j.Version,
		CreatedAt:             j.CreatedAt,
		UpdatedAt:             j.UpdatedAt,
	}
}

// ToEventResponses maps audit events for the timeline.
func ToEventResponses(events []eventlog.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:        e.ID,
			Type:      e.Type,
			FromState: e.FromState,
			ToState:   e.ToState,
			ActorType: string(e.ActorType),
			ActorID:   e.ActorID,
			Data:      e.Data,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
