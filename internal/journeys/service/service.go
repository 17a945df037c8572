// Package service implements the journey state machine operations: starting a
// journey, guarded transitions, the timeline and the coordinator listing.
package service

import (
	"context"
	"fmt"
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/journeys/domain"
	"medtour_backend/internal/journeys/repository"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	startReason     = "Journey started"
	defaultActor    = "coordinator"
	maxReasonLength = 2000
	maxListLimit    = 100
)

// Repository is the persistence the state machine needs.
type Repository interface {
	Create(ctx context.Context, j *domain.Journey, started eventlog.Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Journey, error)
	GetByIntake(ctx context.Context, intakeID uuid.UUID) (*domain.Journey, error)
	ApplyTransition(ctx context.Context, u repository.TransitionUpdate, evt eventlog.Entry) (*domain.Journey, error)
	List(ctx context.Context, p repository.ListParams) ([]domain.Journey, int, error)
}

// EventReader reads a journey's audit trail.
type EventReader interface {
	ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]eventlog.Event, error)
}

// Service provides journey business operations.
type Service struct {
	repo   Repository
	events EventReader
	log    *logger.Logger
	now    func() time.Time
}

// New creates a new journey service.
func New(repo Repository, events EventReader, log *logger.Logger) *Service {
	return &Service{repo: repo, events: events, log: log, now: time.Now}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// StartInput starts a journey for a patient intake.
type StartInput struct {
	PatientIntakeID uuid.UUID
	InitialData     map[string]any
}

// TransitionInput requests a state change.
type TransitionInput struct {
	JourneyID   uuid.UUID
	TargetState string
	Reason      string
	Actor       string
	ActorType   eventlog.ActorType
	Metadata    map[string]any
}

// TransitionResult reports an accepted state change.
type TransitionResult struct {
	JourneyID     uuid.UUID
	PreviousState domain.State
	CurrentState  domain.State
	UpdatedAt     time.Time
	Journey       *domain.Journey
}

// InvalidTransitionDetails is attached to INVALID_TRANSITION errors.
type InvalidTransitionDetails struct {
	CurrentState       string   `json:"currentState"`
	TargetState        string   `json:"targetState"`
	AllowedTransitions []string `json:"allowedTransitions"`
}

// ListInput filters the coordinator journey listing.
type ListInput struct {
	State         string
	CoordinatorID *uuid.UUID
	Limit         int
	Offset        int
}

// StartJourney creates the journey in INQUIRY with its first history entry and
// a JOURNEY_STARTED event. Fails with Conflict when the intake already has one.
func (s *Service) StartJourney(ctx context.Context, in StartInput) (*domain.Journey, error) {
	if in.PatientIntakeID == uuid.Nil {
		return nil, apperr.Validation("patientIntakeId is required")
	}

	existing, err := s.repo.GetByIntake(ctx, in.PatientIntakeID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("a journey already exists for this patient intake").
			WithDetails(map[string]any{"journeyId": existing.ID})
	}

	now := s.now().UTC()
	j := &domain.Journey{
		ID:              uuid.New(),
		PatientIntakeID: in.PatientIntakeID,
		CurrentState:    domain.InitialState,
		StateHistory: []domain.HistoryEntry{{
			State:     domain.InitialState,
			EnteredAt: now,
			Actor:     string(eventlog.ActorSystem),
			Reason:    startReason,
		}},
		StateData: in.InitialData,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	started := eventlog.Entry{
		JourneyID: j.ID,
		Type:      eventlog.TypeJourneyStarted,
		ToState:   eventlog.StringPtr(string(domain.InitialState)),
		ActorType: eventlog.ActorSystem,
		Data:      map[string]any{"source": "api", "patient_intake_id": in.PatientIntakeID.String()},
	}

	if err := s.repo.Create(ctx, j, started); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("journey started", "journey_id", j.ID, "patient_intake_id", j.PatientIntakeID)
	return j, nil
}

// GetJourney returns the full journey record.
func (s *Service) GetJourney(ctx context.Context, id uuid.UUID) (*domain.Journey, error) {
	return s.repo.GetByID(ctx, id)
}

// Transition validates the move against the adjacency table and applies it with
// a compare-and-set on the journey version. Bare transitions never enqueue
// notifications.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (*TransitionResult, error) {
	target, ok := domain.ParseState(in.TargetState)
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown target state %q", in.TargetState)).
			WithDetails(map[string]any{"states": domain.StateNames(domain.States())})
	}

	reason := sanitize.Truncate(sanitize.Text(in.Reason), maxReasonLength)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}

	current, err := s.repo.GetByID(ctx, in.JourneyID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(current.CurrentState, target) {
		return nil, apperr.New(apperr.KindInvalidTransition,
			fmt.Sprintf("invalid transition from %s to %s", current.CurrentState, target)).
			WithDetails(InvalidTransitionDetails{
				CurrentState:       string(current.CurrentState),
				TargetState:        string(target),
				AllowedTransitions: domain.StateNames(domain.AllowedTransitions(current.CurrentState)),
			})
	}

	actor, actorType, actorID := resolveActor(in.Actor, in.ActorType)
	now := s.now().UTC()

	entry := domain.HistoryEntry{
		State:     target,
		EnteredAt: now,
		Actor:     actor,
		Reason:    reason,
		Metadata:  in.Metadata,
	}
	evt := eventlog.Entry{
		JourneyID: current.ID,
		Type:      eventlog.TypeStateTransition,
		FromState: eventlog.StringPtr(string(current.CurrentState)),
		ToState:   eventlog.StringPtr(string(target)),
		ActorType: actorType,
		ActorID:   actorID,
		Data:      map[string]any{"reason": reason, "actor": actor, "metadata": in.Metadata},
	}

	updated, err := s.repo.ApplyTransition(ctx, repository.TransitionUpdate{
		JourneyID:       current.ID,
		ExpectedVersion: current.Version,
		To:              target,
		Entry:           entry,
		UpdatedAt:       now,
	}, evt)
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).JourneyTransition(current.ID.String(), string(current.CurrentState), string(target), actor)

	return &TransitionResult{
		JourneyID:     updated.ID,
		PreviousState: current.CurrentState,
		CurrentState:  updated.CurrentState,
		UpdatedAt:     updated.UpdatedAt,
		Journey:       updated,
	}, nil
}

// Timeline returns the journey's events oldest first.
func (s *Service) Timeline(ctx context.Context, journeyID uuid.UUID) ([]eventlog.Event, error) {
	if _, err := s.repo.GetByID(ctx, journeyID); err != nil {
		return nil, err
	}
	return s.events.ListByJourney(ctx, journeyID)
}

// ListJourneys powers the coordinator dashboard.
func (s *Service) ListJourneys(ctx context.Context, in ListInput) ([]domain.Journey, int, error) {
	params := repository.ListParams{
		CoordinatorID: in.CoordinatorID,
		Limit:         clampLimit(in.Limit),
		Offset:        max(in.Offset, 0),
	}
	if in.State != "" {
		state, ok := domain.ParseState(in.State)
		if !ok {
			return nil, 0, apperr.Validation(fmt.Sprintf("unknown state %q", in.State))
		}
		params.State = &state
	}
	return s.repo.List(ctx, params)
}

// resolveActor returns the history label, the audit actor type and the audit
// actor id. "system" as actor always means a system actor.
func resolveActor(actor string, actorType eventlog.ActorType) (string, eventlog.ActorType, *string) {
	actor = sanitize.Text(actor)
	if actor == "" {
		actor = defaultActor
	}

	switch {
	case actor == string(eventlog.ActorSystem):
		actorType = eventlog.ActorSystem
	case !actorType.Valid():
		actorType = eventlog.ActorCoordinator
	}

	var actorID *string
	if !eventlog.ActorType(actor).Valid() {
		actorID = eventlog.StringPtr(actor)
	}
	return actor, actorType, actorID
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 20
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
