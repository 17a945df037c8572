// Package assignment assigns a coordinator to a journey.
package assignment

import (
	"context"
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/journeys/domain"
	"medtour_backend/internal/journeys/repository"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/sanitize"

	"github.com/google/uuid"
)

const maxNotesLength = 2000

// Repository is the subset of journey persistence used for assignment.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Journey, error)
	AssignCoordinator(ctx context.Context, u repository.AssignmentUpdate, evt eventlog.Entry) (*domain.Journey, error)
}

// Service assigns coordinators.
type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

// New creates a new assignment service.
func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Input assigns CoordinatorID to JourneyID.
type Input struct {
	JourneyID     uuid.UUID
	CoordinatorID uuid.UUID
	Notes         *string
	ActorType     eventlog.ActorType
	ActorID       string
}

// Result reports the new and the replaced coordinator.
type Result struct {
	JourneyID             uuid.UUID
	CoordinatorID         uuid.UUID
	PreviousCoordinatorID *uuid.UUID
	UpdatedAt             time.Time
}

// Assign overwrites any existing assignment. It is legal in every state,
// including terminal ones, and records a COORDINATOR_ASSIGNED event.
func (s *Service) Assign(ctx context.Context, in Input) (*Result, error) {
	if in.CoordinatorID == uuid.Nil {
		return nil, apperr.Validation("coordinatorId is required")
	}

	current, err := s.repo.GetByID(ctx, in.JourneyID)
	if err != nil {
		return nil, err
	}

	actorType := in.ActorType
	if !actorType.Valid() {
		actorType = eventlog.ActorSystem
	}

	notes := sanitize.TextPtr(in.Notes)
	if notes != nil {
		trimmed := sanitize.Truncate(*notes, maxNotesLength)
		notes = &trimmed
	}

	data := map[string]any{
		"previous_coordinator_id": nil,
		"new_coordinator_id":      in.CoordinatorID.String(),
		"notes":                   nil,
	}
	if current.AssignedCoordinatorID != nil {
		data["previous_coordinator_id"] = current.AssignedCoordinatorID.String()
	}
	if notes != nil {
		data["notes"] = *notes
	}

	now := s.now().UTC()
	updated, err := s.repo.AssignCoordinator(ctx, repository.AssignmentUpdate{
		JourneyID:       current.ID,
		ExpectedVersion: current.Version,
		CoordinatorID:   in.CoordinatorID,
		UpdatedAt:       now,
	}, eventlog.Entry{
		JourneyID: current.ID,
		Type:      eventlog.TypeCoordinatorAssigned,
		ActorType: actorType,
		ActorID:   eventlog.StringPtr(in.ActorID),
		Data:      data,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("coordinator assigned",
		"journey_id", updated.ID, "coordinator_id", in.CoordinatorID)

	return &Result{
		JourneyID:             updated.ID,
		CoordinatorID:         in.CoordinatorID,
		PreviousCoordinatorID: current.AssignedCoordinatorID,
		UpdatedAt:             updated.UpdatedAt,
	}, nil
}
