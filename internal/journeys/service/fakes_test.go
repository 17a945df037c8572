package service

import (
	"context"
	"sync"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/journeys/domain"
	"medtour_backend/internal/journeys/repository"
	"medtour_backend/platform/apperr"

	"github.com/google/uuid"
)

// memoryRepo mimics the postgres repository: compare-and-set on version and
// events recorded in the same step as the change.
type memoryRepo struct {
	mu       sync.Mutex
	journeys map[uuid.UUID]domain.Journey
	events   []eventlog.Event
	seq      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{journeys: map[uuid.UUID]domain.Journey{}}
}

func (r *memoryRepo) Create(_ context.Context, j *domain.Journey, started eventlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.journeys {
		if existing.PatientIntakeID == j.PatientIntakeID {
			return apperr.Conflict("duplicate intake")
		}
	}
	r.journeys[j.ID] = cloneJourney(*j)
	r.appendLocked(started)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Journey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.journeys[id]
	if !ok {
		return nil, apperr.NotFound("journey not found")
	}
	out := cloneJourney(j)
	return &out, nil
}

func (r *memoryRepo) GetByIntake(_ context.Context, intakeID uuid.UUID) (*domain.Journey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.journeys {
		if j.PatientIntakeID == intakeID {
			out := cloneJourney(j)
			return &out, nil
		}
	}
	return nil, apperr.NotFound("journey not found")
}

func (r *memoryRepo) ApplyTransition(_ context.Context, u repository.TransitionUpdate, evt eventlog.Entry) (*domain.Journey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.journeys[u.JourneyID]
	if !ok {
		return nil, apperr.NotFound("journey not found")
	}
	if j.Version != u.ExpectedVersion {
		return nil, apperr.Conflict("stale")
	}
	j.CurrentState = u.To
	j.StateHistory = append(j.StateHistory, u.Entry)
	j.Version++
	j.UpdatedAt = u.UpdatedAt
	r.journeys[j.ID] = j
	r.appendLocked(evt)
	out := cloneJourney(j)
	return &out, nil
}

func (r *memoryRepo) AssignCoordinator(_ context.Context, u repository.AssignmentUpdate, evt eventlog.Entry) (*domain.Journey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.journeys[u.JourneyID]
	if !ok {
		return nil, apperr.NotFound("journey not found")
	}
	if j.Version != u.ExpectedVersion {
		return nil, apperr.Conflict("stale")
	}
	id := u.CoordinatorID
	j.AssignedCoordinatorID = &id
	j.Version++
	j.UpdatedAt = u.UpdatedAt
	r.journeys[j.ID] = j
	r.appendLocked(evt)
	out := cloneJourney(j)
	return &out, nil
}

func (r *memoryRepo) List(_ context.Context, p repository.ListParams) ([]domain.Journey, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Journey
	for _, j := range r.journeys {
		if p.State != nil && j.CurrentState != *p.State {
			continue
		}
		if p.CoordinatorID != nil && (j.AssignedCoordinatorID == nil || *j.AssignedCoordinatorID != *p.CoordinatorID) {
			continue
		}
		out = append(out, cloneJourney(j))
	}
	return out, len(out), nil
}

func (r *memoryRepo) ListByJourney(_ context.Context, journeyID uuid.UUID) ([]eventlog.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventlog.Event, 0)
	for _, e := range r.events {
		if e.JourneyID == journeyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) appendLocked(entry eventlog.Entry) {
	r.seq++
	r.events = append(r.events, eventlog.Event{
		ID:        uuid.New(),
		Seq:       r.seq,
		JourneyID: entry.JourneyID,
		Type:      entry.Type,
		FromState: entry.FromState,
		ToState:   entry.ToState,
		ActorType: entry.ActorType,
		ActorID:   entry.ActorID,
		Data:      entry.Data,
	})
}

func (r *memoryRepo) eventsOfType(journeyID uuid.UUID, typ eventlog.Type) []eventlog.Event {
	events, _ := r.ListByJourney(context.Background(), journeyID)
	var out []eventlog.Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func cloneJourney(j domain.Journey) domain.Journey {
	j.StateHistory = append([]domain.HistoryEntry(nil), j.StateHistory...)
	return j
}
