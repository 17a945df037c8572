package service

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/journeys/domain"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/logger"

	"github.com/google/uuid"
)

const unexpectedErrFmt = "unexpected error: %v"

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	svc := New(repo, repo, logger.NewNop())
	svc.SetClock(func() time.Time { return fixedNow })
	return svc, repo
}

func startJourney(t *testing.T, svc *Service) *domain.Journey {
	t.Helper()
	j, err := svc.StartJourney(context.Background(), StartInput{PatientIntakeID: uuid.New()})
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	return j
}

func walk(t *testing.T, svc *Service, id uuid.UUID, states ...domain.State) {
	t.Helper()
	for _, s := range states {
		if _, err := svc.Transition(context.Background(), TransitionInput{JourneyID: id, TargetState: string(s), Reason: "progress"}); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}
}

func TestStartJourneyCreatesInquiryWithHistoryAndEvent(t *testing.T) {
	svc, repo := newTestService()
	intake := uuid.New()

	j, err := svc.StartJourney(context.Background(), StartInput{
		PatientIntakeID: intake,
		InitialData:     map[string]any{"treatment": "rhinoplasty"},
	})
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}

	if j.CurrentState != domain.StateInquiry {
		t.Fatalf("expected INQUIRY, got %s", j.CurrentState)
	}
	if len(j.StateHistory) != 1 || j.StateHistory[0].State != domain.StateInquiry || j.StateHistory[0].Actor != "system" {
		t.Fatalf("unexpected initial history %#v", j.StateHistory)
	}
	if !j.CreatedAt.Equal(fixedNow) || j.Version != 1 {
		t.Fatalf("unexpected createdAt/version %v/%d", j.CreatedAt, j.Version)
	}

	started := repo.eventsOfType(j.ID, eventlog.TypeJourneyStarted)
	if len(started) != 1 || started[0].ActorType != eventlog.ActorSystem {
		t.Fatalf("expected one system JOURNEY_STARTED event, got %#v", started)
	}
}

func TestStartJourneyTwiceForSameIntakeConflicts(t *testing.T) {
	svc, repo := newTestService()
	intake := uuid.New()

	if _, err := svc.StartJourney(context.Background(), StartInput{PatientIntakeID: intake}); err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	_, err := svc.StartJourney(context.Background(), StartInput{PatientIntakeID: intake})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}

	if len(repo.journeys) != 1 {
		t.Fatalf("expected exactly one journey, got %d", len(repo.journeys))
	}
}

func TestStartJourneyRequiresIntake(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.StartJourney(context.Background(), StartInput{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestTransitionFromQuoteToTreatmentIsRejectedWithAllowedList(t *testing.T) {
	svc, repo := newTestService()
	j := startJourney(t, svc)
	walk(t, svc, j.ID, domain.StateScreening, domain.StateMatching, domain.StateQuote)

	_, err := svc.Transition(context.Background(), TransitionInput{JourneyID: j.ID, TargetState: "TREATMENT", Reason: "skip ahead"})
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}

	appErr, _ := apperr.As(err)
	details, ok := appErr.Details.(InvalidTransitionDetails)
	if !ok {
		t.Fatalf("expected InvalidTransitionDetails, got %T", appErr.Details)
	}
	want := []string{"BOOKING", "MATCHING", "CANCELLED"}
	if !slices.Equal(details.AllowedTransitions, want) {
		t.Fatalf("expected allowed %v, got %v", want, details.AllowedTransitions)
	}

	stored, _ := repo.GetByID(context.Background(), j.ID)
	if stored.CurrentState != domain.StateQuote || len(stored.StateHistory) != 4 {
		t.Fatalf("rejected transition must not mutate the journey: %#v", stored)
	}
}

func TestTransitionFromTerminalStatesFailsWithEmptyAllowedList(t *testing.T) {
	svc, _ := newTestService()

	cancelled := startJourney(t, svc)
	walk(t, svc, cancelled.ID, domain.StateCancelled)

	completed := startJourney(t, svc)
	walk(t, svc, completed.ID, domain.StateScreening, domain.StateMatching, domain.StateQuote, domain.StateBooking,
		domain.StatePreTravel, domain.StateTreatment, domain.StatePostCare, domain.StateCompleted)

	for _, id := range []uuid.UUID{cancelled.ID, completed.ID} {
		for _, target := range domain.States() {
			_, err := svc.Transition(context.Background(), TransitionInput{JourneyID: id, TargetState: string(target), Reason: "retry"})
			if !apperr.Is(err, apperr.KindInvalidTransition) {
				t.Fatalf("expected InvalidTransition to %s, got %v", target, err)
			}
			appErr, _ := apperr.As(err)
			details := appErr.Details.(InvalidTransitionDetails)
			if details.AllowedTransitions == nil || len(details.AllowedTransitions) != 0 {
				t.Fatalf("expected empty allowed list, got %#v", details.AllowedTransitions)
			}
		}
	}
}

func TestTransitionAppendsHistoryAndEmitsMatchingEvents(t *testing.T) {
	svc, repo := newTestService()
	j := startJourney(t, svc)

	res, err := svc.Transition(context.Background(), TransitionInput{
		JourneyID:   j.ID,
		TargetState: "screening",
		Reason:      "documents received",
		Actor:       "coord-17",
		Metadata:    map[string]any{"source": "dashboard"},
	})
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if res.PreviousState != domain.StateInquiry || res.CurrentState != domain.StateScreening {
		t.Fatalf("unexpected result %#v", res)
	}

	walk(t, svc, j.ID, domain.StateMatching, domain.StateQuote, domain.StateMatching)

	stored, _ := repo.GetByID(context.Background(), j.ID)
	if !domain.ValidHistory(stored.StateHistory) {
		t.Fatalf("history does not respect the table: %#v", stored.StateHistory)
	}

	transitions := repo.eventsOfType(j.ID, eventlog.TypeStateTransition)
	if len(transitions) != len(stored.StateHistory)-1 {
		t.Fatalf("expected %d transition events, got %d", len(stored.StateHistory)-1, len(transitions))
	}
	for i, evt := range transitions {
		entry := stored.StateHistory[i+1]
		if evt.ToState == nil || *evt.ToState != string(entry.State) {
			t.Fatalf("event %d does not match history entry %s", i, entry.State)
		}
		if evt.FromState == nil || *evt.FromState != string(stored.StateHistory[i].State) {
			t.Fatalf("event %d has wrong from state", i)
		}
	}

	first := transitions[0]
	if first.ActorType != eventlog.ActorCoordinator || first.ActorID == nil || *first.ActorID != "coord-17" {
		t.Fatalf("unexpected actor on event %#v", first)
	}
	if first.Data["reason"] != "documents received" {
		t.Fatalf("unexpected event data %#v", first.Data)
	}
}

func TestTransitionActorDefaults(t *testing.T) {
	cases := []struct {
		actor     string
		actorType eventlog.ActorType
		wantLabel string
		wantType  eventlog.ActorType
		wantID    bool
	}{
		{"", "", "coordinator", eventlog.ActorCoordinator, false},
		{"system", eventlog.ActorPatient, "system", eventlog.ActorSystem, false},
		{"patient-9", eventlog.ActorPatient, "patient-9", eventlog.ActorPatient, true},
		{"coord-1", "robot", "coord-1", eventlog.ActorCoordinator, true},
	}
	for _, tc := range cases {
		label, typ, id := resolveActor(tc.actor, tc.actorType)
		if label != tc.wantLabel || typ != tc.wantType || (id != nil) != tc.wantID {
			t.Fatalf("resolveActor(%q, %q) = %q, %q, %v", tc.actor, tc.actorType, label, typ, id)
		}
	}
}

func TestTransitionUnknownJourneyAndState(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Transition(context.Background(), TransitionInput{JourneyID: uuid.New(), TargetState: "SCREENING", Reason: "documents received"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	j := startJourney(t, svc)
	_, err = svc.Transition(context.Background(), TransitionInput{JourneyID: j.ID, TargetState: "ONBOARDING", Reason: "documents received"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestTransitionRequiresReason(t *testing.T) {
	svc, repo := newTestService()
	j := startJourney(t, svc)

	for _, reason := range []string{"", "   ", "<b></b>"} {
		_, err := svc.Transition(context.Background(), TransitionInput{JourneyID: j.ID, TargetState: "SCREENING", Reason: reason})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("reason %q: expected Validation, got %v", reason, err)
		}
	}

	stored, _ := repo.GetByID(context.Background(), j.ID)
	if stored.CurrentState != domain.StateInquiry || len(stored.StateHistory) != 1 {
		t.Fatalf("rejected transition must not mutate the journey: %#v", stored)
	}
	if n := len(repo.eventsOfType(j.ID, eventlog.TypeStateTransition)); n != 0 {
		t.Fatalf("expected no transition events, got %d", n)
	}

	// Checked before the journey is loaded.
	_, err := svc.Transition(context.Background(), TransitionInput{JourneyID: uuid.New(), TargetState: "SCREENING"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation for missing reason on unknown journey, got %v", err)
	}
}

func TestConcurrentTransitionsOnlyOneWins(t *testing.T) {
	svc, repo := newTestService()
	j := startJourney(t, svc)

	// Both callers read version 1 before either writes.
	stale, _ := repo.GetByID(context.Background(), j.ID)
	racing := &racingRepo{memoryRepo: repo, snapshot: stale}
	racingSvc := New(racing, repo, logger.NewNop())

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = racingSvc.Transition(context.Background(), TransitionInput{JourneyID: j.ID, TargetState: "SCREENING", Reason: "race"})
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf(unexpectedErrFmt, err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected one winner and one conflict, got %d/%d", wins, conflicts)
	}

	stored, _ := repo.GetByID(context.Background(), j.ID)
	if len(stored.StateHistory) != 2 {
		t.Fatalf("expected a single appended history entry, got %d", len(stored.StateHistory))
	}
}

// racingRepo serves the same stale snapshot to every reader.
type racingRepo struct {
	*memoryRepo
	snapshot *domain.Journey
}

func (r *racingRepo) GetByID(_ context.Context, _ uuid.UUID) (*domain.Journey, error) {
	out := cloneJourney(*r.snapshot)
	return &out, nil
}

func TestTimelineForUnknownJourney(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Timeline(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestTimelineIsInCreationOrder(t *testing.T) {
	svc, _ := newTestService()
	j := startJourney(t, svc)
	walk(t, svc, j.ID, domain.StateScreening, domain.StateCancelled)

	events, err := svc.Timeline(context.Background(), j.ID)
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if len(events) != 3 || events[0].Type != eventlog.TypeJourneyStarted {
		t.Fatalf("unexpected timeline %#v", events)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("events out of order at %d", i)
		}
	}
}

func TestListJourneysRejectsUnknownState(t *testing.T) {
	svc, _ := newTestService()
	if _, _, err := svc.ListJourneys(context.Background(), ListInput{State: "LIMBO"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}

	startJourney(t, svc)
	items, total, err := svc.ListJourneys(context.Background(), ListInput{State: "inquiry"})
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("expected one INQUIRY journey, got %d (%v)", total, err)
	}
}
