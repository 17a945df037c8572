package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/internal/quotes/repository"
	"medtour_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeConfig struct{}

func (fakeConfig) GetQuoteValidity() time.Duration { return 14 * 24 * time.Hour }
func (fakeConfig) GetDefaultCurrency() string      { return "USD" }
func (fakeConfig) GetOrganizationName() string     { return "MedTour" }

// memoryRepo applies the same status guards as the SQL statements.
type memoryRepo struct {
	mu       sync.Mutex
	quotes   map[uuid.UUID]repository.Quote
	journeys map[uuid.UUID]bool
	events   []eventlog.Entry
	tasks    []outbox.Task

	failRecordAcceptance error
	// storeClockAhead shifts the time the accept condition is checked at.
	storeClockAhead time.Duration
}

func newMemoryRepo(journeys ...uuid.UUID) *memoryRepo {
	r := &memoryRepo{quotes: map[uuid.UUID]repository.Quote{}, journeys: map[uuid.UUID]bool{}}
	for _, id := range journeys {
		r.journeys[id] = true
	}
	return r
}

func (r *memoryRepo) Create(_ context.Context, q *repository.Quote, created eventlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.journeys[q.JourneyID] {
		return apperr.NotFound("journey not found")
	}
	r.quotes[q.ID] = *q
	r.events = append(r.events, created)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	return &q, nil
}

func (r *memoryRepo) List(_ context.Context, journeyID *uuid.UUID) ([]repository.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Quote, 0)
	for _, q := range r.quotes {
		if journeyID == nil || q.JourneyID == *journeyID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepo) Update(_ context.Context, q *repository.Quote) (*repository.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.quotes[q.ID]
	if current.Status != repository.StatusDraft && current.Status != repository.StatusSent {
		return nil, repository.ErrStatusChanged
	}
	updated := *q
	updated.Status = current.Status
	r.quotes[q.ID] = updated
	return &updated, nil
}

func (r *memoryRepo) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time, evt eventlog.Entry, task outbox.Task) (*repository.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.quotes[id]
	if q.Status != repository.StatusDraft {
		return nil, repository.ErrStatusChanged
	}
	q.Status = repository.StatusSent
	q.SentAt = &sentAt
	q.UpdatedAt = sentAt
	r.quotes[id] = q
	r.events = append(r.events, evt)
	r.tasks = append(r.tasks, task)
	return &q, nil
}

func (r *memoryRepo) MarkAccepted(_ context.Context, id uuid.UUID, acceptedAt time.Time) (*repository.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.quotes[id]
	if q.Status != repository.StatusSent || !q.ValidUntil.After(acceptedAt.Add(r.storeClockAhead)) {
		return nil, repository.ErrStatusChanged
	}
	q.Status = repository.StatusAccepted
	q.AcceptedAt = &acceptedAt
	q.UpdatedAt = acceptedAt
	r.quotes[id] = q
	return &q, nil
}

func (r *memoryRepo) RecordAcceptance(_ context.Context, evt eventlog.Entry, task outbox.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRecordAcceptance != nil {
		return r.failRecordAcceptance
	}
	r.events = append(r.events, evt)
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *memoryRepo) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, q := range r.quotes {
		if q.Status == repository.StatusSent && !q.ValidUntil.After(now) {
			q.Status = repository.StatusExpired
			r.quotes[id] = q
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) setStatus(id uuid.UUID, status repository.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.quotes[id]
	q.Status = status
	r.quotes[id] = q
}

func (r *memoryRepo) eventsOfType(typ eventlog.Type) []eventlog.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []eventlog.Entry
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fakeBookings struct {
	requests []BookingRequest
	err      error
}

func (f *fakeBookings) CreateFromQuote(_ context.Context, req BookingRequest) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.requests = append(f.requests, req)
	return uuid.New(), nil
}

type memoryStore struct {
	objects map[string][]byte
	readErr error
}

func (m *memoryStore) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	if m.readErr != nil {
		return nil, false, m.readErr
	}
	b, ok := m.objects[key]
	return b, ok, nil
}

func (m *memoryStore) Put(_ context.Context, key string, content []byte) error {
	m.objects[key] = content
	return nil
}

func (m *memoryStore) URL(_ context.Context, key string) (string, time.Time, error) {
	return "https://objects.test/" + key, time.Unix(1700000000, 0), nil
}

var errStoreDown = errors.New("connection refused")
