// Package service implements the quote lifecycle: create, update, send,
// accept, expire and render.
package service

import (
	"context"
	"errors"
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/internal/pdf"
	"medtour_backend/internal/quotes/repository"
	"medtour_backend/internal/quotes/transport"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/config"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/money"
	"medtour_backend/platform/sanitize"

	"github.com/google/uuid"
)

const maxNotesLength = 5000

// Repository is the quote persistence the lifecycle needs.
type Repository interface {
	Create(ctx context.Context, q *repository.Quote, created eventlog.Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Quote, error)
	List(ctx context.Context, journeyID *uuid.UUID) ([]repository.Quote, error)
	Update(ctx context.Context, q *repository.Quote) (*repository.Quote, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, evt eventlog.Entry, task outbox.Task) (*repository.Quote, error)
	MarkAccepted(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (*repository.Quote, error)
	RecordAcceptance(ctx context.Context, evt eventlog.Entry, task outbox.Task) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// BookingRequest carries the financial terms copied from an accepted quote.
type BookingRequest struct {
	QuoteID         uuid.UUID
	JourneyID       uuid.UUID
	HospitalID      uuid.UUID
	TreatmentID     uuid.UUID
	TotalAmount     int64
	Currency        string
	PaymentSchedule []repository.Installment
}

// BookingCreator creates the booking for an accepted quote.
type BookingCreator interface {
	CreateFromQuote(ctx context.Context, req BookingRequest) (uuid.UUID, error)
}

// Service provides quote business operations.
type Service struct {
	repo     Repository
	bookings BookingCreator
	render   func(pdf.QuotePDFData) ([]byte, error)
	store    PDFStore
	content  ContentLookup
	cfg      config.QuoteConfig
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new quote service.
func New(repo Repository, cfg config.QuoteConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log, now: time.Now, render: pdf.GenerateQuotePDF}
}

// SetBookingCreator injects the booking module (breaks the import cycle).
func (s *Service) SetBookingCreator(b BookingCreator) {
	s.bookings = b
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates and stores a DRAFT quote together with its QUOTE_CREATED event.
func (s *Service) Create(ctx context.Context, actorID string, req transport.CreateQuoteRequest) (transport.QuoteResponse, error) {
	if req.JourneyID == uuid.Nil || req.HospitalID == uuid.Nil || req.TreatmentID == uuid.Nil {
		return transport.QuoteResponse{}, apperr.Validation("journeyId, hospitalId and treatmentId are required")
	}

	costs, err := costsFromMajor(req.TreatmentCost, req.AccommodationCost, req.TransportCost, req.MiscCost)
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	currency, err := money.NormalizeCurrency(req.Currency, s.cfg.GetDefaultCurrency())
	if err != nil {
		return transport.QuoteResponse{}, apperr.Validation("currency must be an ISO 4217 code")
	}

	now := s.now().UTC()
	validUntil := now.Add(s.cfg.GetQuoteValidity())
	if req.ValidUntil != nil {
		if !req.ValidUntil.After(now) {
			return transport.QuoteResponse{}, apperr.Validation("validUntil must be in the future")
		}
		validUntil = req.ValidUntil.UTC()
	}

	schedule, err := scheduleFromRequest(req.PaymentSchedule)
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	q := &repository.Quote{
		ID:              uuid.New(),
		JourneyID:       req.JourneyID,
		HospitalID:      req.HospitalID,
		TreatmentID:     req.TreatmentID,
		Currency:        currency,
		PaymentSchedule: schedule,
		Notes:           cleanNotes(req.Notes),
		Status:          repository.StatusDraft,
		ValidUntil:      validUntil,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	applyCosts(q, costs)

	created := eventlog.Entry{
		JourneyID: q.JourneyID,
		Type:      eventlog.TypeQuoteCreated,
		ActorType: eventlog.ActorCoordinator,
		ActorID:   eventlog.StringPtr(actorID),
		Data: map[string]any{
			"quote_id":     q.ID.String(),
			"total_amount": money.ToMajor(q.TotalAmount),
			"currency":     q.Currency,
		},
	}
	if err := s.repo.Create(ctx, q, created); err != nil {
		return transport.QuoteResponse{}, err
	}

	s.log.WithContext(ctx).Info("quote created", "quote_id", q.ID, "journey_id", q.JourneyID, "total", money.Format(q.TotalAmount, q.Currency))
	return ToResponse(q), nil
}

// GetByID returns one quote.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.QuoteResponse, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	return ToResponse(q), nil
}

// List returns quotes newest first, optionally filtered by journey.
func (s *Service) List(ctx context.Context, journeyID *uuid.UUID) (transport.QuoteListResponse, error) {
	items, err := s.repo.List(ctx, journeyID)
	if err != nil {
		return transport.QuoteListResponse{}, err
	}
	resp := transport.QuoteListResponse{Items: make([]transport.QuoteResponse, 0, len(items))}
	for i := range items {
		resp.Items = append(resp.Items, ToResponse(&items[i]))
	}
	return resp, nil
}

// Update edits a DRAFT or SENT quote and recomputes the total.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateQuoteRequest) (transport.QuoteResponse, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	if q.Status != repository.StatusDraft && q.Status != repository.StatusSent {
		return transport.QuoteResponse{}, invalidStatus("cannot modify quote", q.Status)
	}

	costs := costsOf(q)
	for _, f := range []struct {
		in  *float64
		out *int64
	}{
		{req.TreatmentCost, &costs.Treatment},
		{req.AccommodationCost, &costs.Accommodation},
		{req.TransportCost, &costs.Transport},
		{req.MiscCost, &costs.Misc},
	} {
		if f.in == nil {
			continue
		}
		v, err := money.FromMajor(*f.in)
		if err != nil {
			return transport.QuoteResponse{}, apperr.Validation("costs must be valid amounts")
		}
		*f.out = v
	}
	if err := validateCosts(costs); err != nil {
		return transport.QuoteResponse{}, err
	}
	applyCosts(q, costs)

	now := s.now().UTC()
	if req.ValidUntil != nil {
		if !req.ValidUntil.After(now) {
			return transport.QuoteResponse{}, apperr.Validation("validUntil must be in the future")
		}
		q.ValidUntil = req.ValidUntil.UTC()
	}
	if req.PaymentSchedule != nil {
		schedule, err := scheduleFromRequest(req.PaymentSchedule)
		if err != nil {
			return transport.QuoteResponse{}, err
		}
		q.PaymentSchedule = schedule
	}
	if req.Notes != nil {
		q.Notes = cleanNotes(req.Notes)
	}
	q.UpdatedAt = now

	updated, err := s.repo.Update(ctx, q)
	if errors.Is(err, repository.ErrStatusChanged) {
		return transport.QuoteResponse{}, s.reloadStatusError(ctx, id, "cannot modify quote")
	}
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	return ToResponse(updated), nil
}

// Send moves a DRAFT quote to SENT, records QUOTE_SENT and enqueues the
// quote_ready notification in one transaction.
func (s *Service) Send(ctx context.Context, id uuid.UUID, actorID string) (transport.QuoteResponse, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	if q.Status != repository.StatusDraft {
		return transport.QuoteResponse{}, invalidStatus("only DRAFT quotes can be sent", q.Status)
	}

	now := s.now().UTC()
	evt := eventlog.Entry{
		JourneyID: q.JourneyID,
		Type:      eventlog.TypeQuoteSent,
		ActorType: eventlog.ActorCoordinator,
		ActorID:   eventlog.StringPtr(actorID),
		Data:      map[string]any{"quote_id": q.ID.String()},
	}
	task := outbox.Task{
		JourneyID:    q.JourneyID,
		TemplateName: outbox.TemplateQuoteReady,
		Channel:      outbox.ChannelEmail,
		Priority:     outbox.PriorityHigh,
		Data: map[string]any{
			"quote_id":     q.ID.String(),
			"total_amount": money.ToMajor(q.TotalAmount),
			"currency":     q.Currency,
			"valid_until":  q.ValidUntil.Format(time.RFC3339),
			"hospital_id":  q.HospitalID.String(),
			"treatment_id": q.TreatmentID.String(),
		},
	}

	updated, err := s.repo.MarkSent(ctx, id, now, evt, task)
	if errors.Is(err, repository.ErrStatusChanged) {
		return transport.QuoteResponse{}, s.reloadStatusError(ctx, id, "only DRAFT quotes can be sent")
	}
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	s.log.WithContext(ctx).Info("quote sent", "quote_id", id, "journey_id", q.JourneyID)
	return ToResponse(updated), nil
}

// ExpireStaleQuotes moves SENT quotes past their validity to EXPIRED.
func (s *Service) ExpireStaleQuotes(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireStale(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired stale quotes", "count", n)
	}
	return n, nil
}

func (s *Service) reloadStatusError(ctx context.Context, id uuid.UUID, msg string) error {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if q.Status == repository.StatusExpired {
		return apperr.Expired("quote has expired")
	}
	return invalidStatus(msg, q.Status)
}

func invalidStatus(msg string, status repository.Status) error {
	return apperr.InvalidState(msg+" in status "+string(status)).
		WithDetails(map[string]any{"status": string(status)})
}

func cleanNotes(notes *string) *string {
	cleaned := sanitize.TextPtr(notes)
	if cleaned == nil {
		return nil
	}
	out := sanitize.Truncate(*cleaned, maxNotesLength)
	return &out
}
