package service

import (
	"context"
	"errors"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/internal/quotes/repository"
	"medtour_backend/internal/quotes/transport"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/money"

	"github.com/google/uuid"
)

// Acceptance steps reported in partial failures.
const (
	StepCreateBooking    = "create_booking"
	StepRecordAcceptance = "record_acceptance"
)

const opAcceptQuote = "quotes.Accept"

// Accept runs the three acceptance steps. Step 1 flips the quote to ACCEPTED
// and is the durability boundary. Steps 2 (booking) and 3 (event and
// notification) run afterwards; their failures are reported in the result
// and logged for reconciliation instead of failing the call.
func (s *Service) Accept(ctx context.Context, id uuid.UUID, actorID string) (transport.AcceptQuoteResponse, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.AcceptQuoteResponse{}, err
	}

	now := s.now().UTC()
	switch {
	case q.Status == repository.StatusExpired:
		return transport.AcceptQuoteResponse{}, apperr.Expired("quote has expired")
	case q.Status != repository.StatusSent:
		return transport.AcceptQuoteResponse{}, invalidStatus("only SENT quotes can be accepted", q.Status)
	case !now.Before(q.ValidUntil):
		return transport.AcceptQuoteResponse{}, apperr.Expired("quote has expired").
			WithDetails(map[string]any{"validUntil": q.ValidUntil})
	}

	// Step 1.
	accepted, err := s.repo.MarkAccepted(ctx, id, now)
	if errors.Is(err, repository.ErrStatusChanged) {
		return transport.AcceptQuoteResponse{}, s.acceptRejectedError(ctx, id)
	}
	if err != nil {
		return transport.AcceptQuoteResponse{}, err
	}

	log := s.log.WithContext(ctx)
	resp := transport.AcceptQuoteResponse{Quote: ToResponse(accepted)}

	// Step 2.
	bookingID, err := s.createBooking(ctx, accepted)
	if err != nil {
		log.PartialFailure(opAcceptQuote, id.String(), StepCreateBooking, err)
		resp.PartialFailure = &transport.PartialFailure{Step: StepCreateBooking, Message: "quote accepted but booking creation failed"}
	}
	resp.BookingID = bookingID

	// Step 3.
	var bookingRef any
	if bookingID != nil {
		bookingRef = bookingID.String()
	}
	evt := eventlog.Entry{
		JourneyID: accepted.JourneyID,
		Type:      eventlog.TypeQuoteAccepted,
		ActorType: eventlog.ActorPatient,
		ActorID:   eventlog.StringPtr(actorID),
		Data: map[string]any{
			"quote_id":     accepted.ID.String(),
			"booking_id":   bookingRef,
			"total_amount": money.ToMajor(accepted.TotalAmount),
			"currency":     accepted.Currency,
		},
	}
	task := outbox.Task{
		JourneyID:    accepted.JourneyID,
		TemplateName: outbox.TemplateQuoteAccepted,
		Channel:      outbox.ChannelEmail,
		Priority:     outbox.PriorityHigh,
		Data: map[string]any{
			"quote_id":     accepted.ID.String(),
			"booking_id":   bookingRef,
			"total_amount": money.ToMajor(accepted.TotalAmount),
			"currency":     accepted.Currency,
			"hospital_id":  accepted.HospitalID.String(),
			"treatment_id": accepted.TreatmentID.String(),
		},
	}
	if err := s.repo.RecordAcceptance(ctx, evt, task); err != nil {
		log.PartialFailure(opAcceptQuote, id.String(), StepRecordAcceptance, err)
		if resp.PartialFailure == nil {
			resp.PartialFailure = &transport.PartialFailure{Step: StepRecordAcceptance, Message: "quote accepted but the acceptance event and notification were not recorded"}
		}
	}

	log.Info("quote accepted", "quote_id", id, "journey_id", accepted.JourneyID, "booking_id", bookingRef)
	return resp, nil
}

// acceptRejectedError explains a lost conditional accept. A quote that is
// still SENT on reload failed the database's valid_until check, which is an
// expiry even when the local clock still considers it valid.
func (s *Service) acceptRejectedError(ctx context.Context, id uuid.UUID) error {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch q.Status {
	case repository.StatusSent, repository.StatusExpired:
		return apperr.Expired("quote has expired").
			WithDetails(map[string]any{"validUntil": q.ValidUntil})
	}
	return invalidStatus("only SENT quotes can be accepted", q.Status)
}

func (s *Service) createBooking(ctx context.Context, q *repository.Quote) (*uuid.UUID, error) {
	if s.bookings == nil {
		return nil, apperr.Internal("booking creator is not configured")
	}
	id, err := s.bookings.CreateFromQuote(ctx, BookingRequest{
		QuoteID:         q.ID,
		JourneyID:       q.JourneyID,
		HospitalID:      q.HospitalID,
		TreatmentID:     q.TreatmentID,
		TotalAmount:     q.TotalAmount,
		Currency:        q.Currency,
		PaymentSchedule: q.PaymentSchedule,
	})
	if err != nil {
		return nil, err
	}
	return &id, nil
}
